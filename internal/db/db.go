package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

// Init 初始化数据库连接并执行自动迁移。
// databasePath 为空时将回退到默认值 eid.db。
func Init(databasePath string) error {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = "eid.db"
	}

	if err := ensureParentDir(path); err != nil {
		return err
	}

	gdb, err := Open(withPragmas(path))
	if err != nil {
		return err
	}
	DB = gdb
	return nil
}

// Open 连接 dsn 指向的 sqlite 数据库并执行迁移。
func Open(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, err
	}
	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate 为核心模型创建表和唯一索引。
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&User{}, &SocialLink{})
}

// sqlitePragmas 是 Init 默认追加到 DSN 的连接参数：开启外键级联，
// 写事务以 BEGIN IMMEDIATE 开始，并在锁冲突时等待 5 秒而不是立即返回 database is locked。
var sqlitePragmas = []struct {
	keys  []string
	param string
}{
	{keys: []string{"_foreign_keys", "_fk"}, param: "_foreign_keys=on"},
	{keys: []string{"_txlock"}, param: "_txlock=immediate"},
	{keys: []string{"_busy_timeout", "_timeout"}, param: "_busy_timeout=5000"},
}

// withPragmas 为 DSN 补齐缺失的 sqlitePragmas，已显式设置的参数保持不变。
func withPragmas(dsn string) string {
	for _, pragma := range sqlitePragmas {
		if hasParam(dsn, pragma.keys...) {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + pragma.param
	}
	return dsn
}

func hasParam(dsn string, keys ...string) bool {
	_, query, ok := strings.Cut(dsn, "?")
	if !ok {
		return false
	}
	for _, pair := range strings.Split(query, "&") {
		name, _, _ := strings.Cut(pair, "=")
		for _, key := range keys {
			if name == key {
				return true
			}
		}
	}
	return false
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
