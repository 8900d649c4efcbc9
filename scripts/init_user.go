package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/eidcard/internal/config"
	"github.com/eidcard/internal/db"
	"github.com/eidcard/internal/service"
)

// 创建初始账号，用户名与密码来自 INIT_USERNAME / INIT_PASSWORD
func main() {
	cfg := config.Load()

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	username := strings.TrimSpace(os.Getenv("INIT_USERNAME"))
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("INIT_PASSWORD")
	if password == "" {
		log.Fatal("INIT_PASSWORD 未设置")
	}

	users := service.NewUserService(db.DB)
	user, err := users.Register(context.Background(), service.RegisterInput{
		Username: username,
		Password: password,
		FullName: os.Getenv("INIT_FULL_NAME"),
	})
	if errors.Is(err, service.ErrUsernameTaken) {
		fmt.Println("用户已存在，无需初始化")
		return
	}
	if err != nil {
		log.Fatal("创建用户失败:", err)
	}

	fmt.Println("账号创建成功")
	fmt.Println("用户名:", user.Username)
}
