package oauth

import (
	"sync"

	"github.com/eidcard/internal/social"
)

// Pending 是 Begin 与 Complete 之间按平台保存的状态
type Pending struct {
	AttemptID string
	State     string
	// Verifier 为 PKCE 校验码，仅需要 PKCE 的提供方才会设置
	Verifier string
}

// StateStore 为当前浏览器会话保存进行中的尝试
type StateStore interface {
	SaveState(platform social.Platform, pending Pending) error
	LoadState(platform social.Platform) (Pending, bool)
	ClearState(platform social.Platform) error
}

// MemoryStore 是基于 map 的 StateStore，适用于测试和单进程工具
type MemoryStore struct {
	mu      sync.Mutex
	pending map[social.Platform]Pending
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pending: make(map[social.Platform]Pending)}
}

func (s *MemoryStore) SaveState(platform social.Platform, pending Pending) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[platform] = pending
	return nil
}

func (s *MemoryStore) LoadState(platform social.Platform) (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, ok := s.pending[platform]
	return pending, ok
}

func (s *MemoryStore) ClearState(platform social.Platform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, platform)
	return nil
}
