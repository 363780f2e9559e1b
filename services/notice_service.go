package services

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// NoticeService 系统公告，保存为markdown文件
type NoticeService struct {
	mu   sync.RWMutex
	path string
}

func NewNoticeService(path string) *NoticeService {
	return &NoticeService{path: path}
}

// Get 公告不存在时返回空字符串
func (n *NoticeService) Get() (string, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	data, err := os.ReadFile(n.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (n *NoticeService) Set(content string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(n.path), 0755); err != nil {
		return err
	}
	tmp := n.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, n.path)
}
