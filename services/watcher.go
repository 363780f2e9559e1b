package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"frp-manager/internal/logger"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 500 * time.Millisecond

/**
 * ConfigWatcher 监听配置目录，外部修改后重新加载配置记录
 * @description
 * - 监听根目录和每个用户子目录，新建的子目录自动加入监听
 * - 500ms内的多个事件合并为一次Reload
 */
type ConfigWatcher struct {
	store    *ConfigStore
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	reloads int
}

func NewConfigWatcher(store *ConfigStore) (*ConfigWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &ConfigWatcher{store: store, watcher: w, debounce: watchDebounce}, nil
}

func (w *ConfigWatcher) addDirs() error {
	root := w.store.ConfigDir()
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}
	if err := w.watcher.Add(root); err != nil {
		return err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := w.watcher.Add(filepath.Join(root, e.Name())); err != nil {
				logger.Warnf("Watch '%s' failed: %v", e.Name(), err)
			}
		}
	}
	return nil
}

// Run 阻塞直到ctx取消
func (w *ConfigWatcher) Run(ctx context.Context) error {
	if err := w.addDirs(); err != nil {
		w.watcher.Close()
		return err
	}
	logger.Infof("Watching config dir %s", w.store.ConfigDir())
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("Config watcher error: %v", err)
		}
	}
}

func (w *ConfigWatcher) handle(ev fsnotify.Event) {
	if strings.HasSuffix(ev.Name, ".tmp") {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.watcher.Add(ev.Name)
		}
	}
	if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Write) {
		w.schedule()
	}
}

func (w *ConfigWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *ConfigWatcher) reload() {
	if err := w.store.Reload(); err != nil {
		logger.Errorf("Reload on config dir change failed: %v", err)
	}
	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()
}

// Reloads 返回已触发的重新加载次数
func (w *ConfigWatcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}
