package services

import (
	"sync"
	"time"

	"frp-manager/internal/logger"
	"frp-manager/internal/models"
	"frp-manager/internal/proc"
	"frp-manager/internal/utils"
)

/**
 * ProcessHandle 运行中的frpc进程
 * @property {string} configID - 所属配置ID
 * @property {proc.Process} process - 进程控制句柄，只用于读输出/终止/等待
 * @property {logRing} logs - 有界输出缓冲区
 */
type ProcessHandle struct {
	ConfigID  string
	Command   string
	Args      []string
	WorkDir   string
	StartTime time.Time
	process   proc.Process
	logs      *logRing
}

func newProcessHandle(configID string, p proc.Process, capacity int) *ProcessHandle {
	return &ProcessHandle{
		ConfigID:  configID,
		StartTime: time.Now(),
		process:   p,
		logs:      newLogRing(capacity),
	}
}

func (h *ProcessHandle) Pid() int {
	return h.process.Pid()
}

// Append 追加一段输出
func (h *ProcessHandle) Append(chunk string) {
	h.logs.Append(chunk)
}

// Logs 按追加顺序返回缓冲区快照
func (h *ProcessHandle) Logs() []string {
	return h.logs.Snapshot()
}

func (h *ProcessHandle) GetDetail() models.ProcessDetail {
	alive, err := utils.IsProcessRunning(h.Pid())
	if err != nil {
		logger.Debugf("Check PID %d failed: %v", h.Pid(), err)
	}
	return models.ProcessDetail{
		ConfigID:  h.ConfigID,
		Pid:       h.Pid(),
		Command:   h.Command,
		Args:      h.Args,
		WorkDir:   h.WorkDir,
		StartTime: h.StartTime,
		LogChunks: h.logs.Len(),
		Alive:     alive,
	}
}

// logRing 保留最近capacity个输出块，超出后覆盖最旧的
type logRing struct {
	mu     sync.Mutex
	chunks []string
	start  int
	count  int
}

func newLogRing(capacity int) *logRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &logRing{chunks: make([]string, capacity)}
}

func (r *logRing) Append(chunk string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := len(r.chunks)
	if r.count < size {
		r.chunks[(r.start+r.count)%size] = chunk
		r.count++
		return
	}
	r.chunks[r.start] = chunk
	r.start = (r.start + 1) % size
}

func (r *logRing) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.chunks[(r.start+i)%len(r.chunks)]
	}
	return out
}

func (r *logRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// ProcessRegistry 配置ID到运行中进程的映射，只存在于内存中
type ProcessRegistry struct {
	mu      sync.Mutex
	handles map[string]*ProcessHandle
}

func NewProcessRegistry() *ProcessRegistry {
	return &ProcessRegistry{handles: make(map[string]*ProcessHandle)}
}

func (r *ProcessRegistry) Get(id string) (*ProcessHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	return h, ok
}

func (r *ProcessRegistry) Put(id string, h *ProcessHandle) {
	r.mu.Lock()
	r.handles[id] = h
	n := len(r.handles)
	r.mu.Unlock()
	runningProcesses.Set(float64(n))
}

// Remove 删除并返回句柄，不存在时返回nil
func (r *ProcessRegistry) Remove(id string) *ProcessHandle {
	r.mu.Lock()
	h := r.handles[id]
	delete(r.handles, id)
	n := len(r.handles)
	r.mu.Unlock()
	runningProcesses.Set(float64(n))
	return h
}

/**
 * RemoveIf 仅当登记的句柄就是h时才删除
 * @param {string} id - 配置ID
 * @param {*ProcessHandle} h - 期望的句柄
 * @returns {bool} 是否删除
 * @description
 * - 进程退出回调使用，防止旧进程的退出把重新启动的新句柄删掉
 */
func (r *ProcessRegistry) RemoveIf(id string, h *ProcessHandle) bool {
	r.mu.Lock()
	cur, ok := r.handles[id]
	if !ok || cur != h {
		r.mu.Unlock()
		return false
	}
	delete(r.handles, id)
	n := len(r.handles)
	r.mu.Unlock()
	runningProcesses.Set(float64(n))
	return true
}

func (r *ProcessRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// IDs 返回当前所有登记的配置ID
func (r *ProcessRegistry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	return ids
}
