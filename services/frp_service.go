package services

import (
	"io"
	"strings"
	"sync"

	"frp-manager/internal/config"
	"frp-manager/internal/logger"
	"frp-manager/internal/models"
	"frp-manager/internal/proc"
	"frp-manager/internal/utils"
)

// commandArgs 渲染frpc命令行模板的数据
type commandArgs struct {
	ID         string
	Name       string
	ConfigPath string
	FolderPath string
}

/**
 * FrpService 管理frpc进程的启停
 * @property {*ConfigStore} store - 配置记录
 * @property {*ProcessRegistry} registry - 运行中的进程
 * @property {proc.Launcher} launcher - 进程启动器
 * @property {Notifier} notifier - 日志和状态推送
 * @description
 * - 状态: stopped(初始) -> running -> stopped，启动失败为error
 * - 启动/停止失败只记日志并返回false，错误不向上传播
 * - 任何锁都不会在启动进程、发送信号、推送事件时持有
 */
type FrpService struct {
	store    *ConfigStore
	registry *ProcessRegistry
	launcher proc.Launcher
	notifier Notifier

	binary       string
	args         []string
	bufferChunks int

	mu       sync.Mutex
	starting map[string]struct{}
}

func NewFrpService(cfg *config.FrpConfig, store *ConfigStore, registry *ProcessRegistry, launcher proc.Launcher, notifier Notifier) *FrpService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	s := &FrpService{
		store:        store,
		registry:     registry,
		launcher:     launcher,
		notifier:     notifier,
		binary:       cfg.Binary,
		args:         cfg.Args,
		bufferChunks: cfg.LogBufferChunks,
		starting:     make(map[string]struct{}),
	}
	if len(s.args) == 0 {
		s.args = []string{"-c", "{{.ConfigPath}}"}
	}
	store.SetStopper(s)
	return s
}

func (s *FrpService) setStatus(id string, status models.RunStatus) {
	s.store.SetStatus(id, status)
	s.notifier.Emit(EventFrpStatus, models.StatusEvent{ID: id, Status: status})
}

/**
 * Start 启动配置对应的frpc进程
 * @param {string} id - 配置ID
 * @returns {bool} 成功或已在运行返回true
 * @description
 * - 工作目录为配置所在目录
 * - 启动失败时状态置为error
 */
func (s *FrpService) Start(id string) bool {
	rec, ok := s.store.Get(id)
	if !ok {
		return false
	}

	s.mu.Lock()
	if _, running := s.registry.Get(id); running {
		s.mu.Unlock()
		return true
	}
	if _, busy := s.starting[id]; busy {
		s.mu.Unlock()
		return true
	}
	s.starting[id] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.starting, id)
		s.mu.Unlock()
	}()

	command, args, err := utils.GetCommandLine(s.binary, s.args, commandArgs{
		ID:         rec.ID,
		Name:       rec.Name,
		ConfigPath: rec.ConfigPath,
		FolderPath: rec.FolderPath,
	})
	if err != nil {
		logger.Errorf("Build frpc command for '%s' failed: %v", rec.Name, err)
		recordStart(false)
		s.setStatus(id, models.StatusError)
		return false
	}

	p, err := s.launcher.Spawn(command, args, rec.FolderPath)
	if err != nil {
		logger.Errorf("Start frpc for '%s' failed: %v", rec.Name, err)
		recordStart(false)
		s.setStatus(id, models.StatusError)
		return false
	}

	h := newProcessHandle(id, p, s.bufferChunks)
	h.Command = command
	h.Args = args
	h.WorkDir = rec.FolderPath
	s.registry.Put(id, h)
	recordStart(true)
	s.setStatus(id, models.StatusRunning)
	logger.Infof("frpc for '%s' started (PID: %d)", rec.Name, p.Pid())

	go s.pump(h, rec.Name, p.Stdout(), false)
	go s.pump(h, rec.Name, p.Stderr(), true)
	go s.watch(h, rec.Name)
	return true
}

// pump 把输出块写入缓冲区并推送
func (s *FrpService) pump(h *ProcessHandle, name string, r io.Reader, isErr bool) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			h.Append(chunk)
			s.notifier.Emit(EventFrpLog, models.LogEvent{ID: h.ConfigID, Log: chunk})
			line := strings.TrimRight(chunk, "\r\n")
			if isErr {
				logger.Errorf("[%s] %s", name, line)
			} else {
				logger.Infof("[%s] %s", name, line)
			}
		}
		if err != nil {
			return
		}
	}
}

// watch 等待进程退出，无论退出码是多少都回到stopped
func (s *FrpService) watch(h *ProcessHandle, name string) {
	code, err := h.process.Wait()
	if err != nil {
		logger.Errorf("Wait frpc for '%s' failed: %v", name, err)
	}
	if !s.registry.RemoveIf(h.ConfigID, h) {
		// 已被Stop移除，或已有新进程
		logger.Debugf("frpc for '%s' exited (code: %d) after stop", name, code)
		return
	}
	processExits.Inc()
	logger.Infof("frpc for '%s' exited with code %d", name, code)
	s.setStatus(h.ConfigID, models.StatusStopped)
}

/**
 * Stop 停止配置对应的frpc进程
 * @param {string} id - 配置ID
 * @returns {bool} 成功或本来就是stopped返回true
 * @description
 * - 发送终止请求后立即置为stopped，不等待进程真正退出
 */
func (s *FrpService) Stop(id string) bool {
	rec, ok := s.store.Get(id)
	if !ok {
		return false
	}
	if rec.Status == models.StatusStopped {
		return true
	}
	h, ok := s.registry.Get(id)
	if !ok {
		logger.Warnf("Stop '%s': no running process", rec.Name)
		return false
	}
	if err := h.process.Terminate(); err != nil {
		logger.Errorf("Terminate frpc for '%s' (PID: %d) failed: %v", rec.Name, h.Pid(), err)
		return false
	}
	s.registry.RemoveIf(id, h)
	s.setStatus(id, models.StatusStopped)
	logger.Infof("frpc for '%s' (PID: %d) stopped", rec.Name, h.Pid())
	return true
}

// Logs 返回当前进程的输出快照，没有进程时为空
func (s *FrpService) Logs(id string) []string {
	h, ok := s.registry.Get(id)
	if !ok {
		return []string{}
	}
	return h.Logs()
}

func (s *FrpService) Status(id string) (models.RunStatus, bool) {
	rec, ok := s.store.Get(id)
	if !ok {
		return "", false
	}
	return rec.Status, true
}

// Process 返回运行中进程的详情
func (s *FrpService) Process(id string) (*models.ProcessDetail, bool) {
	h, ok := s.registry.Get(id)
	if !ok {
		return nil, false
	}
	detail := h.GetDetail()
	return &detail, true
}

// StopAll 停止所有进程，服务退出时调用
func (s *FrpService) StopAll() {
	for _, id := range s.registry.IDs() {
		if !s.Stop(id) {
			// 记录已不存在时直接终止进程
			if h := s.registry.Remove(id); h != nil {
				h.process.Terminate()
			}
		}
	}
}
