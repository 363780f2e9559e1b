package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"frp-manager/internal/logger"
	"frp-manager/internal/models"

	"github.com/pelletier/go-toml/v2"
)

// Stopper stops a running configuration, implemented by FrpService.
type Stopper interface {
	Stop(id string) bool
}

/**
 * ConfigStore 配置记录缓存
 * @property {string} configDir - 配置根目录，每个用户一个子目录
 * @property {UserDirectory} users - 隧道元数据来源
 * @property {*ProcessRegistry} registry - 用于判断记录是否在运行
 * @description
 * - 记录由磁盘文件+用户元数据重建，内存中没有权威状态
 * - 没有元数据的文件不会出现在列表中
 */
type ConfigStore struct {
	mu        sync.RWMutex
	configDir string
	users     UserDirectory
	registry  *ProcessRegistry
	stopper   Stopper
	records   []models.ConfigRecord
}

func NewConfigStore(configDir string, users UserDirectory, registry *ProcessRegistry) *ConfigStore {
	return &ConfigStore{
		configDir: configDir,
		users:     users,
		registry:  registry,
	}
}

func (s *ConfigStore) SetStopper(stopper Stopper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopper = stopper
}

func (s *ConfigStore) ConfigDir() string {
	return s.configDir
}

/**
 * Reload 重新扫描配置目录，整体替换记录列表
 * @returns {error} 只有根目录无法读取时返回错误，单个文件的错误只记日志
 * @description
 * - 有进程句柄的记录保持running，之前是error的保持error，其余为stopped
 */
func (s *ConfigStore) Reload() error {
	records, err := s.scan()
	if err != nil {
		return err
	}

	s.mu.Lock()
	prev := make(map[string]models.RunStatus, len(s.records))
	for _, r := range s.records {
		prev[r.ID] = r.Status
	}
	for i := range records {
		r := &records[i]
		switch {
		case s.hasHandle(r.ID):
			r.Status = models.StatusRunning
		case prev[r.ID] == models.StatusError:
			r.Status = models.StatusError
		default:
			r.Status = models.StatusStopped
		}
	}
	s.records = records
	s.mu.Unlock()

	logger.Debugf("Config store reloaded, %d records", len(records))
	return nil
}

func (s *ConfigStore) hasHandle(id string) bool {
	if s.registry == nil {
		return false
	}
	_, ok := s.registry.Get(id)
	return ok
}

func (s *ConfigStore) scan() ([]models.ConfigRecord, error) {
	entries, err := os.ReadDir(s.configDir)
	if errors.Is(err, os.ErrNotExist) {
		return []models.ConfigRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config dir %s: %w", s.configDir, err)
	}

	records := []models.ConfigRecord{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		user, ok := s.users.FindByID(entry.Name())
		if !ok {
			logger.Debugf("Skip config dir '%s': no such user", entry.Name())
			continue
		}
		records = append(records, s.scanOwner(user)...)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].TunnelID < records[j].TunnelID })
	return records, nil
}

func (s *ConfigStore) scanOwner(user *models.User) []models.ConfigRecord {
	folder := filepath.Join(s.configDir, user.ID)
	files, err := os.ReadDir(folder)
	if err != nil {
		logger.Errorf("Read config dir of user '%s' failed: %v", user.Username, err)
		return nil
	}

	metas := make(map[string]models.TunnelMeta, len(user.Tunnels))
	for _, t := range user.Tunnels {
		metas[t.ConfigFile] = t
	}

	var records []models.ConfigRecord
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".toml" {
			continue
		}
		meta, ok := metas[f.Name()]
		if !ok {
			continue
		}
		path := filepath.Join(folder, f.Name())
		info, err := os.Stat(path)
		if err != nil {
			logger.Errorf("Stat config '%s' failed: %v", path, err)
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Errorf("Read config '%s' failed: %v", path, err)
			continue
		}
		proxies, err := ParseProxies(content)
		if err != nil {
			logger.Errorf("Parse config '%s' failed: %v", path, err)
			continue
		}
		rec := models.ConfigRecord{
			ID:         strconv.Itoa(meta.TunnelID),
			Name:       meta.Name,
			OwnerID:    user.ID,
			OwnerName:  user.Username,
			TunnelID:   meta.TunnelID,
			NodeID:     meta.NodeID,
			ConfigPath: path,
			FolderPath: folder,
			Status:     models.StatusStopped,
			Proxies:    proxies,
			CreatedAt:  meta.CreatedAt,
			UpdatedAt:  info.ModTime(),
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = info.ModTime()
		}
		if len(proxies) > 0 {
			rec.RemotePort = proxies[0].RemotePort
		}
		records = append(records, rec)
	}
	return records
}

// ParseProxies 解析frpc TOML中的[[proxies]]，只读取展示需要的字段
func ParseProxies(content []byte) ([]models.ProxySummary, error) {
	var doc struct {
		Proxies []models.ProxySummary `toml:"proxies"`
	}
	if err := toml.Unmarshal(content, &doc); err != nil {
		return nil, err
	}
	return doc.Proxies, nil
}

// List 返回所有记录的副本，权限过滤由调用者通过CanAccess完成
func (s *ConfigStore) List() []models.ConfigRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ConfigRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *ConfigStore) Get(id string) (*models.ConfigRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		rec := s.records[i]
		return &rec, true
	}
	return nil, false
}

func (s *ConfigStore) indexOf(id string) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

// SetStatus 修改记录状态，记录不存在时返回false
func (s *ConfigStore) SetStatus(id string, status models.RunStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.records[i].Status = status
	return true
}

func (s *ConfigStore) maxTunnelID() int {
	highest := 0
	s.mu.RLock()
	for _, r := range s.records {
		if r.TunnelID > highest {
			highest = r.TunnelID
		}
	}
	s.mu.RUnlock()
	for _, u := range s.users.FindAll() {
		for _, t := range u.Tunnels {
			if t.TunnelID > highest {
				highest = t.TunnelID
			}
		}
	}
	return highest
}

// ValidateName 名称会成为文件名的一部分
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 64 || name == "." || name == ".." {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, `/\:*?"<>|`) || strings.ContainsRune(name, 0) {
		return ErrInvalidName
	}
	return nil
}

/**
 * Create 创建配置
 * @param {string} name - 显示名称
 * @param {string} ownerID - 所属用户ID
 * @param {int} nodeID - 节点ID
 * @param {string} content - TOML内容
 * @returns {*models.ConfigRecord} 新记录
 * @returns {error} ErrInvalidName/ErrInvalidContent/ErrUserNotFound/ErrTunnelLimit或IO错误
 * @description
 * - 文件写入<configDir>/<ownerID>/<name>_<tunnelId>.toml
 * - 元数据登记失败时删除已写入的文件
 */
func (s *ConfigStore) Create(name, ownerID string, nodeID int, content string) (*models.ConfigRecord, error) {
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if _, err := ParseProxies([]byte(content)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	user, ok := s.users.FindByID(ownerID)
	if !ok {
		return nil, ErrUserNotFound
	}
	if !user.IsAdmin() && user.TunnelLimit > 0 && len(user.Tunnels) >= user.TunnelLimit {
		return nil, ErrTunnelLimit
	}

	tunnelID, err := s.users.NextTunnelID(s.maxTunnelID())
	if err != nil {
		return nil, fmt.Errorf("allocate tunnel id: %w", err)
	}

	folder := filepath.Join(s.configDir, ownerID)
	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	fileName := fmt.Sprintf("%s_%d.toml", name, tunnelID)
	path := filepath.Join(folder, fileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("write config: %w", err)
	}

	meta := models.TunnelMeta{
		TunnelID:   tunnelID,
		Name:       name,
		ConfigFile: fileName,
		NodeID:     nodeID,
		CreatedAt:  time.Now(),
	}
	if err := s.users.AddTunnelToUser(ownerID, meta); err != nil {
		os.Remove(path)
		os.Remove(folder) // 目录非空时失败，忽略
		return nil, fmt.Errorf("register tunnel: %w", err)
	}
	logger.Infof("Config '%s' (id: %d) created for user '%s'", name, tunnelID, user.Username)

	if err := s.Reload(); err != nil {
		logger.Errorf("Reload after create failed: %v", err)
	}
	rec, ok := s.Get(strconv.Itoa(tunnelID))
	if !ok {
		return nil, ErrConfigNotFound
	}
	return rec, nil
}

/**
 * Edit 覆盖配置内容
 * @returns {*models.ConfigRecord} 修改后的记录
 * @returns {error} ErrConfigNotFound/ErrResourceBusy/ErrInvalidContent
 * @description
 * - 运行中的配置不允许修改，文件保持不变
 */
func (s *ConfigStore) Edit(id, content string) (*models.ConfigRecord, error) {
	rec, ok := s.Get(id)
	if !ok {
		return nil, ErrConfigNotFound
	}
	if rec.Status == models.StatusRunning || s.hasHandle(id) {
		return nil, ErrResourceBusy
	}
	proxies, err := ParseProxies([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	if err := os.WriteFile(rec.ConfigPath, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("write config: %w", err)
	}

	now := time.Now()
	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		r := &s.records[i]
		r.UpdatedAt = now
		r.Proxies = proxies
		r.RemotePort = 0
		if len(proxies) > 0 {
			r.RemotePort = proxies[0].RemotePort
		}
		*rec = *r
	}
	s.mu.Unlock()
	logger.Infof("Config '%s' (id: %s) updated", rec.Name, id)
	return rec, nil
}

/**
 * Delete 删除配置
 * @returns {bool} 记录不存在时返回false
 * @description
 * - 运行中先停止，停止失败不阻止删除
 * - 删除元数据和文件，目录为空时一并删除
 */
func (s *ConfigStore) Delete(id string) bool {
	rec, ok := s.Get(id)
	if !ok {
		return false
	}

	s.mu.RLock()
	stopper := s.stopper
	s.mu.RUnlock()
	if stopper != nil && (rec.Status == models.StatusRunning || s.hasHandle(id)) {
		if !stopper.Stop(id) {
			logger.Warnf("Stop config '%s' before delete failed, deleting anyway", rec.Name)
		}
	}

	if rec.OwnerID != "" {
		if err := s.users.RemoveTunnelFromUser(rec.OwnerID, rec.TunnelID); err != nil {
			logger.Errorf("Remove tunnel %d from user '%s' failed: %v", rec.TunnelID, rec.OwnerID, err)
		}
	}
	if err := os.Remove(rec.ConfigPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Errorf("Remove config file '%s' failed: %v", rec.ConfigPath, err)
	}
	if entries, err := os.ReadDir(rec.FolderPath); err == nil && len(entries) == 0 {
		os.Remove(rec.FolderPath)
	}
	logger.Infof("Config '%s' (id: %s) deleted", rec.Name, id)

	if err := s.Reload(); err != nil {
		logger.Errorf("Reload after delete failed: %v", err)
	}
	return true
}

// ReadContent 读取配置文件内容
func (s *ConfigStore) ReadContent(id string) (string, bool) {
	rec, ok := s.Get(id)
	if !ok {
		return "", false
	}
	data, err := os.ReadFile(rec.ConfigPath)
	if err != nil {
		logger.Errorf("Read config '%s' failed: %v", rec.ConfigPath, err)
		return "", false
	}
	return string(data), true
}

/**
 * DeleteOwned 删除某个用户的全部配置，删除用户时使用
 * @param {string} ownerID - 用户ID
 * @returns {int} 删除的数量
 */
func (s *ConfigStore) DeleteOwned(ownerID string) int {
	n := 0
	for _, rec := range s.List() {
		if rec.OwnerID == ownerID && s.Delete(rec.ID) {
			n++
		}
	}
	return n
}

// CanAccess 管理员可访问全部配置，普通用户只能访问自己的
func CanAccess(caller *models.Caller, rec *models.ConfigRecord) bool {
	if caller == nil || rec == nil {
		return false
	}
	if caller.IsAdmin() {
		return true
	}
	return rec.OwnerID != "" && rec.OwnerID == caller.ID
}
