package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"frp-manager/internal/logger"
	"frp-manager/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserDirectory is the part of the user store the config store depends on.
type UserDirectory interface {
	FindByID(id string) (*models.User, bool)
	FindByUsername(username string) (*models.User, bool)
	FindAll() []models.User
	AddTunnelToUser(userID string, meta models.TunnelMeta) error
	RemoveTunnelFromUser(userID string, tunnelID int) error
	NextTunnelID(floor int) (int, error)
}

// userFile is the on-disk layout of users.json
type userFile struct {
	LastTunnelID int           `json:"lastTunnelId"`
	LastUserID   int           `json:"lastUserId"`
	Users        []models.User `json:"users"`
}

/**
 * UserStore 基于JSON文件的用户库
 * @property {string} filePath - users.json路径
 * @property {int} defaultLimit - 新用户的隧道数上限
 * @description
 * - 所有修改先改内存再落盘，落盘失败时回滚内存
 * - 落盘使用临时文件+rename，避免写一半的文件
 * - 读接口返回副本，调用者修改不影响库内数据
 */
type UserStore struct {
	mu           sync.RWMutex
	filePath     string
	defaultLimit int
	cost         int
	data         userFile
}

/**
 * NewUserStore 打开或创建用户库
 * @param {string} filePath - users.json路径
 * @param {int} defaultLimit - 新用户的隧道数上限
 * @returns {*UserStore} 用户库
 * @returns {error} 文件存在但无法解析时返回错误
 */
func NewUserStore(filePath string, defaultLimit int) (*UserStore, error) {
	s := &UserStore{
		filePath:     filePath,
		defaultLimit: defaultLimit,
		cost:         bcrypt.DefaultCost,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// SetHashCost 调整bcrypt代价，测试中用MinCost加速
func (s *UserStore) SetHashCost(cost int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cost = cost
}

func (s *UserStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", s.filePath, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &s.data); err != nil {
		return fmt.Errorf("parse %s: %w", s.filePath, err)
	}
	s.normalize()
	return nil
}

// normalize 补齐旧数据缺失的字段
func (s *UserStore) normalize() {
	maxUserID := 0
	for i := range s.data.Users {
		if s.data.Users[i].UserID > maxUserID {
			maxUserID = s.data.Users[i].UserID
		}
	}
	for i := range s.data.Users {
		u := &s.data.Users[i]
		if u.Role == "" {
			u.Role = models.RoleUser
		}
		if u.UserID == 0 {
			maxUserID++
			u.UserID = maxUserID
		}
		if u.TunnelLimit == 0 {
			u.TunnelLimit = s.defaultLimit
		}
		for _, t := range u.Tunnels {
			if t.TunnelID > s.data.LastTunnelID {
				s.data.LastTunnelID = t.TunnelID
			}
		}
	}
	if maxUserID > s.data.LastUserID {
		s.data.LastUserID = maxUserID
	}
}

// save 调用者必须持有写锁
func (s *UserStore) save() error {
	if s.data.Users == nil {
		s.data.Users = []models.User{}
	}
	data, err := json.MarshalIndent(&s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return err
	}
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.filePath)
}

// mutate 在写锁内修改数据并落盘，失败时恢复修改前的状态
func (s *UserStore) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	backup := s.snapshot()
	if err := fn(); err != nil {
		s.data = backup
		return err
	}
	if err := s.save(); err != nil {
		s.data = backup
		return fmt.Errorf("failed to save user database: %w", err)
	}
	return nil
}

func (s *UserStore) snapshot() userFile {
	cp := userFile{LastTunnelID: s.data.LastTunnelID, LastUserID: s.data.LastUserID}
	cp.Users = make([]models.User, len(s.data.Users))
	for i, u := range s.data.Users {
		cp.Users[i] = copyUser(u)
	}
	return cp
}

func copyUser(u models.User) models.User {
	if u.Tunnels != nil {
		tunnels := make([]models.TunnelMeta, len(u.Tunnels))
		copy(tunnels, u.Tunnels)
		u.Tunnels = tunnels
	}
	return u
}

func (s *UserStore) indexByID(id string) int {
	for i := range s.data.Users {
		if s.data.Users[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *UserStore) indexByUsername(username string) int {
	for i := range s.data.Users {
		if s.data.Users[i].Username == username {
			return i
		}
	}
	return -1
}

func (s *UserStore) FindByID(id string) (*models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexByID(id); i >= 0 {
		u := copyUser(s.data.Users[i])
		return &u, true
	}
	return nil, false
}

func (s *UserStore) FindByUsername(username string) (*models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexByUsername(username); i >= 0 {
		u := copyUser(s.data.Users[i])
		return &u, true
	}
	return nil, false
}

// FindAll 按userId排序返回所有用户
func (s *UserStore) FindAll() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, len(s.data.Users))
	for i, u := range s.data.Users {
		users[i] = copyUser(u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users
}

func (s *UserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.Users)
}

func (s *UserStore) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

/**
 * Create 创建用户
 * @param {string} username - 用户名，不可重复
 * @param {string} password - 明文密码
 * @param {string} role - admin/user，为空时为user
 * @param {string} source - 用户来源备注
 * @returns {*models.User} 新用户
 * @returns {error} ErrUserExists/ErrInvalidName
 */
func (s *UserStore) Create(username, password, role, source string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidName
	}
	if role != models.RoleAdmin {
		role = models.RoleUser
	}

	var created models.User
	err := s.mutate(func() error {
		if s.indexByUsername(username) >= 0 {
			return ErrUserExists
		}
		hash, err := s.hash(password)
		if err != nil {
			return err
		}
		now := time.Now()
		s.data.LastUserID++
		created = models.User{
			ID:           uuid.NewString(),
			UserID:       s.data.LastUserID,
			Username:     username,
			PasswordHash: hash,
			Role:         role,
			Source:       source,
			TunnelLimit:  s.defaultLimit,
			Tunnels:      []models.TunnelMeta{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		s.data.Users = append(s.data.Users, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("User '%s' created (role: %s)", username, role)
	return &created, nil
}

/**
 * EnsureAdmin 用户库为空时创建默认管理员
 * @returns {bool} 是否创建了管理员
 */
func (s *UserStore) EnsureAdmin(username, password string) (bool, error) {
	if s.Count() > 0 {
		return false, nil
	}
	if _, err := s.Create(username, password, models.RoleAdmin, "default"); err != nil {
		if errors.Is(err, ErrUserExists) {
			return false, nil
		}
		return false, err
	}
	logger.Warnf("Default administrator '%s' created, change its password", username)
	return true, nil
}

func (s *UserStore) VerifyPassword(userID, password string) bool {
	s.mu.RLock()
	i := s.indexByID(userID)
	var hash string
	if i >= 0 {
		hash = s.data.Users[i].PasswordHash
	}
	s.mu.RUnlock()
	if i < 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

/**
 * Update 修改用户名或密码，空值表示不修改
 * @returns {*models.User} 修改后的用户
 * @returns {error} ErrUserNotFound/ErrUserExists
 */
func (s *UserStore) Update(userID, newUsername, newPassword string) (*models.User, error) {
	newUsername = strings.TrimSpace(newUsername)
	var hash string
	if newPassword != "" {
		var err error
		if hash, err = s.hash(newPassword); err != nil {
			return nil, err
		}
	}

	var updated models.User
	err := s.mutate(func() error {
		i := s.indexByID(userID)
		if i < 0 {
			return ErrUserNotFound
		}
		u := &s.data.Users[i]
		if newUsername != "" && newUsername != u.Username {
			if s.indexByUsername(newUsername) >= 0 {
				return ErrUserExists
			}
			u.Username = newUsername
		}
		if hash != "" {
			u.PasswordHash = hash
		}
		u.UpdatedAt = time.Now()
		updated = copyUser(*u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *UserStore) SetPassword(userID, password string) error {
	if password == "" {
		return ErrInvalidName
	}
	_, err := s.Update(userID, "", password)
	return err
}

// SetTunnelLimit 上限至少为1，0在加载时会被当作未设置
func (s *UserStore) SetTunnelLimit(userID string, limit int) error {
	if limit < 1 {
		return ErrInvalidLimit
	}
	return s.mutate(func() error {
		i := s.indexByID(userID)
		if i < 0 {
			return ErrUserNotFound
		}
		s.data.Users[i].TunnelLimit = limit
		s.data.Users[i].UpdatedAt = time.Now()
		return nil
	})
}

// Delete 删除用户，返回被删除用户的副本以便调用者清理其隧道
func (s *UserStore) Delete(userID string) (*models.User, error) {
	var removed models.User
	err := s.mutate(func() error {
		i := s.indexByID(userID)
		if i < 0 {
			return ErrUserNotFound
		}
		removed = copyUser(s.data.Users[i])
		s.data.Users = append(s.data.Users[:i], s.data.Users[i+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("User '%s' deleted", removed.Username)
	return &removed, nil
}

/**
 * AddTunnelToUser 登记隧道元数据
 * @param {string} userID - 用户ID
 * @param {models.TunnelMeta} meta - 隧道元数据
 * @returns {error} ErrUserNotFound/ErrTunnelLimit
 * @description
 * - 隧道数达到上限时拒绝，管理员不受限制
 */
func (s *UserStore) AddTunnelToUser(userID string, meta models.TunnelMeta) error {
	return s.mutate(func() error {
		i := s.indexByID(userID)
		if i < 0 {
			return ErrUserNotFound
		}
		u := &s.data.Users[i]
		if u.Role != models.RoleAdmin && u.TunnelLimit > 0 && len(u.Tunnels) >= u.TunnelLimit {
			return ErrTunnelLimit
		}
		if meta.CreatedAt.IsZero() {
			meta.CreatedAt = time.Now()
		}
		u.Tunnels = append(u.Tunnels, meta)
		if meta.TunnelID > s.data.LastTunnelID {
			s.data.LastTunnelID = meta.TunnelID
		}
		return nil
	})
}

func (s *UserStore) RemoveTunnelFromUser(userID string, tunnelID int) error {
	return s.mutate(func() error {
		i := s.indexByID(userID)
		if i < 0 {
			return ErrUserNotFound
		}
		u := &s.data.Users[i]
		kept := u.Tunnels[:0]
		for _, t := range u.Tunnels {
			if t.TunnelID != tunnelID {
				kept = append(kept, t)
			}
		}
		u.Tunnels = kept
		return nil
	})
}

/**
 * NextTunnelID 分配下一个隧道ID
 * @param {int} floor - 当前已知的最大隧道ID
 * @returns {int} max(counter, floor) + 1
 * @description
 * - 计数器持久化在users.json中，删除隧道后ID也不会被复用
 */
func (s *UserStore) NextTunnelID(floor int) (int, error) {
	var id int
	err := s.mutate(func() error {
		if floor > s.data.LastTunnelID {
			s.data.LastTunnelID = floor
		}
		s.data.LastTunnelID++
		id = s.data.LastTunnelID
		return nil
	})
	return id, err
}
