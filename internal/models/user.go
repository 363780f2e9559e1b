package models

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// TunnelMeta is the per-user ownership record of one configuration file.
type TunnelMeta struct {
	TunnelID   int       `json:"tunnelId"`
	Name       string    `json:"name"`
	ConfigFile string    `json:"configFile"`
	NodeID     int       `json:"nodeId"`
	CreatedAt  time.Time `json:"createdAt"`
}

type User struct {
	ID           string       `json:"id"`
	UserID       int          `json:"userId"`
	Username     string       `json:"username"`
	PasswordHash string       `json:"passwordHash"`
	Role         string       `json:"role"`
	Source       string       `json:"source,omitempty"`
	TunnelLimit  int          `json:"tunnelLimit"`
	Tunnels      []TunnelMeta `json:"tunnels"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserView is what the API returns for a user; it never carries the hash.
type UserView struct {
	ID          string       `json:"id"`
	UserID      int          `json:"userId"`
	Username    string       `json:"username"`
	Role        string       `json:"role"`
	Source      string       `json:"source,omitempty"`
	TunnelLimit int          `json:"tunnelLimit"`
	TunnelCount int          `json:"tunnelCount"`
	Tunnels     []TunnelMeta `json:"tunnels"`
	CreatedAt   time.Time    `json:"createdAt"`
	Token       string       `json:"token,omitempty"`
}

func (u *User) View() UserView {
	tunnels := u.Tunnels
	if tunnels == nil {
		tunnels = []TunnelMeta{}
	}
	return UserView{
		ID:          u.ID,
		UserID:      u.UserID,
		Username:    u.Username,
		Role:        u.Role,
		Source:      u.Source,
		TunnelLimit: u.TunnelLimit,
		TunnelCount: len(u.Tunnels),
		Tunnels:     tunnels,
		CreatedAt:   u.CreatedAt,
	}
}

// Caller is the authenticated principal attached to a request.
type Caller struct {
	ID       string
	Username string
	Role     string
}

func (c *Caller) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateUserRequest struct {
	NewUsername     string `json:"newUsername"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
	Source   string `json:"source"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword" binding:"required"`
}

type TunnelLimitRequest struct {
	TunnelLimit int `json:"tunnelLimit"`
}

type NoticeRequest struct {
	Content *string `json:"content"`
}
