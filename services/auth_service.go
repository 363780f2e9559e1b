package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"frp-manager/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carried by access tokens
type Claims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

/**
 * AuthService 登录校验和JWT签发
 * @property {*UserStore} users - 用户库
 * @property {[]byte} secret - HS256密钥
 * @property {time.Duration} ttl - token有效期
 * @description
 * - token是无状态的，登出时把jti记入吊销表直到过期
 */
type AuthService struct {
	users  *UserStore
	secret []byte
	ttl    time.Duration

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewAuthService(users *UserStore, secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		users:   users,
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: make(map[string]time.Time),
	}
}

/**
 * Login 校验用户名密码并签发token
 * @returns {string} token
 * @returns {*models.User} 登录的用户
 * @returns {error} ErrBadPassword
 */
func (a *AuthService) Login(username, password string) (string, *models.User, error) {
	user, ok := a.users.FindByUsername(username)
	if !ok || !a.users.VerifyPassword(user.ID, password) {
		return "", nil, ErrBadPassword
	}
	token, err := a.IssueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (a *AuthService) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (a *AuthService) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if a.isRevoked(claims.RegisteredClaims.ID) {
		return nil, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}
	return claims, nil
}

/**
 * Authenticate 校验token并加载当前用户
 * @returns {*models.Caller} 请求者，角色取用户库中的最新值
 * @returns {error} ErrInvalidToken/ErrUserNotFound
 */
func (a *AuthService) Authenticate(tokenString string) (*models.Caller, error) {
	claims, err := a.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, ok := a.users.FindByID(claims.ID)
	if !ok {
		return nil, ErrUserNotFound
	}
	return &models.Caller{ID: user.ID, Username: user.Username, Role: user.Role}, nil
}

// Revoke 使token在过期前失效
func (a *AuthService) Revoke(tokenString string) error {
	claims, err := a.ParseToken(tokenString)
	if err != nil {
		return err
	}
	exp := time.Now().Add(a.ttl)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	now := time.Now()
	for jti, t := range a.revoked {
		if now.After(t) {
			delete(a.revoked, jti)
		}
	}
	a.revoked[claims.RegisteredClaims.ID] = exp
	return nil
}

func (a *AuthService) isRevoked(jti string) bool {
	if jti == "" {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.revoked[jti]
	return ok
}
