package controllers

import (
	"net/http"

	"frp-manager/internal/logger"
	"frp-manager/internal/middleware"
	"frp-manager/internal/models"
	"frp-manager/services"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// AuthController handles login, profile and notice requests
type AuthController struct {
	auth    *services.AuthService
	users   *services.UserStore
	notice  *services.NoticeService
	limiter *middleware.RateLimiter
}

/**
 * Create auth controller
 * @param {*services.Server} server - Server holding all services
 * @returns {*AuthController} Controller with a per-IP login limiter from auth config
 */
func NewAuthController(server *services.Server) *AuthController {
	cfg := server.Config().Auth
	return &AuthController{
		auth:    server.Auth,
		users:   server.Users,
		notice:  server.Notice,
		limiter: middleware.NewRateLimiter(rate.Limit(cfg.LoginRate), cfg.LoginBurst),
	}
}

func (ac *AuthController) RegisterRoutes(r *gin.Engine) {
	g := r.Group("/api/auth")
	g.POST("/login", ac.limiter.Middleware(), ac.Login)
	g.POST("/register", ac.Register)
	g.GET("/notice", ac.GetNotice)

	authed := g.Group("", middleware.Auth(ac.auth))
	authed.POST("/logout", ac.Logout)
	authed.GET("/me", ac.Me)
	authed.PUT("/update-user", ac.UpdateUser)
	authed.POST("/notice", middleware.AdminOnly(), ac.SetNotice)
}

// Login verifies credentials and issues a token
//
//	@Summary		Login
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.LoginRequest	true	"Credentials"
//	@Success		200		{object}	models.Response		"User with token"
//	@Failure		401		{object}	models.ErrorResponse
//	@Failure		429		{object}	models.ErrorResponse
//	@Router			/api/auth/login [post]
func (ac *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "用户名和密码不能为空")
		return
	}
	token, user, err := ac.auth.Login(req.Username, req.Password)
	if err != nil {
		logger.Warnf("Login failed for '%s' from %s", req.Username, c.ClientIP())
		respondError(c, err)
		return
	}
	view := user.View()
	view.Token = token
	logger.Infof("User '%s' logged in", user.Username)
	c.JSON(http.StatusOK, models.OK(view))
}

// Register 公开注册已关闭，账号由管理员创建
func (ac *AuthController) Register(c *gin.Context) {
	c.JSON(http.StatusForbidden, models.Fail("registration_disabled", "注册功能已关闭，请联系管理员"))
}

func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.auth.Revoke(middleware.TokenFromRequest(c)); err != nil {
		logger.Debugf("Revoke token failed: %v", err)
	}
	c.JSON(http.StatusOK, &models.Response{Success: true, Message: "已退出登录"})
}

func (ac *AuthController) Me(c *gin.Context) {
	user, ok := ac.users.FindByID(middleware.GetCaller(c).ID)
	if !ok {
		respondError(c, services.ErrUserNotFound)
		return
	}
	c.JSON(http.StatusOK, models.OK(user.View()))
}

/**
 * UpdateUser 修改自己的用户名或密码
 * @description
 * - 必须提供当前密码
 * - 用户名变化后签发新token，旧token里的用户名已过时
 */
func (ac *AuthController) UpdateUser(c *gin.Context) {
	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误")
		return
	}
	if req.NewUsername == "" && req.NewPassword == "" {
		badRequest(c, "没有需要修改的内容")
		return
	}
	caller := middleware.GetCaller(c)
	if !ac.users.VerifyPassword(caller.ID, req.CurrentPassword) {
		c.JSON(http.StatusUnauthorized, models.Fail("bad_credentials", "当前密码错误"))
		return
	}
	user, err := ac.users.Update(caller.ID, req.NewUsername, req.NewPassword)
	if err != nil {
		respondError(c, err)
		return
	}
	view := user.View()
	if token, err := ac.auth.IssueToken(user); err == nil {
		view.Token = token
	}
	c.JSON(http.StatusOK, models.OK(view))
}

func (ac *AuthController) GetNotice(c *gin.Context) {
	content, err := ac.notice.Get()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.OK(gin.H{"content": content}))
}

func (ac *AuthController) SetNotice(c *gin.Context) {
	var req models.NoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == nil {
		badRequest(c, "公告内容不能为空")
		return
	}
	if err := ac.notice.Set(*req.Content); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.OK(gin.H{"content": *req.Content}))
}
