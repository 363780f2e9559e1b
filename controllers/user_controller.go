package controllers

import (
	"net/http"

	"frp-manager/internal/logger"
	"frp-manager/internal/middleware"
	"frp-manager/internal/models"
	"frp-manager/services"

	"github.com/gin-gonic/gin"
)

// UserController 管理员维护用户
type UserController struct {
	users *services.UserStore
	store *services.ConfigStore
	auth  *services.AuthService
}

func NewUserController(server *services.Server) *UserController {
	return &UserController{
		users: server.Users,
		store: server.Store,
		auth:  server.Auth,
	}
}

func (uc *UserController) RegisterRoutes(r *gin.Engine) {
	g := r.Group("/api/users", middleware.Auth(uc.auth), middleware.AdminOnly())
	g.GET("", uc.ListUsers)
	g.POST("", uc.CreateUser)
	g.DELETE("/:id", uc.DeleteUser)
	g.PUT("/:id/password", uc.ResetPassword)
	g.PUT("/:id/tunnel-limit", uc.SetTunnelLimit)
}

func (uc *UserController) ListUsers(c *gin.Context) {
	users := uc.users.FindAll()
	views := make([]models.UserView, 0, len(users))
	for i := range users {
		views = append(views, users[i].View())
	}
	c.JSON(http.StatusOK, models.OK(views))
}

func (uc *UserController) CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "用户名和密码不能为空")
		return
	}
	if req.Role == "" {
		req.Role = models.RoleUser
	}
	if req.Role != models.RoleUser && req.Role != models.RoleAdmin {
		badRequest(c, "角色只能是admin或user")
		return
	}
	user, err := uc.users.Create(req.Username, req.Password, req.Role, req.Source)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.OK(user.View()))
}

/**
 * DeleteUser 删除用户及其全部配置
 * @description
 * - 不能删除自己
 * - 先停止并删除该用户的配置，再删除用户记录
 */
func (uc *UserController) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if id == middleware.GetCaller(c).ID {
		badRequest(c, "不能删除当前登录的用户")
		return
	}
	if _, ok := uc.users.FindByID(id); !ok {
		respondError(c, services.ErrUserNotFound)
		return
	}
	n := uc.store.DeleteOwned(id)
	user, err := uc.users.Delete(id)
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Infof("User '%s' deleted with %d configs", user.Username, n)
	c.JSON(http.StatusOK, &models.Response{Success: true, Message: "用户已删除"})
}

func (uc *UserController) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "新密码不能为空")
		return
	}
	if err := uc.users.SetPassword(c.Param("id"), req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, &models.Response{Success: true, Message: "密码已重置"})
}

func (uc *UserController) SetTunnelLimit(c *gin.Context) {
	var req models.TunnelLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TunnelLimit < 1 {
		badRequest(c, "隧道上限必须是正整数")
		return
	}
	id := c.Param("id")
	if err := uc.users.SetTunnelLimit(id, req.TunnelLimit); err != nil {
		respondError(c, err)
		return
	}
	user, ok := uc.users.FindByID(id)
	if !ok {
		respondError(c, services.ErrUserNotFound)
		return
	}
	c.JSON(http.StatusOK, models.OK(user.View()))
}
