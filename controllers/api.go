package controllers

import (
	"errors"
	"net/http"

	"frp-manager/internal/config"
	"frp-manager/internal/logger"
	"frp-manager/internal/models"
	"frp-manager/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type APIController struct {
	server *services.Server
}

/**
 * Create new API controller instance
 * @param {*services.Server} server - Server holding all services
 * @returns {*APIController} New API controller instance
 */
func NewAPIController(server *services.Server) *APIController {
	return &APIController{
		server: server,
	}
}

/**
 * Register system routes to Gin engine
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - /healthz 和 /metrics 不需要认证
 */
func (a *APIController) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", a.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// @Summary 业务就绪探针
// @Description 返回服务版本、启动时间、健康状态和关键指标统计结果
// @Tags System
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /healthz [get]
func (a *APIController) Healthz(c *gin.Context) {
	response := a.server.GetHealthz()
	c.JSON(http.StatusOK, response)
}

/**
 * 把服务层错误转换成HTTP响应
 * @param {*gin.Context} c - 请求上下文
 * @param {error} err - 服务层返回的错误
 * @description
 * - 已知的哨兵错误映射到固定的状态码和提示
 * - 其他错误记日志，响应体只给固定提示
 */
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrConfigNotFound):
		c.JSON(http.StatusNotFound, models.Fail("not_found", "配置不存在"))
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, models.Fail("not_found", "用户不存在"))
	case errors.Is(err, config.ErrNodeNotFound):
		c.JSON(http.StatusNotFound, models.Fail("not_found", "节点不存在"))
	case errors.Is(err, services.ErrResourceBusy):
		c.JSON(http.StatusConflict, models.Fail("busy", "隧道正在运行，请先停止"))
	case errors.Is(err, services.ErrUserExists):
		c.JSON(http.StatusConflict, models.Fail("user_exists", "用户名已存在"))
	case errors.Is(err, services.ErrTunnelLimit):
		c.JSON(http.StatusForbidden, models.Fail("tunnel_limit", "已达到隧道数量上限"))
	case errors.Is(err, services.ErrInvalidLimit):
		c.JSON(http.StatusBadRequest, models.Fail("invalid_limit", "隧道上限必须是正整数"))
	case errors.Is(err, services.ErrInvalidName):
		c.JSON(http.StatusBadRequest, models.Fail("invalid_name", "名称不合法"))
	case errors.Is(err, services.ErrInvalidContent):
		c.JSON(http.StatusBadRequest, models.Fail("invalid_content", "配置内容不是合法的TOML"))
	case errors.Is(err, services.ErrBadPassword):
		c.JSON(http.StatusUnauthorized, models.Fail("bad_credentials", "用户名或密码错误"))
	case errors.Is(err, services.ErrNoFreePort):
		c.JSON(http.StatusConflict, models.Fail("no_free_port", "节点没有可用端口"))
	case errors.Is(err, services.ErrUnknownTemplate):
		c.JSON(http.StatusBadRequest, models.Fail("unknown_template", "不支持的模板类型"))
	default:
		logger.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, models.Fail("internal", "服务器内部错误"))
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.Fail("bad_request", message))
}
