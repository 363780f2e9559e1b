package controllers

import (
	"net/http"

	"frp-manager/internal/middleware"
	"frp-manager/internal/models"
	"frp-manager/services"

	"github.com/gin-gonic/gin"
)

// ConfigController handles frpc configuration and process requests
type ConfigController struct {
	store *services.ConfigStore
	frp   *services.FrpService
	auth  *services.AuthService
}

func NewConfigController(server *services.Server) *ConfigController {
	return &ConfigController{
		store: server.Store,
		frp:   server.Frp,
		auth:  server.Auth,
	}
}

func (cc *ConfigController) RegisterRoutes(r *gin.Engine) {
	g := r.Group("/api/configs", middleware.Auth(cc.auth))
	g.GET("", cc.ListConfigs)
	g.POST("", cc.CreateConfig)
	g.POST("/reload", middleware.AdminOnly(), cc.ReloadConfigs)
	g.GET("/:id", cc.GetConfig)
	g.PUT("/:id", cc.EditConfig)
	g.DELETE("/:id", cc.DeleteConfig)
	g.POST("/:id/start", cc.StartConfig)
	g.POST("/:id/stop", cc.StopConfig)
	g.GET("/:id/logs", cc.GetLogs)
	g.GET("/:id/content", cc.GetContent)
	g.GET("/:id/process", cc.GetProcess)
}

/**
 * 取出路径中的配置并校验访问权限
 * @returns {*models.ConfigRecord} 配置记录，不可访问时已写入响应并返回nil
 * @description
 * - 不存在和无权访问都返回404，避免泄露其他用户的配置ID
 */
func (cc *ConfigController) accessible(c *gin.Context) *models.ConfigRecord {
	rec, ok := cc.store.Get(c.Param("id"))
	if !ok || !services.CanAccess(middleware.GetCaller(c), rec) {
		c.JSON(http.StatusNotFound, models.Fail("not_found", "配置不存在"))
		return nil
	}
	return rec
}

// ListConfigs lists configurations visible to the caller
//
//	@Summary		List configurations
//	@Tags			Configs
//	@Produce		json
//	@Success		200	{object}	models.Response	"Configuration list"
//	@Router			/api/configs [get]
func (cc *ConfigController) ListConfigs(c *gin.Context) {
	caller := middleware.GetCaller(c)
	list := []models.ConfigRecord{}
	for _, rec := range cc.store.List() {
		if services.CanAccess(caller, &rec) {
			list = append(list, rec)
		}
	}
	c.JSON(http.StatusOK, models.OK(list))
}

func (cc *ConfigController) GetConfig(c *gin.Context) {
	rec := cc.accessible(c)
	if rec == nil {
		return
	}
	c.JSON(http.StatusOK, models.OK(rec))
}

// CreateConfig creates a configuration file
//
//	@Summary		Create configuration
//	@Description	普通用户只能为自己创建，管理员可以通过ownerId指定所有者
//	@Tags			Configs
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.CreateConfigRequest	true	"Create config request"
//	@Success		201		{object}	models.Response
//	@Failure		400		{object}	models.ErrorResponse
//	@Failure		403		{object}	models.ErrorResponse	"Tunnel limit reached"
//	@Router			/api/configs [post]
func (cc *ConfigController) CreateConfig(c *gin.Context) {
	var req models.CreateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "名称和配置内容不能为空")
		return
	}
	caller := middleware.GetCaller(c)
	owner := caller.ID
	if caller.IsAdmin() && req.OwnerID != "" {
		owner = req.OwnerID
	}

	rec, err := cc.store.Create(req.Name, owner, req.NodeID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.OK(rec))
}

// EditConfig overwrites the content of a stopped configuration
//
//	@Summary		Edit configuration
//	@Tags			Configs
//	@Param			id		path		string						true	"Config ID"
//	@Param			body	body		models.EditConfigRequest	true	"New content"
//	@Success		200		{object}	models.Response
//	@Failure		409		{object}	models.ErrorResponse	"Config is running"
//	@Router			/api/configs/{id} [put]
func (cc *ConfigController) EditConfig(c *gin.Context) {
	rec := cc.accessible(c)
	if rec == nil {
		return
	}
	var req models.EditConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "配置内容不能为空")
		return
	}
	updated, err := cc.store.Edit(rec.ID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.OK(updated))
}

func (cc *ConfigController) DeleteConfig(c *gin.Context) {
	rec := cc.accessible(c)
	if rec == nil {
		return
	}
	if !cc.store.Delete(rec.ID) {
		respondError(c, services.ErrConfigNotFound)
		return
	}
	c.JSON(http.StatusOK, &models.Response{Success: true, Message: "配置已删除"})
}

// StartConfig starts frpc for a configuration
//
//	@Summary		Start tunnel
//	@Tags			Configs
//	@Param			id	path		string	true	"Config ID"
//	@Success		200	{object}	models.Response
//	@Failure		500	{object}	models.ErrorResponse	"Spawn failed"
//	@Router			/api/configs/{id}/start [post]
func (cc *ConfigController) StartConfig(c *gin.Context) {
	rec := cc.accessible(c)
	if rec == nil {
		return
	}
	if !cc.frp.Start(rec.ID) {
		c.JSON(http.StatusInternalServerError, models.Fail("start_failed", "启动失败，请查看日志"))
		return
	}
	status, _ := cc.frp.Status(rec.ID)
	c.JSON(http.StatusOK, models.OK(models.StatusEvent{ID: rec.ID, Status: status}))
}

func (cc *ConfigController) StopConfig(c *gin.Context) {
	rec := cc.accessible(c)
	if rec == nil {
		return
	}
	if !cc.frp.Stop(rec.ID) {
		c.JSON(http.StatusInternalServerError, models.Fail("stop_failed", "停止失败"))
		return
	}
	c.JSON(http.StatusOK, models.OK(models.StatusEvent{ID: rec.ID, Status: models.StatusStopped}))
}

func (cc *ConfigController) GetLogs(c *gin.Context) {
	rec := cc.accessible(c)
	if rec == nil {
		return
	}
	c.JSON(http.StatusOK, models.OK(cc.frp.Logs(rec.ID)))
}

func (cc *ConfigController) GetContent(c *gin.Context) {
	rec := cc.accessible(c)
	if rec == nil {
		return
	}
	content, ok := cc.store.ReadContent(rec.ID)
	if !ok {
		respondError(c, services.ErrConfigNotFound)
		return
	}
	c.JSON(http.StatusOK, models.OK(gin.H{"id": rec.ID, "content": content}))
}

// GetProcess 返回运行中frpc的PID、命令行和启动时间
func (cc *ConfigController) GetProcess(c *gin.Context) {
	rec := cc.accessible(c)
	if rec == nil {
		return
	}
	detail, ok := cc.frp.Process(rec.ID)
	if !ok {
		c.JSON(http.StatusNotFound, models.Fail("not_running", "隧道未运行"))
		return
	}
	c.JSON(http.StatusOK, models.OK(detail))
}

// @Summary 重新扫描配置目录
// @Tags Configs
// @Success 200 {object} models.Response
// @Router /api/configs/reload [post]
func (cc *ConfigController) ReloadConfigs(c *gin.Context) {
	if err := cc.store.Reload(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.OK(cc.store.List()))
}
