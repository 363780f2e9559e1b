package controllers

import (
	"net/http"

	"frp-manager/internal/logger"
	"frp-manager/internal/middleware"
	"frp-manager/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// 前端和接口可能不同源部署
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSController 推送frp-status/frp-log事件
type WSController struct {
	hub  *services.WSHub
	auth *services.AuthService
}

func NewWSController(server *services.Server) *WSController {
	return &WSController{hub: server.Hub, auth: server.Auth}
}

func (wc *WSController) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", middleware.Auth(wc.auth), wc.Serve)
}

func (wc *WSController) Serve(c *gin.Context) {
	caller := middleware.GetCaller(c)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("Websocket upgrade failed: %v", err)
		return
	}
	wc.hub.Serve(conn, *caller)
}
