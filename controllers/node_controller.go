package controllers

import (
	"net/http"
	"strconv"

	"frp-manager/internal/middleware"
	"frp-manager/internal/models"
	"frp-manager/services"

	"github.com/gin-gonic/gin"
)

type NodeController struct {
	nodes *services.NodeService
	auth  *services.AuthService
}

func NewNodeController(server *services.Server) *NodeController {
	return &NodeController{nodes: server.Nodes, auth: server.Auth}
}

func (nc *NodeController) RegisterRoutes(r *gin.Engine) {
	authed := r.Group("/api", middleware.Auth(nc.auth))
	authed.GET("/nodes", nc.ListNodes)
	authed.GET("/nodes/:nodeId/free-port", nc.FreePort)
	authed.GET("/templates/:type", nc.GetTemplate)
}

func (nc *NodeController) ListNodes(c *gin.Context) {
	c.JSON(http.StatusOK, models.OK(nc.nodes.List()))
}

// FreePort 返回节点上第一个空闲的远程端口，excludeId用于编辑已有配置
func (nc *NodeController) FreePort(c *gin.Context) {
	nodeID, err := strconv.Atoi(c.Param("nodeId"))
	if err != nil {
		badRequest(c, "节点ID必须是整数")
		return
	}
	port, err := nc.nodes.SuggestPort(nodeID, c.Query("excludeId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.OK(gin.H{"nodeId": nodeID, "port": port}))
}

func (nc *NodeController) GetTemplate(c *gin.Context) {
	nodeID := 0
	if s := c.Query("nodeId"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			badRequest(c, "节点ID必须是整数")
			return
		}
		nodeID = n
	}
	content, err := nc.nodes.Template(c.Param("type"), nodeID, c.Query("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.OK(gin.H{"type": c.Param("type"), "content": content}))
}
