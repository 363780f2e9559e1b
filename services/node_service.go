package services

import (
	"errors"
	"fmt"

	"frp-manager/internal/config"
	"frp-manager/internal/models"

	"github.com/pelletier/go-toml/v2"
)

var (
	ErrNoFreePort      = errors.New("no free port on node")
	ErrUnknownTemplate = errors.New("unknown template type")
)

type frpcAuth struct {
	Method string `toml:"method"`
	Token  string `toml:"token"`
}

type frpcProxy struct {
	Name       string `toml:"name"`
	Type       string `toml:"type"`
	LocalIP    string `toml:"localIP"`
	LocalPort  int    `toml:"localPort"`
	RemotePort int    `toml:"remotePort"`
}

type frpcTemplate struct {
	ServerAddr string      `toml:"serverAddr"`
	ServerPort int         `toml:"serverPort"`
	Auth       *frpcAuth   `toml:"auth,omitempty"`
	Proxies    []frpcProxy `toml:"proxies"`
}

type frpsTemplate struct {
	BindAddr  string   `toml:"bindAddr"`
	BindPort  int      `toml:"bindPort"`
	Auth      frpcAuth `toml:"auth"`
	WebServer struct {
		Addr     string `toml:"addr"`
		Port     int    `toml:"port"`
		User     string `toml:"user"`
		Password string `toml:"password"`
	} `toml:"webServer"`
}

/**
 * NodeService frps节点目录
 * @property {[]models.Node} nodes - 配置文件中的节点列表
 * @property {*ConfigStore} store - 用于计算已占用的远程端口
 */
type NodeService struct {
	nodes []models.Node
	store *ConfigStore
}

func NewNodeService(nodes []models.Node, store *ConfigStore) *NodeService {
	return &NodeService{nodes: nodes, store: store}
}

// List 返回节点列表，不包含token
func (n *NodeService) List() []models.Node {
	out := make([]models.Node, len(n.nodes))
	for i, node := range n.nodes {
		node.Token = ""
		out[i] = node
	}
	return out
}

func (n *NodeService) Find(nodeID int) (*models.Node, error) {
	for i := range n.nodes {
		if n.nodes[i].NodeID == nodeID {
			node := n.nodes[i]
			return &node, nil
		}
	}
	return nil, config.ErrNodeNotFound
}

/**
 * Template 生成配置模板
 * @param {string} kind - frpc/frps
 * @param {int} nodeID - frpc模板使用的节点，0表示本地默认值
 * @param {string} name - 代理名称，为空时为ssh
 * @returns {string} TOML文本
 * @description
 * - frpc模板的remotePort取节点上第一个空闲端口
 */
func (n *NodeService) Template(kind string, nodeID int, name string) (string, error) {
	switch kind {
	case "frpc":
		return n.frpcTemplate(nodeID, name)
	case "frps":
		tpl := frpsTemplate{BindAddr: "0.0.0.0", BindPort: 7000}
		tpl.Auth = frpcAuth{Method: "token", Token: "12345678"}
		tpl.WebServer.Addr = "0.0.0.0"
		tpl.WebServer.Port = 7500
		tpl.WebServer.User = "admin"
		tpl.WebServer.Password = "admin"
		data, err := toml.Marshal(tpl)
		if err != nil {
			return "", err
		}
		return "# frps.toml\n" + string(data), nil
	default:
		return "", ErrUnknownTemplate
	}
}

func (n *NodeService) frpcTemplate(nodeID int, name string) (string, error) {
	if name == "" {
		name = "ssh"
	}
	tpl := frpcTemplate{
		ServerAddr: "127.0.0.1",
		ServerPort: 7000,
		Proxies: []frpcProxy{{
			Name:       name,
			Type:       "tcp",
			LocalIP:    "127.0.0.1",
			LocalPort:  22,
			RemotePort: 6000,
		}},
	}
	if nodeID != 0 {
		node, err := n.Find(nodeID)
		if err != nil {
			return "", err
		}
		tpl.ServerAddr = node.ServerAddr
		tpl.ServerPort = node.ServerPort
		if node.Token != "" {
			tpl.Auth = &frpcAuth{Method: "token", Token: node.Token}
		}
		if port, err := n.SuggestPort(nodeID, ""); err == nil {
			tpl.Proxies[0].RemotePort = port
		}
	}
	data, err := toml.Marshal(tpl)
	if err != nil {
		return "", err
	}
	return "# frpc.toml\n" + string(data), nil
}

/**
 * SuggestPort 找节点上第一个未被占用的远程端口
 * @param {int} nodeID - 节点ID
 * @param {string} excludeID - 计算时忽略的配置，编辑配置时传入自身
 * @returns {int} 端口
 * @returns {error} ErrNodeNotFound/ErrNoFreePort
 */
func (n *NodeService) SuggestPort(nodeID int, excludeID string) (int, error) {
	node, err := n.Find(nodeID)
	if err != nil {
		return 0, err
	}
	start, end, ok := node.PortRange()
	if !ok {
		return 0, fmt.Errorf("%w: node %d has no allowed_ports", ErrNoFreePort, nodeID)
	}

	used := make(map[int]struct{})
	for _, rec := range n.store.List() {
		if rec.NodeID != nodeID || rec.ID == excludeID {
			continue
		}
		for _, p := range rec.Proxies {
			if p.RemotePort > 0 {
				used[p.RemotePort] = struct{}{}
			}
		}
	}
	for port := start; port <= end; port++ {
		if _, taken := used[port]; !taken {
			return port, nil
		}
	}
	return 0, ErrNoFreePort
}
