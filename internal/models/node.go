package models

// Node is an frps server that tunnels can be assigned to.
type Node struct {
	NodeID       int    `mapstructure:"node_id" json:"nodeId"`
	Name         string `mapstructure:"name" json:"name"`
	ServerAddr   string `mapstructure:"server_addr" json:"server_addr"`
	ServerPort   int    `mapstructure:"server_port" json:"server_port"`
	Token        string `mapstructure:"token" json:"token,omitempty"`
	AllowedPorts []int  `mapstructure:"allowed_ports" json:"allowed_ports"`
}

// PortRange returns the inclusive allowed remote port range, ok=false when unset.
func (n *Node) PortRange() (int, int, bool) {
	if len(n.AllowedPorts) != 2 || n.AllowedPorts[0] <= 0 || n.AllowedPorts[1] < n.AllowedPorts[0] {
		return 0, 0, false
	}
	return n.AllowedPorts[0], n.AllowedPorts[1], true
}
