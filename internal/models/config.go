package models

import "time"

/**
 * ConfigRecord is one frpc configuration file known to the manager
 * @property {string} id - Stable identifier, decimal form of TunnelID
 * @property {string} name - Display name
 * @property {string} ownerId - Owning user ID, empty for legacy records
 * @property {int} tunnelId - Sequential tunnel number
 * @property {int} nodeId - frps node the tunnel connects to, 0 means unassigned
 * @property {string} configPath - Path of the TOML file
 * @property {string} folderPath - Directory holding the TOML file
 * @property {RunStatus} status - stopped/running/error
 */
type ConfigRecord struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	OwnerID    string         `json:"ownerId,omitempty"`
	OwnerName  string         `json:"ownerName,omitempty"`
	TunnelID   int            `json:"tunnelId"`
	NodeID     int            `json:"nodeId"`
	ConfigPath string         `json:"configPath"`
	FolderPath string         `json:"folderPath"`
	Status     RunStatus      `json:"status"`
	Proxies    []ProxySummary `json:"proxies,omitempty"`
	RemotePort int            `json:"remotePort,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// ProxySummary is the subset of a [[proxies]] entry the manager reads.
type ProxySummary struct {
	Name       string `json:"name" toml:"name"`
	Type       string `json:"type" toml:"type"`
	LocalIP    string `json:"localIP" toml:"localIP"`
	LocalPort  int    `json:"localPort" toml:"localPort"`
	RemotePort int    `json:"remotePort" toml:"remotePort"`
}

type CreateConfigRequest struct {
	Name    string `json:"name" binding:"required"`
	Type    string `json:"type"`
	Content string `json:"content" binding:"required"`
	NodeID  int    `json:"nodeId"`
	OwnerID string `json:"ownerId"`
}

type EditConfigRequest struct {
	Content string `json:"content" binding:"required"`
}

// StatusEvent is pushed to observers on every status transition.
type StatusEvent struct {
	ID     string    `json:"id"`
	Status RunStatus `json:"status"`
}

// LogEvent carries one stdout/stderr chunk of a running frpc process.
type LogEvent struct {
	ID  string `json:"id"`
	Log string `json:"log"`
}
