package config

import (
	"testing"
	"time"

	"frp-manager/internal/models"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Server.Address != ":3001" || cfg.Server.Mode != "release" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour || cfg.Auth.DefaultTunnelLimit != 5 {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Frp.Binary != "frpc" || len(cfg.Frp.Args) != 2 || cfg.Frp.LogBufferChunks != 1000 {
		t.Errorf("frp = %+v", cfg.Frp)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("FRPM_SERVER_ADDRESS", ":9999")
	t.Setenv("FRPM_AUTH_TOKEN_TTL", "2h")
	t.Setenv("FRPM_FRP_BINARY", "/opt/frp/frpc")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Address != ":9999" {
		t.Errorf("address = %q", cfg.Server.Address)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("token ttl = %v", cfg.Auth.TokenTTL)
	}
	if cfg.Frp.Binary != "/opt/frp/frpc" {
		t.Errorf("binary = %q", cfg.Frp.Binary)
	}
	if !cfg.Frp.Watch {
		t.Error("watch should default to true")
	}
}

func TestFindNode(t *testing.T) {
	cfg := AppConfig{Nodes: []models.Node{{NodeID: 1, Name: "a"}, {NodeID: 7, Name: "b"}}}
	n, err := cfg.FindNode(7)
	if err != nil || n.Name != "b" {
		t.Errorf("FindNode(7) = %v, %v", n, err)
	}
	if _, err := cfg.FindNode(3); err != ErrNodeNotFound {
		t.Errorf("FindNode(3) err = %v", err)
	}
}
