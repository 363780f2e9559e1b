package services

import (
	"errors"
	"strings"
	"testing"

	"frp-manager/internal/config"
	"frp-manager/internal/models"
)

func testNodes() []models.Node {
	return []models.Node{
		{NodeID: 1, Name: "hk", ServerAddr: "hk.example.com", ServerPort: 7000, Token: "s3cret", AllowedPorts: []int{6000, 6002}},
		{NodeID: 2, Name: "no-range", ServerAddr: "10.0.0.2", ServerPort: 7000},
	}
}

func TestSuggestPortSkipsUsedPorts(t *testing.T) {
	env := newTestEnv(t)
	nodes := NewNodeService(testNodes(), env.store)

	// sampleConfig uses remotePort 6000 on node 1
	first := env.create(t, "a")
	port, err := nodes.SuggestPort(1, "")
	if err != nil || port != 6001 {
		t.Fatalf("SuggestPort = %d, %v; want 6001", port, err)
	}
	// 编辑自身时不计算自己占用的端口
	if port, _ := nodes.SuggestPort(1, first.ID); port != 6000 {
		t.Errorf("SuggestPort excluding self = %d, want 6000", port)
	}

	env.store.Create("b", env.owner.ID, 1, strings.Replace(sampleConfig, "6000", "6001", 1))
	env.store.Create("c", env.owner.ID, 1, strings.Replace(sampleConfig, "6000", "6002", 1))
	if _, err := nodes.SuggestPort(1, ""); !errors.Is(err, ErrNoFreePort) {
		t.Errorf("full node err = %v", err)
	}
	if _, err := nodes.SuggestPort(2, ""); !errors.Is(err, ErrNoFreePort) {
		t.Errorf("node without range err = %v", err)
	}
	if _, err := nodes.SuggestPort(9, ""); !errors.Is(err, config.ErrNodeNotFound) {
		t.Errorf("unknown node err = %v", err)
	}
}

func TestFrpcTemplateForNode(t *testing.T) {
	env := newTestEnv(t)
	nodes := NewNodeService(testNodes(), env.store)

	text, err := nodes.Template("frpc", 1, "web")
	if err != nil {
		t.Fatalf("Template: %v", err)
	}
	for _, want := range []string{"hk.example.com", "serverPort = 7000", "s3cret", "[[proxies]]", "remotePort = 6000"} {
		if !strings.Contains(text, want) {
			t.Errorf("template missing %q:\n%s", want, text)
		}
	}
	proxies, err := ParseProxies([]byte(text))
	if err != nil || len(proxies) != 1 || proxies[0].LocalPort != 22 {
		t.Errorf("template does not parse back: %+v, %v", proxies, err)
	}

	if _, err := nodes.Template("frpc", 9, ""); !errors.Is(err, config.ErrNodeNotFound) {
		t.Errorf("unknown node err = %v", err)
	}
	if _, err := nodes.Template("nginx", 0, ""); !errors.Is(err, ErrUnknownTemplate) {
		t.Errorf("unknown type err = %v", err)
	}
	if text, err := nodes.Template("frps", 0, ""); err != nil || !strings.Contains(text, "bindPort = 7000") {
		t.Errorf("frps template = %q, %v", text, err)
	}
}

func TestNodeListHidesToken(t *testing.T) {
	nodes := NewNodeService(testNodes(), nil)
	for _, n := range nodes.List() {
		if n.Token != "" {
			t.Errorf("node %d exposes its token", n.NodeID)
		}
	}
	if n, _ := nodes.Find(1); n.Token != "s3cret" {
		t.Error("Find should keep the token")
	}
}
