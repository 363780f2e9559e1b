package rpc

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"

	"frp-manager/internal/logger"
)

func init() {
	logger.InitWithWriter(io.Discard, "error")
}

func TestDefaultHTTPConfig(t *testing.T) {
	cases := []struct {
		listen, network, address, base string
	}{
		{":3001", "tcp", "127.0.0.1:3001", "http://127.0.0.1:3001"},
		{"0.0.0.0:8080", "tcp", "0.0.0.0:8080", "http://0.0.0.0:8080"},
		{"", "tcp", "127.0.0.1:3001", "http://127.0.0.1:3001"},
		{"unix:/run/frpm.sock", "unix", "/run/frpm.sock", "http://localhost"},
	}
	for _, c := range cases {
		cfg := DefaultHTTPConfig(c.listen)
		if cfg.Network != c.network || cfg.Address != c.address || cfg.BaseURL != c.base {
			t.Errorf("DefaultHTTPConfig(%q) = %+v", c.listen, cfg)
		}
	}
}

/**
 * Test HTTP client against a mock server
 * @description
 * - 校验Bearer token、JSON请求体和data解析
 * - 错误响应的message写入HTTPResponse.Error
 */
func TestHTTPClientWithMockServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer tkn" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"code":"unauthorized","message":"no token"}`))
			return
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/configs":
			w.Write([]byte(`{"success":true,"data":[{"id":"1","name":"tun1"}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/configs/1/start":
			w.Write([]byte(`{"success":true,"data":{"id":"1","status":"running"}}`))
		case r.Method == http.MethodPut && r.URL.Path == "/api/configs/1":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			w.Write([]byte(`{"success":true,"data":{"content":"` + body["content"] + `"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false,"code":"not_found","message":"配置不存在"}`))
		}
	}))
	defer server.Close()

	cfg := DefaultHTTPConfig(server.Listener.Addr().String())
	cfg.Token = "tkn"
	client := NewHTTPClient(cfg)
	defer client.Close()

	resp, err := client.Get("/api/configs", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var list []map[string]string
	if err := resp.Decode(&list); err != nil || len(list) != 1 || list[0]["name"] != "tun1" {
		t.Errorf("list = %v, err %v", list, err)
	}

	resp, err = client.Post("/api/configs/1/start", nil)
	if err != nil || !resp.OK() {
		t.Fatalf("Post: %v %+v", err, resp)
	}

	resp, err = client.Put("/api/configs/1", map[string]string{"content": "x"})
	var edited map[string]string
	if err != nil || resp.Decode(&edited) != nil || edited["content"] != "x" {
		t.Errorf("Put = %v %v", edited, err)
	}

	resp, err = client.Delete("/api/configs/9")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound || resp.Error != "配置不存在" {
		t.Errorf("Delete = %d %q", resp.StatusCode, resp.Error)
	}
	if err := resp.Decode(nil); err == nil {
		t.Error("Decode of a 404 should fail")
	}

	anon := NewHTTPClient(DefaultHTTPConfig(server.Listener.Addr().String()))
	resp, err = anon.Get("/api/configs", map[string]interface{}{"owner": 1})
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous = %v %+v", err, resp)
	}
}

func TestHTTPClientOverUnixSocket(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix sockets not available")
	}
	sock := filepath.Join(t.TempDir(), "frpm.sock")
	ln, err := net.Listen("unix", sock)
	if err != nil {
		t.Skipf("listen unix: %v", err)
	}
	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":"pong"}`))
	}))
	server.Listener.Close()
	server.Listener = ln
	server.Start()
	defer server.Close()

	client := NewHTTPClient(DefaultHTTPConfig("unix:" + sock))
	resp, err := client.Get("/healthz", nil)
	if err != nil {
		t.Fatalf("Get over unix socket: %v", err)
	}
	var got string
	if err := resp.Decode(&got); err != nil || got != "pong" {
		t.Errorf("got %q, err %v", got, err)
	}
}
