package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"frp-manager/internal/config"
	"frp-manager/internal/logger"
	"frp-manager/internal/models"
	"frp-manager/internal/proc"
	"frp-manager/services"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// blockingProcess runs until Terminate is called
type blockingProcess struct {
	outR, errR *io.PipeReader
	outW, errW *io.PipeWriter
	done       chan struct{}
	once       sync.Once
}

func (p *blockingProcess) Pid() int          { return 4242 }
func (p *blockingProcess) Stdout() io.Reader { return p.outR }
func (p *blockingProcess) Stderr() io.Reader { return p.errR }

func (p *blockingProcess) Wait() (int, error) {
	<-p.done
	p.outW.Close()
	p.errW.Close()
	return -1, nil
}

func (p *blockingProcess) Terminate() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

type stubLauncher struct{}

func (stubLauncher) Spawn(path string, args []string, dir string) (proc.Process, error) {
	p := &blockingProcess{done: make(chan struct{})}
	p.outR, p.outW = io.Pipe()
	p.errR, p.errW = io.Pipe()
	return p, nil
}

const testContent = `serverAddr = "127.0.0.1"
serverPort = 7000

[[proxies]]
name = "ssh"
type = "tcp"
localIP = "127.0.0.1"
localPort = 22
remotePort = 6001
`

type apiEnv struct {
	t      *testing.T
	server *services.Server
	router *gin.Engine
	admin  string
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	logger.InitWithWriter(io.Discard, "error")
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Directory.Data = dir
	cfg.Frp.ConfigDir = filepath.Join(dir, "configs")
	cfg.Frp.Watch = false
	cfg.Auth.LoginBurst = 100
	cfg.Nodes = []models.Node{{NodeID: 1, Name: "edge", ServerAddr: "198.51.100.7", ServerPort: 7000, Token: "s3cret", AllowedPorts: []int{6001, 6003}}}

	server, err := services.NewServer(&cfg, stubLauncher{})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	server.Users.SetHashCost(bcrypt.MinCost)
	if err := server.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(server.Shutdown)

	r := gin.New()
	NewAPIController(server).RegisterRoutes(r)
	NewAuthController(server).RegisterRoutes(r)
	NewConfigController(server).RegisterRoutes(r)
	NewUserController(server).RegisterRoutes(r)
	NewNodeController(server).RegisterRoutes(r)
	NewWSController(server).RegisterRoutes(r)

	e := &apiEnv{t: t, server: server, router: r}
	e.admin = e.login("admin", "admin")
	return e
}

func (e *apiEnv) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var out map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func (e *apiEnv) login(username, password string) string {
	e.t.Helper()
	code, body := e.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": username, "password": password})
	if code != http.StatusOK {
		e.t.Fatalf("login %s: %d %v", username, code, body)
	}
	return body["data"].(map[string]interface{})["token"].(string)
}

func (e *apiEnv) createUser(username string) string {
	e.t.Helper()
	code, body := e.do(http.MethodPost, "/api/users", e.admin, gin.H{"username": username, "password": "pw"})
	if code != http.StatusCreated {
		e.t.Fatalf("create user %s: %d %v", username, code, body)
	}
	return body["data"].(map[string]interface{})["id"].(string)
}

func (e *apiEnv) createConfig(token, name string) string {
	e.t.Helper()
	code, body := e.do(http.MethodPost, "/api/configs", token, gin.H{"name": name, "content": testContent, "nodeId": 1})
	if code != http.StatusCreated {
		e.t.Fatalf("create config %s: %d %v", name, code, body)
	}
	return body["data"].(map[string]interface{})["id"].(string)
}

func TestHealthzAndLoginFailures(t *testing.T) {
	e := newAPIEnv(t)

	code, body := e.do(http.MethodGet, "/healthz", "", nil)
	if code != http.StatusOK || body["status"] != "UP" {
		t.Fatalf("healthz = %d %v", code, body)
	}

	if code, _ := e.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "admin", "password": "wrong"}); code != http.StatusUnauthorized {
		t.Errorf("wrong password = %d, want 401", code)
	}
	if code, _ := e.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "x", "password": "y"}); code != http.StatusForbidden {
		t.Errorf("register = %d, want 403", code)
	}
	if code, _ := e.do(http.MethodGet, "/api/configs", "", nil); code != http.StatusUnauthorized {
		t.Errorf("configs without token = %d, want 401", code)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	e := newAPIEnv(t)
	token := e.login("admin", "admin")

	if code, _ := e.do(http.MethodGet, "/api/auth/me", token, nil); code != http.StatusOK {
		t.Fatalf("me = %d", code)
	}
	if code, _ := e.do(http.MethodPost, "/api/auth/logout", token, nil); code != http.StatusOK {
		t.Fatalf("logout = %d", code)
	}
	if code, _ := e.do(http.MethodGet, "/api/auth/me", token, nil); code != http.StatusUnauthorized {
		t.Errorf("me after logout = %d, want 401", code)
	}
}

func TestConfigLifecycleOverHTTP(t *testing.T) {
	e := newAPIEnv(t)
	e.createUser("bob")
	bob := e.login("bob", "pw")

	id := e.createConfig(bob, "tun1")

	code, body := e.do(http.MethodPost, "/api/configs/"+id+"/start", bob, nil)
	if code != http.StatusOK {
		t.Fatalf("start = %d %v", code, body)
	}
	if status, _ := e.server.Frp.Status(id); status != models.StatusRunning {
		t.Fatalf("status = %s, want running", status)
	}

	code, body = e.do(http.MethodGet, "/api/configs/"+id+"/process", bob, nil)
	if code != http.StatusOK || body["data"].(map[string]interface{})["pid"] != float64(4242) {
		t.Errorf("process = %d %v", code, body)
	}

	if code, _ := e.do(http.MethodPut, "/api/configs/"+id, bob, gin.H{"content": testContent}); code != http.StatusConflict {
		t.Errorf("edit running = %d, want 409", code)
	}

	if code, _ := e.do(http.MethodPost, "/api/configs/"+id+"/stop", bob, nil); code != http.StatusOK {
		t.Fatalf("stop = %d", code)
	}
	if status, _ := e.server.Frp.Status(id); status != models.StatusStopped {
		t.Errorf("status = %s, want stopped", status)
	}
	if code, _ := e.do(http.MethodGet, "/api/configs/"+id+"/process", bob, nil); code != http.StatusNotFound {
		t.Errorf("process after stop = %d, want 404", code)
	}

	code, body = e.do(http.MethodGet, "/api/configs/"+id+"/content", bob, nil)
	if code != http.StatusOK || body["data"].(map[string]interface{})["content"] != testContent {
		t.Errorf("content = %d %v", code, body)
	}
	code, body = e.do(http.MethodGet, "/api/configs/"+id+"/logs", bob, nil)
	if code != http.StatusOK {
		t.Errorf("logs = %d", code)
	}

	if code, _ := e.do(http.MethodDelete, "/api/configs/"+id, bob, nil); code != http.StatusOK {
		t.Fatalf("delete = %d", code)
	}
	if code, _ := e.do(http.MethodGet, "/api/configs/"+id, bob, nil); code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", code)
	}
}

func TestConfigAccessIsolation(t *testing.T) {
	e := newAPIEnv(t)
	e.createUser("bob")
	e.createUser("carol")
	bob := e.login("bob", "pw")
	carol := e.login("carol", "pw")

	id := e.createConfig(bob, "bobs")

	if code, _ := e.do(http.MethodGet, "/api/configs/"+id, carol, nil); code != http.StatusNotFound {
		t.Errorf("foreign get = %d, want 404", code)
	}
	if code, _ := e.do(http.MethodPost, "/api/configs/"+id+"/start", carol, nil); code != http.StatusNotFound {
		t.Errorf("foreign start = %d, want 404", code)
	}

	_, body := e.do(http.MethodGet, "/api/configs", carol, nil)
	if list := body["data"].([]interface{}); len(list) != 0 {
		t.Errorf("carol sees %d configs, want 0", len(list))
	}
	_, body = e.do(http.MethodGet, "/api/configs", e.admin, nil)
	if list := body["data"].([]interface{}); len(list) != 1 {
		t.Errorf("admin sees %d configs, want 1", len(list))
	}
}

func TestTunnelLimitOverHTTP(t *testing.T) {
	e := newAPIEnv(t)
	bobID := e.createUser("bob")
	bob := e.login("bob", "pw")

	if code, _ := e.do(http.MethodPut, "/api/users/"+bobID+"/tunnel-limit", e.admin, gin.H{"tunnelLimit": 1}); code != http.StatusOK {
		t.Fatalf("set limit = %d", code)
	}
	e.createConfig(bob, "first")
	code, body := e.do(http.MethodPost, "/api/configs", bob, gin.H{"name": "second", "content": testContent})
	if code != http.StatusForbidden || body["code"] != "tunnel_limit" {
		t.Errorf("second create = %d %v, want 403 tunnel_limit", code, body)
	}
	if code, _ := e.do(http.MethodPut, "/api/users/"+bobID+"/tunnel-limit", e.admin, gin.H{"tunnelLimit": -1}); code != http.StatusBadRequest {
		t.Errorf("negative limit = %d, want 400", code)
	}
	if code, _ := e.do(http.MethodPut, "/api/users/"+bobID+"/tunnel-limit", e.admin, gin.H{"tunnelLimit": 0}); code != http.StatusBadRequest {
		t.Errorf("zero limit = %d, want 400", code)
	}
}

func TestUserAdministration(t *testing.T) {
	e := newAPIEnv(t)
	bobID := e.createUser("bob")
	bob := e.login("bob", "pw")

	if code, _ := e.do(http.MethodGet, "/api/users", bob, nil); code != http.StatusForbidden {
		t.Errorf("non-admin list users = %d, want 403", code)
	}
	if code, _ := e.do(http.MethodPost, "/api/users", e.admin, gin.H{"username": "bob", "password": "x"}); code != http.StatusConflict {
		t.Errorf("duplicate user = %d, want 409", code)
	}

	adminUser, _ := e.server.Users.FindByUsername("admin")
	if code, _ := e.do(http.MethodDelete, "/api/users/"+adminUser.ID, e.admin, nil); code != http.StatusBadRequest {
		t.Errorf("delete self = %d, want 400", code)
	}

	id := e.createConfig(bob, "owned")
	if code, _ := e.do(http.MethodDelete, "/api/users/"+bobID, e.admin, nil); code != http.StatusOK {
		t.Fatalf("delete bob = %d", code)
	}
	if _, ok := e.server.Store.Get(id); ok {
		t.Error("config of deleted user still listed")
	}
	if code, _ := e.do(http.MethodGet, "/api/auth/me", bob, nil); code != http.StatusUnauthorized {
		t.Errorf("deleted user's token = %d, want 401", code)
	}
}

func TestUpdateUserRequiresCurrentPassword(t *testing.T) {
	e := newAPIEnv(t)
	e.createUser("bob")
	bob := e.login("bob", "pw")

	if code, _ := e.do(http.MethodPut, "/api/auth/update-user", bob, gin.H{"currentPassword": "nope", "newPassword": "pw2"}); code != http.StatusUnauthorized {
		t.Errorf("wrong current password = %d, want 401", code)
	}
	code, body := e.do(http.MethodPut, "/api/auth/update-user", bob, gin.H{"currentPassword": "pw", "newUsername": "robert", "newPassword": "pw2"})
	if code != http.StatusOK {
		t.Fatalf("update = %d %v", code, body)
	}
	e.login("robert", "pw2")
}

func TestNoticeAndNodes(t *testing.T) {
	e := newAPIEnv(t)
	e.createUser("bob")
	bob := e.login("bob", "pw")

	_, body := e.do(http.MethodGet, "/api/auth/notice", "", nil)
	if body["data"].(map[string]interface{})["content"] != "" {
		t.Errorf("initial notice = %v", body)
	}
	if code, _ := e.do(http.MethodPost, "/api/auth/notice", bob, gin.H{"content": "hi"}); code != http.StatusForbidden {
		t.Errorf("non-admin notice = %d, want 403", code)
	}
	if code, _ := e.do(http.MethodPost, "/api/auth/notice", e.admin, gin.H{"content": "maintenance at 22:00"}); code != http.StatusOK {
		t.Fatalf("set notice = %d", code)
	}
	_, body = e.do(http.MethodGet, "/api/auth/notice", "", nil)
	if body["data"].(map[string]interface{})["content"] != "maintenance at 22:00" {
		t.Errorf("notice = %v", body)
	}

	e.createConfig(bob, "taken")
	code, body := e.do(http.MethodGet, "/api/nodes/1/free-port", bob, nil)
	if code != http.StatusOK || body["data"].(map[string]interface{})["port"] != float64(6002) {
		t.Errorf("free port = %d %v, want 6002", code, body)
	}
	if code, _ := e.do(http.MethodGet, "/api/nodes/9/free-port", bob, nil); code != http.StatusNotFound {
		t.Errorf("unknown node = %d, want 404", code)
	}

	_, body = e.do(http.MethodGet, "/api/nodes", bob, nil)
	node := body["data"].([]interface{})[0].(map[string]interface{})
	if _, leaked := node["token"]; leaked {
		t.Error("node token exposed")
	}

	if code, _ := e.do(http.MethodGet, "/api/templates/frpc?nodeId=1&name=web", bob, nil); code != http.StatusOK {
		t.Errorf("template = %d", code)
	}
	if code, _ := e.do(http.MethodGet, "/api/templates/bogus", bob, nil); code != http.StatusBadRequest {
		t.Errorf("bogus template = %d, want 400", code)
	}
}

func TestReloadIsAdminOnly(t *testing.T) {
	e := newAPIEnv(t)
	e.createUser("bob")
	bob := e.login("bob", "pw")

	if code, _ := e.do(http.MethodPost, "/api/configs/reload", bob, nil); code != http.StatusForbidden {
		t.Errorf("reload by user = %d, want 403", code)
	}
	if code, _ := e.do(http.MethodPost, "/api/configs/reload", e.admin, nil); code != http.StatusOK {
		t.Errorf("reload by admin = %d", code)
	}
}
