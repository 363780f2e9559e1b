package services

import (
	"errors"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"frp-manager/internal/config"
	"frp-manager/internal/logger"
	"frp-manager/internal/models"
	"frp-manager/internal/proc"

	"golang.org/x/crypto/bcrypt"
)

type fakeProcess struct {
	pid        int
	outR, errR *io.PipeReader
	outW, errW *io.PipeWriter
	exit       chan int
	exitOnce   sync.Once
	terminated atomic.Int32
	termErr    error
}

func newFakeProcess(pid int) *fakeProcess {
	p := &fakeProcess{pid: pid, exit: make(chan int, 1)}
	p.outR, p.outW = io.Pipe()
	p.errR, p.errW = io.Pipe()
	return p
}

func (p *fakeProcess) Pid() int          { return p.pid }
func (p *fakeProcess) Stdout() io.Reader { return p.outR }
func (p *fakeProcess) Stderr() io.Reader { return p.errR }

func (p *fakeProcess) Wait() (int, error) {
	code := <-p.exit
	p.outW.Close()
	p.errW.Close()
	return code, nil
}

// Terminate only records the request, the test decides when the process exits
func (p *fakeProcess) Terminate() error {
	p.terminated.Add(1)
	return p.termErr
}

func (p *fakeProcess) Exit(code int) {
	p.exitOnce.Do(func() { p.exit <- code })
}

func (p *fakeProcess) WriteStdout(s string) { p.outW.Write([]byte(s)) }
func (p *fakeProcess) WriteStderr(s string) { p.errW.Write([]byte(s)) }

type recordedEvent struct {
	Name    string
	Payload interface{}
}

// RecordingNotifier keeps every emitted event in memory
type RecordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *RecordingNotifier) Emit(event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Name: event, Payload: payload})
}

func (r *RecordingNotifier) Events() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedEvent, len(r.events))
	copy(out, r.events)
	return out
}

type spawnCall struct {
	path string
	args []string
	dir  string
}

type fakeLauncher struct {
	mu       sync.Mutex
	calls    []spawnCall
	procs    []*fakeProcess
	failNext error
	nextPid  int
}

func (l *fakeLauncher) Spawn(path string, args []string, dir string) (proc.Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, spawnCall{path: path, args: args, dir: dir})
	if l.failNext != nil {
		err := l.failNext
		l.failNext = nil
		return nil, err
	}
	l.nextPid++
	p := newFakeProcess(1000 + l.nextPid)
	l.procs = append(l.procs, p)
	return p, nil
}

func (l *fakeLauncher) Spawns() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

func (l *fakeLauncher) Last() *fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.procs) == 0 {
		return nil
	}
	return l.procs[len(l.procs)-1]
}

func (l *fakeLauncher) LastCall() spawnCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[len(l.calls)-1]
}

var errSpawn = errors.New("exec: \"frpc\": executable file not found in $PATH")

type testEnv struct {
	dir      string
	users    *UserStore
	registry *ProcessRegistry
	store    *ConfigStore
	frp      *FrpService
	launcher *fakeLauncher
	events   *RecordingNotifier
	owner    *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger.InitWithWriter(io.Discard, "error")

	dir := t.TempDir()
	users, err := NewUserStore(filepath.Join(dir, "users.json"), 5)
	if err != nil {
		t.Fatalf("NewUserStore: %v", err)
	}
	users.SetHashCost(bcrypt.MinCost)
	owner, err := users.Create("alice", "secret", models.RoleUser, "")
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}

	registry := NewProcessRegistry()
	store := NewConfigStore(filepath.Join(dir, "configs"), users, registry)
	launcher := &fakeLauncher{}
	events := &RecordingNotifier{}
	frp := NewFrpService(&config.FrpConfig{Binary: "frpc", LogBufferChunks: 100}, store, registry, launcher, events)

	return &testEnv{
		dir:      dir,
		users:    users,
		registry: registry,
		store:    store,
		frp:      frp,
		launcher: launcher,
		events:   events,
		owner:    owner,
	}
}

const sampleConfig = `serverAddr = "127.0.0.1"
serverPort = 7000

[[proxies]]
name = "ssh"
type = "tcp"
localIP = "127.0.0.1"
localPort = 22
remotePort = 6000
`

func (e *testEnv) create(t *testing.T, name string) *models.ConfigRecord {
	t.Helper()
	rec, err := e.store.Create(name, e.owner.ID, 1, sampleConfig)
	if err != nil {
		t.Fatalf("Create(%s): %v", name, err)
	}
	return rec
}

func (e *testEnv) status(t *testing.T, id string) models.RunStatus {
	t.Helper()
	st, ok := e.frp.Status(id)
	if !ok {
		t.Fatalf("record %s not found", id)
	}
	return st
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
