package services

import (
	"os"
	"reflect"
	"strconv"
	"testing"
)

func TestLogRingKeepsNewestChunks(t *testing.T) {
	r := newLogRing(3)
	if got := r.Snapshot(); len(got) != 0 {
		t.Fatalf("empty ring snapshot = %q", got)
	}
	for i := 1; i <= 5; i++ {
		r.Append(strconv.Itoa(i))
	}
	if got, want := r.Snapshot(), []string{"3", "4", "5"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Snapshot = %q, want %q", got, want)
	}
	if r.Len() != 3 {
		t.Errorf("Len = %d", r.Len())
	}
}

func TestLogBufferBoundFromConfig(t *testing.T) {
	env := newTestEnv(t)
	env.frp.bufferChunks = 2
	rec := env.create(t, "web")
	env.frp.Start(rec.ID)
	p := env.launcher.Last()

	for _, s := range []string{"a", "b", "c"} {
		p.WriteStdout(s)
	}
	waitFor(t, "ring to hold the last two chunks", func() bool {
		return reflect.DeepEqual(env.frp.Logs(rec.ID), []string{"b", "c"})
	})
	env.frp.Stop(rec.ID)
	p.Exit(0)
}

func TestRegistryRemoveIf(t *testing.T) {
	reg := NewProcessRegistry()
	old := newProcessHandle("1", newFakeProcess(1), 10)
	cur := newProcessHandle("1", newFakeProcess(2), 10)

	reg.Put("1", cur)
	if reg.RemoveIf("1", old) {
		t.Fatal("RemoveIf removed a different handle")
	}
	if h, ok := reg.Get("1"); !ok || h != cur {
		t.Fatal("current handle lost")
	}
	if !reg.RemoveIf("1", cur) {
		t.Fatal("RemoveIf did not remove the matching handle")
	}
	if reg.Len() != 0 {
		t.Errorf("Len = %d", reg.Len())
	}
	if reg.Remove("1") != nil {
		t.Error("Remove of a missing id should return nil")
	}
}

func TestProcessDetailReportsLiveness(t *testing.T) {
	self := newProcessHandle("1", newFakeProcess(os.Getpid()), 10)
	if d := self.GetDetail(); !d.Alive || d.Pid != os.Getpid() || d.ConfigID != "1" {
		t.Errorf("detail for live pid = %+v", d)
	}
	gone := newProcessHandle("2", newFakeProcess(0), 10)
	if gone.GetDetail().Alive {
		t.Error("pid 0 reported alive")
	}
}
