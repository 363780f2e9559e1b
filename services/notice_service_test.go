package services

import (
	"path/filepath"
	"testing"
)

func TestNoticeRoundTrip(t *testing.T) {
	n := NewNoticeService(filepath.Join(t.TempDir(), "data", "notice.md"))
	if got, err := n.Get(); err != nil || got != "" {
		t.Fatalf("missing notice = %q, %v", got, err)
	}
	if err := n.Set("# 维护通知\n"); err != nil {
		t.Fatal(err)
	}
	if got, _ := n.Get(); got != "# 维护通知\n" {
		t.Errorf("Get = %q", got)
	}
}
