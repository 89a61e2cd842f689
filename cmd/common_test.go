package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/illarion/sealstore/internal/core"
	"github.com/illarion/sealstore/internal/crypto"
	"github.com/illarion/sealstore/internal/storage"
)

func writeConfig(t *testing.T, engine string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sealstore.yaml")
	yaml := fmt.Sprintf("dir: %s\nengine: %s\nencryption:\n  iterations: %d\n", filepath.Join(dir, "data"), engine, crypto.MinIterations)
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path, dir
}

func TestOpenPersistsAcrossSessions(t *testing.T) {
	for _, engine := range []string{"bolt", "badger"} {
		t.Run(engine, func(t *testing.T) {
			ctx := context.Background()
			path, dir := writeConfig(t, engine)

			s, err := Open(path)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if !s.Store.Set(ctx, "token", "abc123", core.SetOptions{Encrypt: true, Persistent: true}) {
				t.Fatal("Set failed")
			}
			if err := s.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}

			s, err = Open(path)
			if err != nil {
				t.Fatalf("reopen failed: %v", err)
			}
			defer s.Close()

			if got := core.GetValue(ctx, s.Store, "token", ""); got != "abc123" {
				t.Errorf("got %q, want abc123", got)
			}

			if _, err := os.Stat(filepath.Join(dir, "data")); err != nil {
				t.Errorf("data directory not created: %v", err)
			}
		})
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("engine: sqlite\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected error for unknown engine")
	}
}

func TestOpenMemoryEngine(t *testing.T) {
	path, dir := writeConfig(t, "memory")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if !s.Store.IsAvailable(context.Background()) {
		t.Error("memory store should be available")
	}
	if _, err := os.Stat(filepath.Join(dir, "data")); !os.IsNotExist(err) {
		t.Error("memory engine should not create a data directory")
	}
}

func TestCloseWritesMetricsTextfile(t *testing.T) {
	ctx := context.Background()
	path, dir := writeConfig(t, "memory")
	textfile := filepath.Join(dir, "sealstore.prom")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fmt.Fprintf(f, "metrics:\n  textfile: %s\n", textfile); err != nil {
		t.Fatal(err)
	}
	f.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !s.Store.Set(ctx, "k", "v", core.SetOptions{Persistent: true}) {
		t.Fatal("Set failed")
	}
	if _, ok := s.Store.Get(ctx, "missing"); ok {
		t.Fatal("unexpected hit")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatalf("metrics textfile not written: %v", err)
	}
	for _, want := range []string{
		`sealstore_operations_total{op="set",result="ok"} 1`,
		`sealstore_operations_total{op="get",result="miss"} 1`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics textfile missing %q:\n%s", want, data)
		}
	}
}

func TestCloseWithoutTextfile(t *testing.T) {
	path, dir := writeConfig(t, "memory")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if s.Metrics == nil {
		t.Fatal("session should carry metrics")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*.prom"))
	if len(matches) != 0 {
		t.Errorf("unexpected metrics files: %v", matches)
	}
}

func TestLastWrite(t *testing.T) {
	before := time.Now().Add(-time.Second)

	db, err := storage.OpenBolt(filepath.Join(t.TempDir(), BoltFile))
	if err != nil {
		t.Fatalf("OpenBolt failed: %v", err)
	}
	defer db.Close()
	if err := db.Set(context.Background(), "k", []byte("v")); err != nil {
		t.Fatal(err)
	}

	modified, ok := lastWrite(db)
	if !ok {
		t.Fatal("bolt should report its last write")
	}
	if modified.Before(before) {
		t.Errorf("last write looks stale: %v", modified)
	}

	if _, ok := lastWrite(storage.NewMemory()); ok {
		t.Error("memory backend does not track writes")
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"abc123"`, "abc123"},
		{`42`, "42"},
		{`{"dark":true}`, `{"dark":true}`},
		{`null`, ""},
	}
	for _, tt := range tests {
		if got := render(json.RawMessage(tt.in)); got != tt.want {
			t.Errorf("render(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDiskUsage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a"), make([]byte, 100), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "b"), make([]byte, 50), 0600); err != nil {
		t.Fatal(err)
	}

	if got, err := diskUsage(dir); err != nil || got != 150 {
		t.Errorf("diskUsage(dir) = %d, %v; want 150", got, err)
	}
	if got, err := diskUsage(filepath.Join(dir, "a")); err != nil || got != 100 {
		t.Errorf("diskUsage(file) = %d, %v; want 100", got, err)
	}
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		512:     "512 bytes",
		2048:    "2.0 KB",
		5 << 20: "5.0 MB",
		3 << 30: "3.0 GB",
	}
	for in, want := range tests {
		if got := formatSize(in); got != want {
			t.Errorf("formatSize(%d) = %q, want %q", in, got, want)
		}
	}
}
