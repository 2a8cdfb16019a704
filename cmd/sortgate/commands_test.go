package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/sortgate/internal/config"
	"github.com/alfredjeanlab/sortgate/internal/events"
	"github.com/alfredjeanlab/sortgate/internal/gateway"
	"github.com/alfredjeanlab/sortgate/internal/model"
	"github.com/alfredjeanlab/sortgate/internal/pending"
	"github.com/alfredjeanlab/sortgate/internal/server"
	"github.com/alfredjeanlab/sortgate/internal/snapshot"
	"github.com/alfredjeanlab/sortgate/internal/store/storetest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startGateway serves a real gateway over the in-memory store.
func startGateway(t *testing.T) (*storetest.Accessor, string) {
	t.Helper()
	dir := t.TempDir()
	logger := quietLogger()
	db := storetest.New()
	db.SetItems(model.Record{"id": int64(1), "name": "Bottle"})
	db.SetTrashBins(model.Record{"id": int64(3), "name": "Glass"})
	db.SetBinItems(3, "Bottle")
	snap := snapshot.Open(filepath.Join(dir, "cache.json"), snapshot.WithLogger(logger))
	queue := pending.Open(filepath.Join(dir, "pending_posts.json"), pending.WithLogger(logger))
	gw := gateway.New(db, snap, queue, gateway.WithLogger(logger), gateway.WithTimeout(time.Second))
	srv := httptest.NewServer(server.New(gw, logger).NewHTTPHandler())
	t.Cleanup(srv.Close)
	return db, srv.URL
}

// run executes the root command with args and returns its output.
func run(t *testing.T, url string, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--http-url", url, "--no-color"}, args...))
	t.Cleanup(func() {
		jsonOutput = false
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestCommands_SendThenStatus(t *testing.T) {
	db, url := startGateway(t)

	out, err := run(t, url, "send", "Glass", "Bottle")
	if err != nil {
		t.Fatalf("send: %v\n%s", err, out)
	}
	if !strings.Contains(out, "recorded Bottle at Glass, selected 1 times") {
		t.Errorf("send output = %q", out)
	}

	db.SetDown(true)
	out, err = run(t, url, "send", "Glass", "Bottle", "--dirty")
	if err != nil {
		t.Fatalf("send while down: %v\n%s", err, out)
	}
	if !strings.Contains(out, "queued Bottle at Glass") {
		t.Errorf("send output = %q", out)
	}

	out, err = run(t, url, "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	if !strings.Contains(out, "offline") || !strings.Contains(out, "Pending posts: 1") {
		t.Errorf("status output = %q", out)
	}
}

func TestCommands_ItemsJSON(t *testing.T) {
	_, url := startGateway(t)

	out, err := run(t, url, "--json", "items")
	if err != nil {
		t.Fatalf("items: %v\n%s", err, out)
	}
	var resp struct {
		Items  []model.Record `json:"items"`
		Source string         `json:"source"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(resp.Items) != 1 || resp.Source != "database" {
		t.Errorf("unexpected items response: %+v", resp)
	}
}

func TestCommands_BinItems(t *testing.T) {
	_, url := startGateway(t)

	out, err := run(t, url, "bin-items", "3")
	if err != nil {
		t.Fatalf("bin-items: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Bottle\n") || !strings.Contains(out, "1 items in bin 3 from database") {
		t.Errorf("bin-items output = %q", out)
	}

	if _, err := run(t, url, "bin-items", "abc"); err == nil {
		t.Error("expected error for non-integer bin id")
	}
}

func TestCommands_SyncAndHealth(t *testing.T) {
	db, url := startGateway(t)

	out, err := run(t, url, "health")
	if err != nil || !strings.Contains(out, "Health: ok") {
		t.Fatalf("health: %v\n%s", err, out)
	}

	db.SetDown(true)
	out, err = run(t, url, "sync")
	if err == nil {
		t.Fatalf("expected sync to fail while the database is down:\n%s", out)
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("sync error = %v, want 503", err)
	}

	db.SetDown(false)
	out, err = run(t, url, "sync")
	if err != nil {
		t.Fatalf("sync: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Sync completed successfully") || !strings.Contains(out, "Items:         1") {
		t.Errorf("sync output = %q", out)
	}
}

func TestCommands_SendValidates(t *testing.T) {
	_, url := startGateway(t)

	if _, err := run(t, url, "send", "Glass", strings.Repeat("x", 256)); err == nil {
		t.Error("expected validation error for an overlong item name")
	}
}

func TestStoreTables(t *testing.T) {
	cfg := config.Default()
	cfg.ItemsTable = "catalog"
	tables := storeTables(cfg)
	if tables.Items != "catalog" || tables.TrashBins != "trashBins" || tables.Selections != "selected_at_location" {
		t.Errorf("unexpected tables: %+v", tables)
	}
}

func TestNewPublisherFallsBackToNoop(t *testing.T) {
	cfg := config.Default()
	if _, ok := newPublisher(cfg, quietLogger()).(*events.NoopPublisher); !ok {
		t.Error("expected NoopPublisher without a NATS URL")
	}

	cfg.NATSURL = "nats://127.0.0.1:1"
	if _, ok := newPublisher(cfg, quietLogger()).(*events.NoopPublisher); !ok {
		t.Error("expected NoopPublisher when NATS is unreachable")
	}
}

func TestNewExportSchedulerDisabled(t *testing.T) {
	dir := t.TempDir()
	snap := snapshot.Open(filepath.Join(dir, "cache.json"))
	queue := pending.Open(filepath.Join(dir, "pending_posts.json"))

	cfg := config.Default()
	if s := newExportScheduler(t.Context(), cfg, snap, queue, quietLogger()); s != nil {
		t.Error("expected no scheduler with a zero interval")
	}

	cfg.ExportInterval = time.Minute
	if s := newExportScheduler(t.Context(), cfg, snap, queue, quietLogger()); s != nil {
		t.Error("expected no scheduler without a bucket")
	}
}
