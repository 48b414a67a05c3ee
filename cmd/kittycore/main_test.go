package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"kittycore/internal/events"
	"kittycore/pkg/domain"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("KITTYCORE_STORAGE_DRIVER", "sqlite")
	t.Setenv("KITTYCORE_SQLITE_PATH", filepath.Join(dir, "kitties.db"))
	t.Setenv("KITTYCORE_BLOB_DRIVER", "fs")
	t.Setenv("KITTYCORE_BLOB_FS_ROOT", filepath.Join(dir, "archive"))
	t.Setenv("KITTYCORE_LOG_LEVEL", "debug")
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := cli(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func decodeLines[T any](t *testing.T, out string) []T {
	t.Helper()
	var items []T
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var item T
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		items = append(items, item)
	}
	return items
}

func TestCLIUsage(t *testing.T) {
	code, _, stderr := runCLI(t)
	if code != 2 || !strings.Contains(stderr, "usage") {
		t.Fatalf("expected usage exit 2, got %d %q", code, stderr)
	}
	setupEnv(t)
	if code, _, _ := runCLI(t, "breed"); code != 2 {
		t.Fatalf("expected exit 2 for unknown command, got %d", code)
	}
	if code, _, _ := runCLI(t, "inspect", "-bogus"); code != 2 {
		t.Fatalf("expected exit 2 for bad flag, got %d", code)
	}
	if code, _, _ := runCLI(t, "inspect", "-h"); code != 0 {
		t.Fatalf("expected exit 0 for help, got %d", code)
	}
}

func TestCLIConfigError(t *testing.T) {
	t.Setenv("KITTYCORE_STORAGE_DRIVER", "redis")
	code, _, stderr := runCLI(t, "demo")
	if code != 1 || !strings.Contains(stderr, "config") {
		t.Fatalf("expected config failure, got %d %q", code, stderr)
	}
}

func TestCLIDemo(t *testing.T) {
	setupEnv(t)
	code, stdout, stderr := runCLI(t, "demo", "-trace")
	if code != 0 {
		t.Fatalf("demo failed with %d: %s", code, stderr)
	}
	envelopes := decodeLines[events.Envelope](t, stdout)
	var kinds []domain.EventKind
	for _, env := range envelopes {
		if env.ID == "" {
			t.Fatalf("envelope without id: %+v", env)
		}
		kinds = append(kinds, env.Event.Kind)
	}
	want := []domain.EventKind{domain.EventCreated, domain.EventPriceSet, domain.EventSold}
	if len(kinds) != len(want) {
		t.Fatalf("expected events %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, kinds)
		}
	}
	sold := envelopes[2].Event
	if sold.From != seller || sold.To != buyer || sold.Price == nil || *sold.Price != 100 {
		t.Fatalf("unexpected sold event %+v", sold)
	}
	for _, fragment := range []string{"transfer_to_self", "price_too_low", "demo complete", `"operation":"buy_kitty"`} {
		if !strings.Contains(stderr, fragment) {
			t.Fatalf("expected %q in stderr: %s", fragment, stderr)
		}
	}

	code, stdout, stderr = runCLI(t, "inspect", "-owner", "bob")
	if code != 0 {
		t.Fatalf("inspect failed: %s", stderr)
	}
	views := decodeLines[ownedView](t, stdout)
	if len(views) != 1 || len(views[0].Kitties) != 1 || views[0].Kitties[0].Price != nil {
		t.Fatalf("unexpected inspect output %s", stdout)
	}
}

func TestCLIArchiveRestore(t *testing.T) {
	setupEnv(t)
	if code, _, stderr := runCLI(t, "demo"); code != 0 {
		t.Fatalf("demo: %s", stderr)
	}
	code, stdout, stderr := runCLI(t, "archive")
	if code != 0 {
		t.Fatalf("archive failed: %s", stderr)
	}
	var info struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal([]byte(stdout), &info); err != nil || !strings.HasPrefix(info.Key, "snapshots/") {
		t.Fatalf("unexpected archive output %q: %v", stdout, err)
	}

	// A second demo adds a kitty that the restore must roll back.
	if code, _, stderr := runCLI(t, "demo"); code != 0 {
		t.Fatalf("second demo: %s", stderr)
	}
	code, _, stderr = runCLI(t, "restore")
	if code != 0 {
		t.Fatalf("restore failed: %s", stderr)
	}
	code, stdout, _ = runCLI(t, "inspect")
	if code != 0 {
		t.Fatalf("inspect failed")
	}
	all := decodeLines[[]domain.Kitty](t, stdout)
	if len(all) != 1 || len(all[0]) != 1 {
		t.Fatalf("expected one kitty after restore, got %s", stdout)
	}

	if code, _, _ := runCLI(t, "restore", "-key", "snapshots/missing.json"); code != 1 {
		t.Fatalf("expected failure for missing key")
	}
}

func TestMainUsesExitFunc(t *testing.T) {
	var got int
	prev := exitFunc
	exitFunc = func(code int) { got = code }
	t.Cleanup(func() { exitFunc = prev })

	t.Setenv("KITTYCORE_STORAGE_DRIVER", "redis")
	main()
	if got == 0 {
		t.Fatalf("expected non-zero exit code")
	}
}
