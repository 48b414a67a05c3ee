// Command kittycore drives the kitty registry from the command line: it
// replays a marketplace scenario and archives or restores registry snapshots.
//
// Usage:
//
//	kittycore demo [-trace]
//	kittycore archive
//	kittycore restore [-key snapshots/...json]
//	kittycore inspect [-owner account]
//
// Settings come from KITTYCORE_* environment variables.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"kittycore/internal/archive"
	"kittycore/internal/blob"
	"kittycore/internal/core"
	"kittycore/internal/platform/config"
	"kittycore/internal/platform/logger"
)

var exitFunc = os.Exit

const usage = "usage: kittycore <demo|archive|restore|inspect> [flags]"

type app struct {
	cfg    config.Config
	log    *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func main() {
	code := cli(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, usage)
		return 2
	}
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	log, err := logger.NewWithWriter(stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "logger: %v\n", err)
		return 1
	}
	a := &app{cfg: cfg, log: log, stdout: stdout, stderr: stderr}

	var run func(context.Context, []string) error
	switch args[0] {
	case "demo":
		run = a.demo
	case "archive":
		run = a.archive
	case "restore":
		run = a.restore
	case "inspect":
		run = a.inspect
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n%s\n", args[0], usage)
		return 2
	}
	if err := run(ctx, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		var usageErr usageError
		if errors.As(err, &usageErr) {
			return 2
		}
		log.Error("command failed", "command", args[0], "error", err)
		return 1
	}
	return 0
}

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usageError{err: err}
	}
	return nil
}

// openStore opens the configured registry backend. The returned function
// releases it.
func (a *app) openStore(ctx context.Context) (core.PersistentStore, func(), error) {
	store, err := core.OpenPersistentStore(ctx, a.cfg.StorageOptions(), core.NewDefaultRulesEngine())
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	release := func() {
		if closer, ok := store.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				a.log.Warn("close storage", "error", err)
			}
		}
	}
	return store, release, nil
}

func (a *app) archiver(ctx context.Context) (*archive.Archiver, error) {
	blobs, err := blob.Open(ctx, a.cfg.BlobStoreConfig())
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	return archive.New(blobs), nil
}

func (a *app) archive(ctx context.Context, args []string) error {
	if err := parse(a.flags("archive"), args); err != nil {
		return err
	}
	store, release, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer release()
	src, ok := store.(archive.Source)
	if !ok {
		return fmt.Errorf("storage %T cannot export snapshots", store)
	}
	arc, err := a.archiver(ctx)
	if err != nil {
		return err
	}
	info, err := arc.Archive(ctx, src)
	if err != nil {
		return err
	}
	a.log.Info("snapshot archived", "key", info.Key, "size", info.Size)
	return a.writeJSON(info)
}

func (a *app) restore(ctx context.Context, args []string) error {
	fs := a.flags("restore")
	key := fs.String("key", "", "snapshot key to restore (default: latest)")
	if err := parse(fs, args); err != nil {
		return err
	}
	arc, err := a.archiver(ctx)
	if err != nil {
		return err
	}
	if *key == "" {
		latest, err := arc.Latest(ctx)
		if err != nil {
			return err
		}
		*key = latest.Key
	}
	store, release, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer release()
	dst, ok := store.(archive.Target)
	if !ok {
		return fmt.Errorf("storage %T cannot restore snapshots", store)
	}
	snapshot, err := arc.Restore(ctx, *key, dst)
	if err != nil {
		return err
	}
	a.log.Info("snapshot restored", "key", *key, "kitties", len(snapshot.Kitties), "counter", snapshot.Count)
	return a.writeJSON(map[string]any{"key": *key, "kitties": len(snapshot.Kitties), "counter": snapshot.Count})
}

type ownedView struct {
	Owner   core.AccountID `json:"owner"`
	Kitties []core.Kitty   `json:"kitties"`
}

func (a *app) inspect(ctx context.Context, args []string) error {
	fs := a.flags("inspect")
	owner := fs.String("owner", "", "account whose kitties to list (default: all kitties)")
	if err := parse(fs, args); err != nil {
		return err
	}
	store, release, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer release()
	if *owner == "" {
		return a.writeJSON(store.ListKitties())
	}
	view := ownedView{Owner: core.AccountID(*owner), Kitties: []core.Kitty{}}
	for _, id := range store.OwnedBy(view.Owner) {
		if k, ok := store.GetKitty(id); ok {
			view.Kitties = append(view.Kitties, k)
		}
	}
	return a.writeJSON(view)
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
