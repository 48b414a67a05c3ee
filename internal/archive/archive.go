// Package archive writes registry snapshots to a blob store and restores them.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"kittycore/internal/blob"
	"kittycore/internal/infra/persistence/memory"
)

// Prefix is the key namespace used for snapshot objects.
const Prefix = "snapshots/"

const contentType = "application/json"

// ErrNoSnapshots is returned by Latest when the store holds no snapshot.
var ErrNoSnapshots = errors.New("no snapshots archived")

// Source exports the state to archive.
type Source interface {
	ExportState() memory.Snapshot
}

// Target accepts a restored state.
type Target interface {
	Restore(ctx context.Context, snapshot memory.Snapshot) error
}

// Archiver moves snapshots between a registry store and a blob store.
type Archiver struct {
	blobs blob.Store
	now   func() time.Time
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithClock overrides the clock used to name snapshot keys.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) {
		if now != nil {
			a.now = now
		}
	}
}

// New constructs an Archiver over blobs.
func New(blobs blob.Store, opts ...Option) *Archiver {
	a := &Archiver{blobs: blobs, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Archive writes the current state of src as a new JSON object and returns
// its metadata. Keys sort chronologically.
func (a *Archiver) Archive(ctx context.Context, src Source) (blob.Info, error) {
	snapshot := src.ExportState()
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode snapshot: %w", err)
	}
	key := fmt.Sprintf("%s%s-%010d.json", Prefix, a.now().UTC().Format("20060102T150405.000000000Z"), snapshot.Count)
	info, err := a.blobs.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			"kitties": strconv.Itoa(len(snapshot.Kitties)),
			"counter": strconv.FormatUint(uint64(snapshot.Count), 10),
		},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("archive snapshot %s: %w", key, err)
	}
	return info, nil
}

// Load reads and decodes the snapshot stored under key.
func (a *Archiver) Load(ctx context.Context, key string) (memory.Snapshot, error) {
	_, rc, err := a.blobs.Get(ctx, key)
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	var snapshot memory.Snapshot
	if err := json.NewDecoder(rc).Decode(&snapshot); err != nil {
		return memory.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return snapshot, nil
}

// Restore loads the snapshot under key into dst.
func (a *Archiver) Restore(ctx context.Context, key string, dst Target) (memory.Snapshot, error) {
	snapshot, err := a.Load(ctx, key)
	if err != nil {
		return memory.Snapshot{}, err
	}
	if err := dst.Restore(ctx, snapshot); err != nil {
		return memory.Snapshot{}, fmt.Errorf("restore snapshot %s: %w", key, err)
	}
	return snapshot, nil
}

// List returns archived snapshots oldest first.
func (a *Archiver) List(ctx context.Context) ([]blob.Info, error) {
	infos, err := a.blobs.List(ctx, Prefix)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	out := infos[:0]
	for _, info := range infos {
		if strings.HasSuffix(info.Key, ".json") {
			out = append(out, info)
		}
	}
	return out, nil
}

// Latest returns the most recently archived snapshot.
func (a *Archiver) Latest(ctx context.Context) (blob.Info, error) {
	infos, err := a.List(ctx)
	if err != nil {
		return blob.Info{}, err
	}
	if len(infos) == 0 {
		return blob.Info{}, ErrNoSnapshots
	}
	latest := infos[0]
	for _, info := range infos[1:] {
		if info.Key > latest.Key {
			latest = info
		}
	}
	return latest, nil
}
