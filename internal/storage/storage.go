// Package storage is the artifact blob collaborator: preview, result, and
// undo artifacts are opaque blobs keyed by job id.
package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Artifact kinds used as storage key suffixes.
const (
	KindPreview = "preview"
	KindResult  = "result"
	KindUndo    = "undo"
)

// Storage writes and reads job artifacts.
type Storage interface {
	Put(ctx context.Context, jobID, kind string, data []byte) (key string, err error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// Local stores artifacts on the local filesystem under a base directory.
type Local struct {
	dir string
}

// NewLocal creates the base directory if needed.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "storage: create dir %s", dir)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) Put(ctx context.Context, jobID, kind string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", eris.Wrap(err, "storage: put cancelled")
	}

	key := filepath.Join(jobID, kind+".csv")
	path := filepath.Join(l.dir, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", eris.Wrapf(err, "storage: create job dir for %s", jobID)
	}

	// Write-then-rename so a crash never leaves a partial artifact behind
	// the final key.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "storage: write %s", key)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", eris.Wrapf(err, "storage: finalize %s", key)
	}
	return key, nil
}

func (l *Local) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "storage: get cancelled")
	}
	data, err := os.ReadFile(filepath.Join(l.dir, key))
	if err != nil {
		return nil, eris.Wrapf(err, "storage: read %s", key)
	}
	return data, nil
}
