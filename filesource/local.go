package filesource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"tablet.dev/compaction/compaction"
)

// LocalTablet lists the regular files directly inside a directory.
type LocalTablet struct {
	dir    string
	suffix string
}

func NewLocalTablet(dir string, opts ...Option) *LocalTablet {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &LocalTablet{dir: dir, suffix: o.suffix}
}

func (t *LocalTablet) List(ctx context.Context) ([]compaction.CompactableFile, error) {
	entries, err := os.ReadDir(t.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", t.dir, ErrNotFound)
		}
		return nil, err
	}

	listed := make([]listedFile, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), t.suffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed since the directory was read.
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		listed = append(listed, listedFile{
			uri:      filepath.Join(t.dir, entry.Name()),
			size:     info.Size(),
			modified: info.ModTime(),
		})
	}
	return sequence(listed), nil
}

func (t *LocalTablet) URI() string {
	return t.dir
}

var _ Lister = (*LocalTablet)(nil)
