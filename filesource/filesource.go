// Package filesource lists the data files of tablets so they can be planned.
package filesource

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"
	"tablet.dev/compaction/compaction"
)

var ErrNotFound = errors.New("tablet not found")

// Lister returns the current files of one tablet. Seq numbers follow
// modification time, oldest first.
type Lister interface {
	List(ctx context.Context) ([]compaction.CompactableFile, error)
	// URI names the listed tablet directory.
	URI() string
}

type options struct {
	suffix   string
	pageSize int32
}

type Option func(*options)

// WithSuffix only lists files whose names end in suffix, such as ".rf".
func WithSuffix(suffix string) Option {
	return func(o *options) {
		o.suffix = suffix
	}
}

// WithPageSize sets how many objects each S3 list request returns.
func WithPageSize(n int32) Option {
	return func(o *options) {
		o.pageSize = n
	}
}

// New creates a Lister for the given path. An s3:// URI lists objects with
// the default AWS configuration and anything else lists a local directory.
func New(ctx context.Context, path string, opts ...Option) (Lister, error) {
	if strings.HasPrefix(path, "s3://") {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}

		return NewS3Tablet(s3.NewFromConfig(cfg), path, opts...)
	}

	return NewLocalTablet(path, opts...), nil
}

// ListAll lists every tablet concurrently. Results are in the order of
// listers.
func ListAll(ctx context.Context, listers []Lister) ([][]compaction.CompactableFile, error) {
	results := make([][]compaction.CompactableFile, len(listers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, l := range listers {
		g.Go(func() error {
			files, err := l.List(gctx)
			if err != nil {
				return fmt.Errorf("listing %s: %w", l.URI(), err)
			}
			results[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type listedFile struct {
	uri      string
	size     int64
	modified time.Time
}

// sequence orders files by modification time and numbers them from 1.
func sequence(listed []listedFile) []compaction.CompactableFile {
	slices.SortFunc(listed, func(a, b listedFile) int {
		return cmp.Or(a.modified.Compare(b.modified), strings.Compare(a.uri, b.uri))
	})
	files := make([]compaction.CompactableFile, len(listed))
	for i, f := range listed {
		files[i] = compaction.NewFile(f.uri, f.size, uint64(i+1))
	}
	return files
}
