package filesource

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"tablet.dev/compaction/compaction"
	"tablet.dev/compaction/filesource/objstore"
)

// S3Tablet lists the objects directly under a prefix.
type S3Tablet struct {
	s3       objstore.S3Service
	bucket   string
	prefix   string
	suffix   string
	pageSize int32
}

func NewS3Tablet(s3 objstore.S3Service, path string, opts ...Option) (*S3Tablet, error) {
	path = strings.TrimPrefix(path, "s3://")

	bucket, prefix, _ := strings.Cut(path, "/")
	if bucket == "" {
		return nil, fmt.Errorf("S3 path must include bucket: %s", path)
	}

	// Objects are listed one level below the prefix so it must end in a slash.
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &S3Tablet{
		s3:       s3,
		bucket:   bucket,
		prefix:   prefix,
		suffix:   o.suffix,
		pageSize: o.pageSize,
	}, nil
}

func (t *S3Tablet) List(ctx context.Context) ([]compaction.CompactableFile, error) {
	paginator := s3.NewListObjectsV2Paginator(t.s3, &s3.ListObjectsV2Input{
		Bucket:    &t.bucket,
		Prefix:    &t.prefix,
		Delimiter: aws.String("/"),
	}, func(o *s3.ListObjectsV2PaginatorOptions) {
		o.Limit = t.pageSize
	})

	var listed []listedFile
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") || !strings.HasSuffix(key, t.suffix) {
				continue
			}
			listed = append(listed, listedFile{
				uri:      s3URI(t.bucket, key),
				size:     aws.ToInt64(obj.Size),
				modified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return sequence(listed), nil
}

func (t *S3Tablet) URI() string {
	return s3URI(t.bucket, t.prefix)
}

func s3URI(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}

var _ Lister = (*S3Tablet)(nil)
