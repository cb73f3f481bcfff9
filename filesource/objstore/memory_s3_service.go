package objstore

import (
	"context"
	"maps"
	"path"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type memoryObject struct {
	size     int64
	modified time.Time
}

// MemoryS3Service is an in-memory S3Service for testing. Objects only record
// their size and are stamped with increasing modification times in the order
// they are put.
type MemoryS3Service struct {
	mu      sync.Mutex
	objects map[string]memoryObject
	clock   time.Time
}

func NewMemoryS3Service() *MemoryS3Service {
	return &MemoryS3Service{
		objects: make(map[string]memoryObject),
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Put stores an object of the given size.
func (m *MemoryS3Service) Put(bucket, key string, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clock = m.clock.Add(time.Second)
	m.objects[path.Join(bucket, key)] = memoryObject{size: size, modified: m.clock}
}

func (m *MemoryS3Service) ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket := aws.ToString(input.Bucket)
	prefix := aws.ToString(input.Prefix)
	delimiter := aws.ToString(input.Delimiter)

	// Get sorted list of keys that match the prefix
	var keys []string
	prefixes := make(map[string]bool)
	for fullKey := range m.objects {
		key, ok := strings.CutPrefix(fullKey, bucket+"/")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		if delimiter != "" {
			rest := strings.TrimPrefix(key, prefix)
			if i := strings.Index(rest, delimiter); i >= 0 {
				prefixes[prefix+rest[:i+len(delimiter)]] = true
				continue
			}
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)

	start := 0
	if token := aws.ToString(input.ContinuationToken); token != "" {
		n, err := strconv.Atoi(token)
		if err != nil {
			return nil, err
		}
		start = n
	}
	maxKeys := int(aws.ToInt32(input.MaxKeys))
	if maxKeys <= 0 {
		maxKeys = 1000
	}
	end := min(start+maxKeys, len(keys))

	output := &s3.ListObjectsV2Output{
		Name:        input.Bucket,
		Prefix:      input.Prefix,
		IsTruncated: aws.Bool(end < len(keys)),
		KeyCount:    aws.Int32(int32(end - start)),
	}
	for _, key := range keys[start:end] {
		obj := m.objects[bucket+"/"+key]
		output.Contents = append(output.Contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(obj.size),
			LastModified: aws.Time(obj.modified),
		})
	}
	for _, p := range slices.Sorted(maps.Keys(prefixes)) {
		output.CommonPrefixes = append(output.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(p)})
	}
	if end < len(keys) {
		output.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return output, nil
}

var _ S3Service = (*MemoryS3Service)(nil)
