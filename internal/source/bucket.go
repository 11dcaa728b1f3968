package source

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
)

// MaxObjects bounds how many objects are listed from a bucket
const MaxObjects = 20

// ObjectExtensions are the text-like object types that get scanned
var ObjectExtensions = []string{".csv", ".txt", ".sql", ".json", ".log"}

// ObjectInfo describes one listed object
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStore is the listing and download capability a bucket scan needs
type ObjectStore interface {
	// List returns up to max objects of bucket in listing order
	List(ctx context.Context, bucket string, max int) ([]ObjectInfo, error)
	// Get reads a whole object into memory
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// Bucket scans the text objects of an object-store bucket
type Bucket struct {
	store  ObjectStore
	bucket string
}

// NewBucket creates a bucket source
func NewBucket(store ObjectStore, bucket string) *Bucket {
	return &Bucket{store: store, bucket: bucket}
}

// Name returns the identifier recorded for bucket scans
func (b *Bucket) Name() string {
	return "S3 Bucket: " + b.bucket
}

// Units yields one unit per line of every selected object, labelled with
// the object key and 1-based line number. Listing failures are fatal;
// an unreadable object is skipped.
func (b *Bucket) Units(ctx context.Context) iter.Seq2[TextUnit, error] {
	return func(yield func(TextUnit, error) bool) {
		objects, err := b.store.List(ctx, b.bucket, MaxObjects)
		if err != nil {
			var connErr *ConnectionError
			if !errors.As(err, &connErr) {
				err = &ConnectionError{Backend: "object store", Err: err}
			}
			yield(TextUnit{}, err)
			return
		}
		if len(objects) == 0 {
			yield(TextUnit{}, &NotFoundError{Target: b.bucket, Message: "bucket is empty or not accessible"})
			return
		}
		if len(objects) > MaxObjects {
			objects = objects[:MaxObjects]
		}

		for _, obj := range objects {
			if !hasExtension(obj.Key, ObjectExtensions) {
				continue
			}
			if err := ctx.Err(); err != nil {
				yield(TextUnit{}, err)
				return
			}

			body, err := b.store.Get(ctx, b.bucket, obj.Key)
			if err != nil {
				if !yield(TextUnit{}, &PartialReadError{Unit: fmt.Sprintf("object '%s'", obj.Key), Err: err}) {
					return
				}
				continue
			}

			for i, line := range splitLines(decodeLossy(string(body))) {
				unit := TextUnit{
					Text:     line,
					Location: fmt.Sprintf("%s -> Line %d", obj.Key, i+1),
				}
				if !yield(unit, nil) {
					return
				}
			}
		}
	}
}

// splitLines splits on \n, \r\n and \r without producing a trailing empty
// line
func splitLines(content string) []string {
	if content == "" {
		return nil
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.TrimSuffix(content, "\n")

	return strings.Split(content, "\n")
}
