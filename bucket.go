package textline

import (
	"context"

	"cloud.google.com/go/storage"
)

// OpenBucketObject returns a ByteSource reading a Cloud Storage object from
// its beginning.
func OpenBucketObject(ctx context.Context, client *storage.Client, bucket, object string) (ByteSource, error) {
	return OpenBucketObjectAt(ctx, client, bucket, object, 0)
}

// OpenBucketObjectAt returns a ByteSource reading a Cloud Storage object
// starting at offset. This is a positioned open: the range reader fetches
// nothing before offset, so resuming a large object is cheap. Pair it with
// NewAt using the same offset.
func OpenBucketObjectAt(ctx context.Context, client *storage.Client, bucket, object string, offset int64) (ByteSource, error) {
	if offset < 0 {
		return nil, ErrNegativeOffset
	}
	rdr, err := client.Bucket(bucket).Object(object).NewRangeReader(ctx, offset, -1)
	if err != nil {
		return nil, err
	}
	return NewSource(rdr), nil
}
