package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/kjk/gdbmdump/dumpfile"
	"github.com/kjk/gdbmdump/gdbmdump"
	"github.com/kjk/gdbmdump/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const dumpContentType = "text/plain; charset=us-ascii"

type S3Config struct {
	Access   string
	Secret   string
	Bucket   string
	Endpoint string
	Region   string
	// use http instead of https, for local minio
	Insecure bool
}

type S3 struct {
	Client *minio.Client
	Bucket string
}

func (c *S3Config) validate() error {
	if c == nil {
		return errors.New("must provide config")
	}
	if c.Access == "" || c.Secret == "" || c.Bucket == "" || c.Endpoint == "" {
		return errors.New("must provide Access, Secret, Bucket and Endpoint in config")
	}
	return nil
}

// NewS3 connects to the endpoint and checks that the bucket exists
func NewS3(ctx context.Context, config *S3Config) (*S3, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	c := config
	mc, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Access, c.Secret, ""),
		Region: c.Region,
		Secure: !c.Insecure,
	})
	if err != nil {
		return nil, err
	}
	found, err := mc.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("bucket '%s' doesn't exist", c.Bucket)
	}
	return &S3{
		Client: mc,
		Bucket: c.Bucket,
	}, nil
}

// putOptions describes a dump object. Compressed dumps are stored
// with Content-Encoding so that they're still text/plain.
func putOptions(path string) minio.PutObjectOptions {
	return minio.PutObjectOptions{
		ContentType:     dumpContentType,
		ContentEncoding: dumpfile.CompressionFromPath(path).String(),
	}
}

// UploadFile uploads a dump file as-is
func (s *S3) UploadFile(ctx context.Context, remotePath string, localPath string) (minio.UploadInfo, error) {
	info, err := s.Client.FPutObject(ctx, s.Bucket, remotePath, localPath, putOptions(localPath))
	if err != nil {
		return info, fmt.Errorf("upload of '%s' as '%s' failed: %w", localPath, remotePath, err)
	}
	log.Verbosef("uploaded '%s' to '%s/%s' (%d bytes)\n", localPath, s.Bucket, remotePath, info.Size)
	return info, nil
}

// PutDump streams a dump produced by fn into remotePath, compressed
// according to remotePath's extension. Returns number of records.
func (s *S3) PutDump(ctx context.Context, remotePath string, opts *gdbmdump.Options, fn func(a *gdbmdump.Appender) error) (uint64, error) {
	c := dumpfile.CompressionFromPath(remotePath)
	pr, wait := dumpPipe(opts, c, fn)
	// size -1 means multi-part upload of unknown size
	info, err := s.Client.PutObject(ctx, s.Bucket, remotePath, pr, -1, putOptions(remotePath))
	// unblock the producer if upload stopped reading
	pr.CloseWithError(errUploadDone)
	n, errDump := wait()
	if errDump != nil && !errors.Is(errDump, errUploadDone) {
		return n, fmt.Errorf("dump to '%s' failed: %w", remotePath, errDump)
	}
	if err != nil {
		return n, fmt.Errorf("upload of '%s' failed: %w", remotePath, err)
	}
	log.Event("dump-s3", "bucket", s.Bucket, "path", remotePath, "count", n, "size", info.Size)
	return n, nil
}

var (
	errUploadDone  = errors.New("upload finished")
	errRequestDone = errors.New("request finished")
)
