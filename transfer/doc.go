/*
Package transfer moves GDBM dumps to the machine that will load them.

S3 uploads to an S3-compatible bucket (minio, AWS, Backblaze, R2), SSH
copies a dump over sftp and runs gdbm_load remotely, PostDump sends it
to an http endpoint.

Dumps can be streamed straight from a source without a local file:

	s3, err := transfer.NewS3(ctx, &transfer.S3Config{...})
	n, err := s3.PutDump(ctx, "backups/my.dump.zst", opts, func(a *gdbmdump.Appender) error {
		return store.Each(a.Push)
	})
*/
package transfer
