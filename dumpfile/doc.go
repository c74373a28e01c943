/*
Package dumpfile writes GDBM dumps to files robustly.

A dump is written to a temporary file in the destination directory and
renamed to its final name only after everything was written, flushed
and synced. If anything fails, the temporary file is removed and the
destination is left untouched.

The file is compressed based on its extension: .gz (gzip), .zst or
.zstd (zstd), .br (brotli). Open reads such files back, decompressing
them on the fly.

	res, err := dumpfile.Write("my.dump.zst", &gdbmdump.Options{File: "my.db"}, func(a *gdbmdump.Appender) error {
		return a.PushString("key", "value")
	})
*/
package dumpfile
