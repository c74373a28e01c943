/*
Package gdbmdump writes key/value data in the ASCII dump format of GNU dbm.

GDBM database files are not portable between operating systems, architectures
or even compilers. The portable way to move a database is to dump it with
gdbm_dump and recreate it on the other side with gdbm_load. This package
produces the same ASCII dump without linking against gdbm, so any Go program
can create a file that gdbm_load accepts.

A dump looks like this:

	# GDBM dump file created by gdbmdump
	#:version=1.1
	#:file=my.db
	#:uid=1000,user=ziggy,gid=1000,group=staff,mode=600
	#:format=standard
	# End of header
	#:len=3
	Zm9v
	#:len=3
	YmFy
	#:count=1
	# End of data

Dump a whole map:

	opts := &gdbmdump.Options{File: "my.db", UID: "1000", GID: "1000", Mode: gdbmdump.Perm(0o600)}
	n, err := gdbmdump.DumpMap(w, opts, map[string]string{"foo": "bar"})

Or stream records from a lazy source:

	n, err := gdbmdump.Dump(w, opts, func(a *gdbmdump.Appender) error {
		for k, v := range source {
			if err := a.PushString(k, v); err != nil {
				return err
			}
		}
		return nil
	})

Only dumping is supported. The binary dump format is not.
*/
package gdbmdump
