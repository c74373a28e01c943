package gdbmdump

import (
	"os"
)

// FileOptions returns Options describing the database file at path,
// the same information gdbm_dump records: name, owner, group and
// permission bits. Owner and group names are empty if they can't
// be looked up.
func FileOptions(path string) (*Options, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	o := &Options{
		File: path,
		Mode: Perm(int(st.Mode().Perm())),
	}
	fillOwner(o, st)
	return o, nil
}
