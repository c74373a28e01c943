package gdbmdump

import (
	"strconv"
	"strings"
)

// DefaultCreator is written into the first header line when
// Options.Creator is empty
const DefaultCreator = "gdbmdump"

// Options describes the database file a dump was made from.
// All fields are optional. Empty strings and nil Mode are omitted.
//
// UID, User, GID, Group and Mode are only written when File is set.
// User is only written when UID is set, Group only when GID is set.
// Values are written verbatim, nothing is validated.
type Options struct {
	File  string
	UID   string
	User  string
	GID   string
	Group string
	// permission bits, written in octal
	Mode *int

	// Creator shows up in the "created by" comment line
	Creator string
}

// Perm returns a pointer to m, for use as Options.Mode
func Perm(m int) *int {
	return &m
}

func (o *Options) creator() string {
	if o == nil || o.Creator == "" {
		return DefaultCreator
	}
	return o.Creator
}

// attrs returns the comma-separated attribute list that follows "#:"
// on the line after "#:file=". Empty if there's nothing to write.
func (o *Options) attrs() string {
	var parts []string
	if o.UID != "" {
		parts = append(parts, "uid="+o.UID)
		if o.User != "" {
			parts = append(parts, "user="+o.User)
		}
	}
	if o.GID != "" {
		parts = append(parts, "gid="+o.GID)
		if o.Group != "" {
			parts = append(parts, "group="+o.Group)
		}
	}
	if o.Mode != nil {
		parts = append(parts, "mode="+formatMode(*o.Mode))
	}
	return strings.Join(parts, ",")
}

// formatMode is like printf("%03o")
func formatMode(m int) string {
	s := strconv.FormatInt(int64(m), 8)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for len(s) < 3 {
		s = "0" + s
	}
	if neg {
		s = "-" + s
	}
	return s
}
