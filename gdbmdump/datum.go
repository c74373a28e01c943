package gdbmdump

import (
	"encoding/base64"
	"strconv"
)

// MaxDumpLineLen is the length of a base64 line in a dump.
// gdbm doesn't split at 60 characters like RFC 2045 says, it uses
// GDBM_MAX_DUMP_LINE_LEN from gdbmdefs.h.
const MaxDumpLineLen = 76

var lenPrefix = []byte("#:len=")

// AppendDatum appends encoded d to dst and returns the extended slice.
//
// The encoding is "#:len=${len(d)}\n" followed by base64 of d split
// into lines of MaxDumpLineLen characters. Empty d has no base64 lines.
func AppendDatum(dst []byte, d []byte) []byte {
	var scratch []byte
	return appendDatum(dst, d, &scratch)
}

// perf: scratch is re-used for base64 output across calls
func appendDatum(dst []byte, d []byte, scratch *[]byte) []byte {
	dst = append(dst, lenPrefix...)
	dst = strconv.AppendInt(dst, int64(len(d)), 10)
	dst = append(dst, '\n')

	n := base64.StdEncoding.EncodedLen(len(d))
	if cap(*scratch) < n {
		*scratch = make([]byte, n)
	}
	enc := (*scratch)[:n]
	base64.StdEncoding.Encode(enc, d)
	for len(enc) > 0 {
		lineLen := min(len(enc), MaxDumpLineLen)
		dst = append(dst, enc[:lineLen]...)
		dst = append(dst, '\n')
		enc = enc[lineLen:]
	}
	return dst
}
