// Package kvstore is a simple append-only key/value store made of an
// index file and a data file.
//
// Every Put and Delete appends the key (and value) to the data file and
// one line to the index file:
//
//	<offset> <key size> <value size> <timestamp ms> <op>
//
// where op is "put" or "del". Opening a store replays the index, last
// write wins. Since the index only stores sizes, keys and values can be
// arbitrary bytes.
//
// A store can be dumped in GDBM ASCII format with Dump, which streams
// records straight from the data file.
//
// The Store is safe for concurrent use.
package kvstore
