// Package texthash computes the 64-bit word hash persisted throughout the
// index: dictionary keys, occurrence triples, and probe-table collision
// checks all depend on this function producing the same value for the same
// bytes and seed, forever. It is built on xxHash (the same hash the domain
// stack's compactindex format uses for bucket assignment), with the seed
// folded in as a hash prefix.
package texthash

import "github.com/cespare/xxhash/v2"

// Hash64 returns a deterministic 64-bit hash of data under seed. Distinct
// seeds applied to identical bytes typically yield distinct hashes; distinct
// byte content yields distinct hashes with overwhelming probability. Never
// change this construction once an index has been built with it: builder and
// query engine must agree on every hash, forever.
func Hash64(data []byte, seed uint64) uint64 {
	var b [8]byte
	putUint64LE(b[:], seed)
	d := xxhash.New()
	d.Write(b[:])
	d.Write(data)
	return d.Sum64()
}

func putUint64LE(b []byte, v uint64) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
}
