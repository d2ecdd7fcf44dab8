// Package zarrtree holds the data model shared by every traversal
// strategy: the MD5-backed digest primitive, the FileEntry/DirNode value
// types, the relative-path policy, the deterministic combine function,
// and the single-threaded tree builder.
package zarrtree

import (
	"crypto/md5"
	"encoding/hex"
	"hash"
)

// DigestSize is the length in bytes of a FileDigest (MD5 produces 16).
const DigestSize = md5.Size

// FileDigest is the 16-byte opaque digest of a file's byte stream.
type FileDigest [DigestSize]byte

// Hex renders the digest as 32 lowercase hex characters.
func (d FileDigest) Hex() string {
	return hex.EncodeToString(d[:])
}

func (d FileDigest) String() string {
	return d.Hex()
}

// Digester is a streaming MD5 digest with the update/finalize shape
// spec.md §4.2 requires. It is not safe for concurrent use by multiple
// goroutines; each strategy creates one Digester per file.
type Digester struct {
	h hash.Hash
}

// NewDigester returns a fresh Digester ready to accept bytes.
func NewDigester() *Digester {
	return &Digester{h: md5.New()}
}

// Write feeds bytes into the running digest. It never returns an error
// (md5.digest.Write never fails), matching hash.Hash's contract.
func (d *Digester) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

// Sum finalizes the digest and returns it. The Digester must not be
// reused afterwards.
func (d *Digester) Sum() FileDigest {
	var out FileDigest
	copy(out[:], d.h.Sum(nil))
	return out
}

// DigestBytes computes the FileDigest of an in-memory byte slice. Used by
// the combine function (through DigestString), which digests the joined
// child-string.
func DigestBytes(b []byte) FileDigest {
	return FileDigest(md5.Sum(b))
}

// DigestString is DigestBytes for a string, avoiding a copy-to-[]byte at
// call sites that already have a string.
func DigestString(s string) FileDigest {
	return DigestBytes([]byte(s))
}
