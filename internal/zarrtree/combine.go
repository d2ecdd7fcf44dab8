package zarrtree

import (
	"fmt"
	"strings"
)

// ChildString renders the S(child) encoding from spec.md §4.4:
// "<relpath>:<digest_hex>-<file_count>--<byte_count>", where relpath is
// relative to the traversal root (not to the directory being combined).
func ChildString(relPath, digestHex string, fileCount, byteCount int64) string {
	return fmt.Sprintf("%s:%s-%d--%d", relPath, digestHex, fileCount, byteCount)
}

// CombineResult is the finalized digest and aggregate counts for a
// directory, as produced by Combine.
type CombineResult struct {
	DigestHex string
	FileCount int64
	ByteCount int64
}

// Combine folds a directory's already-sorted child strings into the
// directory's own checksum, per spec.md §4.4:
//
//	digest_hex_of_md5(join("/", childStrings)) ++ "-" ++ fileCount ++ "--" ++ byteCount
//
// childStrings must already be in lexicographic order of child name; an
// empty directory (childStrings == nil) combines to MD5("") + "-0--0".
func Combine(childStrings []string, fileCount, byteCount int64) CombineResult {
	joined := strings.Join(childStrings, "/")
	return CombineResult{
		DigestHex: DigestString(joined).Hex(),
		FileCount: fileCount,
		ByteCount: byteCount,
	}
}

// RootLine renders the final stdout line spec.md §6 specifies:
// "<32-hex-char digest>-<file count>--<byte count>".
func RootLine(digestHex string, fileCount, byteCount int64) string {
	return fmt.Sprintf("%s-%d--%d", digestHex, fileCount, byteCount)
}
