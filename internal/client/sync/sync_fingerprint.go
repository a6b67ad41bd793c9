package sync

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// MetaContentMD5 is the user-metadata key holding the hex MD5 of an uploaded object.
// It backs change detection when the store's ETag is not a content digest.
const MetaContentMD5 = "md5"

// HashFile streams the file through MD5 and returns the hex digest.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file '%s': %w", path, err)
	}
	defer file.Close()

	h := md5.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("failed to hash file '%s': %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// isContentETag reports whether an ETag has the shape of a plain MD5 of the object bytes.
// Multipart uploads ("<hex>-<parts>") never do. SSE-KMS and SSE-C objects can look like one
// without being one, so a shape match is only trusted until it disagrees with the local digest.
func isContentETag(etag string) bool {
	if len(etag) != md5.Size*2 {
		return false
	}
	_, err := hex.DecodeString(etag)
	return err == nil
}

// isFingerprint reports whether s looks like a digest produced by HashFile.
func isFingerprint(s string) bool {
	return isContentETag(s)
}
