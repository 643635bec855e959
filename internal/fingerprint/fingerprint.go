// Package fingerprint computes content digests used to detect file changes.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
)

// Sum returns the hex digest of data. Identical bytes always yield the same
// digest; it is a change-detection token, not a security property.
func Sum(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// File reads the whole file at path and returns the digest of its contents.
// The file is read in full before hashing so a partial read never produces
// a digest.
func File(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return Sum(data), nil
}
