package media

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// DigestError indicates the file bytes could not be read while hashing.
type DigestError struct {
	Err error
}

func (e *DigestError) Error() string { return fmt.Sprintf("content digest: %v", e.Err) }

func (e *DigestError) Unwrap() error { return e.Err }

// Digest computes the SHA-256 content digest of r as a 64-character lowercase
// hex string. The digest is sent with the presign request and attached to the
// stored object, so the backend can verify integrity at both points.
func Digest(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", &DigestError{Err: err}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestFile computes the content digest of the file at path.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &DigestError{Err: err}
	}
	defer f.Close()
	return Digest(f)
}
