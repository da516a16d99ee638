package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"launcherd/internal/fault"
)

// hashFile computes the hex-encoded SHA-256 of a file's contents.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s for hashing: %v", fault.ErrNotFound, path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: hash %s: %v", fault.ErrInternal, path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// verifyFileHash compares the file's SHA-256 against the expected hex digest,
// case-insensitively. An empty expected hash skips the check: some manifests
// omit hashes for files the publisher does not pin.
func verifyFileHash(path, expected string) error {
	if expected == "" {
		return nil
	}
	actual, err := hashFile(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("%w: hash mismatch for %q: expected %s, got %s",
			fault.ErrDataLoss, path, expected, actual)
	}
	return nil
}
