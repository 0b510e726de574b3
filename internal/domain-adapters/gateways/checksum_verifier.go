package gateways

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// ChecksumVerifier pins fetched installers to a known SHA-256 digest
type ChecksumVerifier struct{}

// NewChecksumVerifier creates a new checksum verifier
func NewChecksumVerifier() *ChecksumVerifier {
	return &ChecksumVerifier{}
}

// VerifyChecksum verifies a file's SHA-256 checksum. The expected value may
// carry a "sha256:" prefix and any letter case.
func (v *ChecksumVerifier) VerifyChecksum(ctx context.Context, filePath, expectedSum string) error {
	expected := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(expectedSum), "sha256:"))
	if len(expected) != sha256.Size*2 {
		return fmt.Errorf("invalid sha256 pin %q", expectedSum)
	}

	actual, err := v.CalculateChecksum(ctx, filePath)
	if err != nil {
		return err
	}

	if actual != expected {
		return fmt.Errorf("checksum mismatch for %s: expected %s, got %s", filePath, expected, actual)
	}
	return nil
}

// CalculateChecksum calculates the SHA-256 checksum of a file
func (v *ChecksumVerifier) CalculateChecksum(ctx context.Context, filePath string) (string, error) {
	//nolint:gosec // G304: file path is the fetched installer
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, &contextReader{ctx: ctx, r: f}); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// contextReader stops long reads once the context is cancelled
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
