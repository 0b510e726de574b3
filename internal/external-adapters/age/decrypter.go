// Package age decrypts payloads produced by the age file encryption tool.
package age

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	agelib "filippo.io/age"
	"filippo.io/age/armor"
)

// Decrypter opens age payloads with an X25519 identity
type Decrypter struct{}

// NewDecrypter creates a new age decrypter
func NewDecrypter() *Decrypter {
	return &Decrypter{}
}

// Decrypt reads a binary or armored age payload from src and writes the plaintext to dst.
// identity is the contents of an age key file ("AGE-SECRET-KEY-1..." lines, comments allowed).
func (d *Decrypter) Decrypt(ctx context.Context, src io.Reader, dst io.Writer, identity []byte) error {
	identities, err := agelib.ParseIdentities(bytes.NewReader(identity))
	if err != nil {
		return fmt.Errorf("failed to parse age identity: %w", err)
	}

	br := bufio.NewReader(src)
	in := io.Reader(br)
	if head, _ := br.Peek(len(armor.Header)); string(head) == armor.Header {
		in = armor.NewReader(br)
	}

	r, err := agelib.Decrypt(in, identities...)
	if err != nil {
		return fmt.Errorf("failed to decrypt age payload: %w", err)
	}

	if _, err := io.Copy(dst, &contextReader{ctx: ctx, r: r}); err != nil {
		return fmt.Errorf("failed to read age payload: %w", err)
	}
	return nil
}

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
