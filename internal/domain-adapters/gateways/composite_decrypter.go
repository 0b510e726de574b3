package gateways

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces/gateways"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/external-adapters/age"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/external-adapters/gpg"
)

// Payload headers used to route an encrypted stream to its decrypter
var (
	ageBinaryHeader  = []byte("age-encryption.org/")
	ageArmorHeader   = []byte("-----BEGIN AGE ENCRYPTED FILE-----")
	headerPeekLength = len(ageArmorHeader)
)

// compositeDecrypter picks the age or OpenPGP decrypter from the payload header
type compositeDecrypter struct {
	age gateways.Decrypter
	pgp gateways.Decrypter
}

// NewCompositeDecrypter creates a decrypter that accepts age and OpenPGP payloads.
// Anything that does not carry an age header is handed to the OpenPGP decrypter.
func NewCompositeDecrypter() gateways.Decrypter {
	return &compositeDecrypter{
		age: age.NewDecrypter(),
		pgp: gpg.NewDecrypter(),
	}
}

// NewCompositeDecrypterWithDeps creates a composite decrypter with custom implementations
func NewCompositeDecrypterWithDeps(ageDecrypter, pgpDecrypter gateways.Decrypter) gateways.Decrypter {
	return &compositeDecrypter{age: ageDecrypter, pgp: pgpDecrypter}
}

// Decrypt sniffs the header and streams the payload through the matching decrypter
func (c *compositeDecrypter) Decrypt(ctx context.Context, src io.Reader, dst io.Writer, secret []byte) error {
	br := bufio.NewReaderSize(src, 4096)
	head, err := br.Peek(headerPeekLength)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return fmt.Errorf("failed to read encrypted payload: %w", err)
	}
	if len(head) == 0 {
		return fmt.Errorf("encrypted payload is empty")
	}

	switch {
	case bytes.HasPrefix(head, ageBinaryHeader), bytes.HasPrefix(head, ageArmorHeader):
		if c.age == nil {
			return fmt.Errorf("age payload but no age decrypter configured")
		}
		return c.age.Decrypt(ctx, br, dst, secret)
	default:
		if c.pgp == nil {
			return fmt.Errorf("unrecognized payload and no OpenPGP decrypter configured")
		}
		// armored or binary OpenPGP
		return c.pgp.Decrypt(ctx, br, dst, secret)
	}
}
