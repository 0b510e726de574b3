// Package gpg provides OpenPGP symmetric decryption.
package gpg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// armorHeader marks an ASCII-armored OpenPGP message
var armorHeader = []byte("-----BEGIN PGP MESSAGE-----")

// ErrIncorrectPassphrase is returned when the passphrase does not open the message
var ErrIncorrectPassphrase = errors.New("incorrect passphrase")

// Decrypter opens passphrase-encrypted OpenPGP messages using ProtonMail's go-crypto.
// This is in external-adapters to isolate the external dependency.
type Decrypter struct{}

// NewDecrypter creates a new OpenPGP decrypter
func NewDecrypter() *Decrypter {
	return &Decrypter{}
}

// Decrypt reads a binary or armored message from src and writes the plaintext to dst
func (d *Decrypter) Decrypt(ctx context.Context, src io.Reader, dst io.Writer, passphrase []byte) error {
	if len(passphrase) == 0 {
		return fmt.Errorf("no passphrase provided")
	}

	br := bufio.NewReader(src)
	in := io.Reader(br)
	if head, _ := br.Peek(len(armorHeader)); bytes.Equal(head, armorHeader) {
		block, err := armor.Decode(br)
		if err != nil {
			return fmt.Errorf("failed to decode armored message: %w", err)
		}
		in = block.Body
	}

	// The prompt is asked once; a second call means the passphrase was rejected
	asked := false
	prompt := func(_ []openpgp.Key, symmetric bool) ([]byte, error) {
		if !symmetric {
			return nil, fmt.Errorf("message is not passphrase-encrypted")
		}
		if asked {
			return nil, ErrIncorrectPassphrase
		}
		asked = true
		return passphrase, nil
	}

	md, err := openpgp.ReadMessage(in, openpgp.EntityList{}, prompt, nil)
	if err != nil {
		return fmt.Errorf("failed to open message: %w", err)
	}

	if _, err := io.Copy(dst, &contextReader{ctx: ctx, r: md.UnverifiedBody}); err != nil {
		return fmt.Errorf("failed to decrypt message: %w", err)
	}

	// Integrity is only known once the body is fully read
	if md.IsSigned && md.SignatureError != nil {
		return fmt.Errorf("message signature invalid: %w", md.SignatureError)
	}

	return nil
}

// contextReader stops a long copy when the context is cancelled
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
