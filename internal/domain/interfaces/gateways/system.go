// Package gateways defines the contracts between domain services and the host system.
package gateways

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/entities"
)

// Command describes one external process invocation
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the caller's working directory
	Dir   string
	Stdin io.Reader
	Env   map[string]string
	// Privileged runs the command elevated (sudo) unless already root
	Privileged bool
	// Interactive attaches the process to the controlling terminal
	Interactive bool
	Timeout     time.Duration
	Description string
}

// CommandResult contains the result of a command execution
type CommandResult struct {
	Success  bool
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	// Started is false when the process could not be launched at all
	Started bool
	Error   error
}

// Failure converts an unsuccessful result into an ExternalToolFailure
func (r *CommandResult) Failure(step string) error {
	if r == nil {
		return entities.NewExternalToolFailure(step, -1, "", fmt.Errorf("no result"))
	}
	if r.Success {
		return nil
	}
	return entities.NewExternalToolFailure(step, r.ExitCode, r.Stderr, r.Error)
}

// CommandRunner executes external processes
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) *CommandResult
}

// ModeChange is a symbolic chmod change such as a+w or o-w
type ModeChange struct {
	Who  string // "a", "o", "u" or "g"
	Op   byte   // '+' or '-'
	Perm string // "r", "w" or "x" (combinations allowed)
}

// Common mode changes used by the permission brackets
var (
	AllWritable    = ModeChange{Who: "a", Op: '+', Perm: "w"}
	AllReadOnly    = ModeChange{Who: "a", Op: '-', Perm: "w"}
	AllReadable    = ModeChange{Who: "a", Op: '+', Perm: "r"}
	OthersWritable = ModeChange{Who: "o", Op: '+', Perm: "w"}
	OthersReadOnly = ModeChange{Who: "o", Op: '-', Perm: "w"}
)

func (m ModeChange) String() string {
	return m.Who + string(m.Op) + m.Perm
}

// Apply computes the resulting permission bits
func (m ModeChange) Apply(mode uint32) uint32 {
	var who uint32
	for _, c := range m.Who {
		switch c {
		case 'u':
			who |= 0o700
		case 'g':
			who |= 0o070
		case 'o':
			who |= 0o007
		case 'a':
			who |= 0o777
		}
	}

	var perm uint32
	for _, c := range m.Perm {
		switch c {
		case 'r':
			perm |= 0o444
		case 'w':
			perm |= 0o222
		case 'x':
			perm |= 0o111
		}
	}

	bits := who & perm
	if m.Op == '-' {
		return mode &^ bits
	}
	return mode | bits
}

// Host performs filesystem operations that need elevation
type Host interface {
	MkdirAll(ctx context.Context, path string) error
	Touch(ctx context.Context, path string) error
	Chmod(ctx context.Context, path string, change ModeChange, recursive bool) error
	// Symlink behaves like ln -sf
	Symlink(ctx context.Context, target, link string) error
	// Remove behaves like rm -f
	Remove(ctx context.Context, paths ...string) error
	// RemoveAll behaves like rm -rf
	RemoveAll(ctx context.Context, path string) error
}

// PackageManager queries and installs system packages
type PackageManager interface {
	Snapshot(ctx context.Context) (*entities.PackageSnapshot, error)
	IsAvailable(ctx context.Context, pkg string) (bool, error)
	Install(ctx context.Context, pkgs []string) error
}

// ProcessLister lists names of running processes
type ProcessLister interface {
	ProcessNames(ctx context.Context) ([]string, error)
}

// TerminalProbe reports whether a human can answer prompts
type TerminalProbe interface {
	StdinIsTerminal() bool
}

// FetchRequest describes one download
type FetchRequest struct {
	URL      string
	Username string
	// Password is only valid for the duration of the Fetch call
	Password []byte
}

// Fetcher downloads a URL into a writer
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest, dst io.Writer) (int64, error)
}

// Extractor unpacks archives
type Extractor interface {
	ExtractTarGz(archivePath, destDir string) error
	ExtractZip(archivePath, destDir string) error
}

// Decrypter decrypts a payload with a secret
type Decrypter interface {
	Decrypt(ctx context.Context, src io.Reader, dst io.Writer, secret []byte) error
}

// ChecksumVerifier verifies file digests
type ChecksumVerifier interface {
	VerifyChecksum(ctx context.Context, filePath, expectedSum string) error
}

// Credentials gives scoped access to named secrets
type Credentials interface {
	Has(name entities.CredentialName) bool
	// Open calls fn with the secret; the slice must not be retained
	Open(name entities.CredentialName, fn func(secret []byte) error) error
}

// Environment is the single accessor for process environment variables
type Environment interface {
	Lookup(key string) (string, bool)
}
