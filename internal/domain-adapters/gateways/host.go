package gateways

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces/gateways"
)

// NewHost returns the privileged filesystem for this process: direct calls
// when running as root, sudo otherwise.
func NewHost(runner gateways.CommandRunner) gateways.Host {
	if os.Geteuid() == 0 {
		return NewLocalHost()
	}
	return NewSudoHost(runner)
}

// SudoHost performs filesystem changes through elevated coreutils
type SudoHost struct {
	runner gateways.CommandRunner
}

// NewSudoHost creates a host backed by sudo
func NewSudoHost(runner gateways.CommandRunner) *SudoHost {
	return &SudoHost{runner: runner}
}

func (h *SudoHost) run(ctx context.Context, step, name string, args ...string) error {
	result := h.runner.Run(ctx, gateways.Command{
		Name:        name,
		Args:        args,
		Privileged:  true,
		Timeout:     5 * time.Minute,
		Description: step,
	})
	return result.Failure(step)
}

// MkdirAll creates a directory tree
func (h *SudoHost) MkdirAll(ctx context.Context, path string) error {
	return h.run(ctx, "mkdir "+path, "mkdir", "-p", path)
}

// Touch creates an empty file if missing
func (h *SudoHost) Touch(ctx context.Context, path string) error {
	return h.run(ctx, "touch "+path, "touch", path)
}

// Chmod applies a symbolic mode change
func (h *SudoHost) Chmod(ctx context.Context, path string, change gateways.ModeChange, recursive bool) error {
	args := []string{change.String()}
	if recursive {
		args = append(args, "-R")
	}
	args = append(args, path)
	return h.run(ctx, fmt.Sprintf("chmod %s %s", change, path), "chmod", args...)
}

// Symlink creates or replaces a symbolic link
func (h *SudoHost) Symlink(ctx context.Context, target, link string) error {
	return h.run(ctx, "link "+link, "ln", "-sf", target, link)
}

// Remove deletes files, ignoring missing ones
func (h *SudoHost) Remove(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	return h.run(ctx, "remove files", "rm", append([]string{"-f"}, paths...)...)
}

// RemoveAll deletes a tree
func (h *SudoHost) RemoveAll(ctx context.Context, path string) error {
	return h.run(ctx, "remove "+path, "rm", "-rf", path)
}

// LocalHost performs the same operations with direct system calls.
// Used when already root, and against temporary trees in tests.
type LocalHost struct{}

// NewLocalHost creates a direct host
func NewLocalHost() *LocalHost {
	return &LocalHost{}
}

// MkdirAll creates a directory tree
func (h *LocalHost) MkdirAll(_ context.Context, path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// Touch creates an empty file if missing
func (h *LocalHost) Touch(_ context.Context, path string) error {
	//nolint:gosec // G302,G304: license file path comes from the profile
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		// Read-only leftovers still count as present
		if errors.Is(err, fs.ErrPermission) {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil
			}
		}
		return fmt.Errorf("failed to touch %s: %w", path, err)
	}
	return f.Close()
}

// Chmod applies a symbolic mode change
func (h *LocalHost) Chmod(_ context.Context, path string, change gateways.ModeChange, recursive bool) error {
	apply := func(p string, info fs.FileInfo) error {
		// Links are followed by chmod(2); skip them like chmod -R does
		if info.Mode()&fs.ModeSymlink != 0 {
			return nil
		}
		mode := change.Apply(uint32(info.Mode().Perm()))
		if err := os.Chmod(p, fs.FileMode(mode)|(info.Mode()&(fs.ModeSetuid|fs.ModeSetgid|fs.ModeSticky))); err != nil {
			return fmt.Errorf("failed to chmod %s %s: %w", change, p, err)
		}
		return nil
	}

	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("failed to chmod %s %s: %w", change, path, err)
	}
	if !recursive || !info.IsDir() {
		return apply(path, info)
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return apply(p, info)
	})
}

// Symlink creates or replaces a symbolic link
func (h *LocalHost) Symlink(_ context.Context, target, link string) error {
	if err := os.Remove(link); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to replace %s: %w", link, err)
	}
	if err := os.Symlink(target, link); err != nil {
		return fmt.Errorf("failed to link %s -> %s: %w", link, target, err)
	}
	return nil
}

// Remove deletes files, ignoring missing ones
func (h *LocalHost) Remove(_ context.Context, paths ...string) error {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

// RemoveAll deletes a tree
func (h *LocalHost) RemoveAll(_ context.Context, path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
