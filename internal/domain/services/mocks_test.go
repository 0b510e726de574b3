package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/entities"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces/gateways"
)

var fixedTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// testProfile points every path of the default layout into dir
func testProfile(dir string) *entities.Profile {
	return &entities.Profile{
		SupportedVersions: ">= 15",
		Paths: entities.ProfilePaths{
			InstallRoot:      filepath.Join(dir, "stata"),
			BinDir:           filepath.Join(dir, "bin"),
			TempDir:          filepath.Join(dir, "statafiles"),
			AdoDir:           filepath.Join(dir, "ado"),
			AddonScratchDir:  filepath.Join(dir, "statafiles_project"),
			LicenseFile:      "stata.lic",
			EncryptedLicense: "stata.lic.encrypted",
			LogFile:          "stata.log",
		},
		Download: entities.ProfileDownload{
			Username:              "oi",
			EncryptedInstallerURL: "https://files.test/St{version}Linux64.encrypted",
			InstallerName:         "Stata{version}Linux64.tar.gz",
			LicenseName:           "stata.lic",
		},
		Dependencies: entities.ProfileDependencies{
			Required:         []string{"libtinfo5", "libncurses5"},
			EncryptionHelper: "age",
			ThemeShim:        "gtk2-engines-pixbuf",
			WindowManagers:   []string{"gnome-shell", "xfce4-session", "xpra"},
		},
		Addons: entities.ProfileAddons{
			RequireSource:    "https://raw.githubusercontent.com/sergiocorreia/stata-require/1.4.0/src/",
			RequirementsFile: "packages-stata.txt",
			SetrootSource:    "https://raw.githubusercontent.com/sergiocorreia/stata-setroot/master/src/",
			ProjectArchive:   "project_stata.zip",
		},
	}
}

// mockCredentials is a plain map of secrets
type mockCredentials map[entities.CredentialName]string

func (m mockCredentials) Has(name entities.CredentialName) bool {
	return m[name] != ""
}

func (m mockCredentials) Open(name entities.CredentialName, fn func([]byte) error) error {
	if !m.Has(name) {
		return fmt.Errorf("credential %s is not set", name)
	}
	return fn([]byte(m[name]))
}

// recordingLogger keeps every message by level
type recordingLogger struct {
	mu    sync.Mutex
	infos []string
	warns []string
}

func (l *recordingLogger) Debug(_ string, _ ...interfaces.Field) {}

func (l *recordingLogger) Info(msg string, _ ...interfaces.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Warn(msg string, _ ...interfaces.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(msg string, _ ...interfaces.Field) {
	l.Warn(msg)
}

func (l *recordingLogger) warned(substr string) bool {
	for _, w := range l.warns {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

// mockHost performs real filesystem operations and records them.
// failChmod makes a chmod with that mode fail.
type mockHost struct {
	calls     []string
	failChmod map[string]error
	failOp    map[string]error
}

func newMockHost() *mockHost {
	return &mockHost{failChmod: map[string]error{}, failOp: map[string]error{}}
}

func (h *mockHost) record(format string, args ...interface{}) {
	h.calls = append(h.calls, fmt.Sprintf(format, args...))
}

func (h *mockHost) MkdirAll(_ context.Context, path string) error {
	h.record("mkdir %s", path)
	if err := h.failOp["mkdir"]; err != nil {
		return err
	}
	return os.MkdirAll(path, 0o755)
}

func (h *mockHost) Touch(_ context.Context, path string) error {
	h.record("touch %s", path)
	if err := h.failOp["touch"]; err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	//nolint:gosec // test helper
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Chmod(path, 0o644)
}

func (h *mockHost) Chmod(_ context.Context, path string, change gateways.ModeChange, recursive bool) error {
	h.record("chmod %s %v %s", change, recursive, path)
	if err := h.failChmod[change.String()]; err != nil {
		return err
	}
	apply := func(p string) error {
		info, err := os.Lstat(p)
		if err != nil {
			return err
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return nil
		}
		return os.Chmod(p, fs.FileMode(change.Apply(uint32(info.Mode().Perm()))))
	}
	if !recursive {
		return apply(path)
	}
	return filepath.WalkDir(path, func(p string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return apply(p)
	})
}

func (h *mockHost) Symlink(_ context.Context, target, link string) error {
	h.record("ln %s %s", target, link)
	if err := h.failOp["ln"]; err != nil {
		return err
	}
	if err := os.Remove(link); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Symlink(target, link)
}

func (h *mockHost) Remove(_ context.Context, paths ...string) error {
	h.record("rm %s", strings.Join(paths, " "))
	if err := h.failOp["rm"]; err != nil {
		return err
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (h *mockHost) RemoveAll(_ context.Context, path string) error {
	h.record("rm -rf %s", path)
	return os.RemoveAll(path)
}

func (h *mockHost) count(prefix string) int {
	n := 0
	for _, c := range h.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// mockRunner records commands and answers by command line
type mockRunner struct {
	commands []gateways.Command
	stdins   []string
	results  map[string]*gateways.CommandResult
	// onRun runs before the result is returned, e.g. to fake side effects
	onRun func(c gateways.Command)
}

func newMockRunner() *mockRunner {
	return &mockRunner{results: map[string]*gateways.CommandResult{}}
}

func (r *mockRunner) Run(_ context.Context, c gateways.Command) *gateways.CommandResult {
	r.commands = append(r.commands, c)
	stdin := ""
	if c.Stdin != nil {
		if _, infinite := c.Stdin.(*yesStream); infinite {
			stdin = "<yes>"
		} else {
			data, _ := io.ReadAll(c.Stdin)
			stdin = string(data)
		}
	}
	r.stdins = append(r.stdins, stdin)
	if r.onRun != nil {
		r.onRun(c)
	}
	if res, ok := r.results[line(c)]; ok {
		return res
	}
	return &gateways.CommandResult{Success: true, Started: true}
}

func (r *mockRunner) lines() []string {
	out := make([]string, len(r.commands))
	for i, c := range r.commands {
		out[i] = line(c)
	}
	return out
}

func line(c gateways.Command) string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// mockPackages is an in-memory package database
type mockPackages struct {
	installed  map[string]bool
	available  map[string]bool
	installs   [][]string
	installErr error
}

func (m *mockPackages) Snapshot(_ context.Context) (*entities.PackageSnapshot, error) {
	var b strings.Builder
	for name := range m.installed {
		fmt.Fprintf(&b, "ii  %s  1.0  amd64  package\n", name)
	}
	return entities.NewPackageSnapshot(b.String(), fixedTime), nil
}

func (m *mockPackages) IsAvailable(_ context.Context, pkg string) (bool, error) {
	return m.available[pkg], nil
}

func (m *mockPackages) Install(_ context.Context, pkgs []string) error {
	m.installs = append(m.installs, append([]string(nil), pkgs...))
	if m.installErr != nil {
		return m.installErr
	}
	for _, p := range pkgs {
		m.installed[p] = true
	}
	return nil
}

// mockProcesses returns fixed process names
type mockProcesses struct {
	names []string
	err   error
}

func (m *mockProcesses) ProcessNames(_ context.Context) ([]string, error) {
	return m.names, m.err
}

// mockFetcher serves bodies by URL and records requests without passwords
type mockFetcher struct {
	bodies   map[string]string
	err      error
	requests []gateways.FetchRequest
	// passwords seen, copied because the caller's slice is only valid during Fetch
	passwords []string
}

func (m *mockFetcher) Fetch(_ context.Context, req gateways.FetchRequest, dst io.Writer) (int64, error) {
	m.passwords = append(m.passwords, string(req.Password))
	req.Password = nil
	m.requests = append(m.requests, req)
	if m.err != nil {
		return 0, m.err
	}
	body, ok := m.bodies[req.URL]
	if !ok {
		return 0, fmt.Errorf("HTTP 404: 404 Not Found")
	}
	n, err := io.WriteString(dst, body)
	return int64(n), err
}

// mockDecrypter "decrypts" by stripping a prefix and checking the key
type mockDecrypter struct {
	key string
}

func (m *mockDecrypter) Decrypt(_ context.Context, src io.Reader, dst io.Writer, secret []byte) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	if string(secret) != m.key {
		return errors.New("no identity matched any of the recipients")
	}
	if !strings.HasPrefix(string(data), "enc:") {
		return errors.New("not an encrypted payload")
	}
	_, err = io.WriteString(dst, strings.TrimPrefix(string(data), "enc:"))
	return err
}

// mockChecksum accepts one digest
type mockChecksum struct {
	want string
}

func (m *mockChecksum) VerifyChecksum(_ context.Context, _, expected string) error {
	if expected != m.want {
		return fmt.Errorf("checksum mismatch")
	}
	return nil
}

// mockExtractor records archives and creates a marker file
type mockExtractor struct {
	extracted []string
	err       error
}

func (m *mockExtractor) ExtractTarGz(archive, dest string) error {
	m.extracted = append(m.extracted, archive)
	if m.err != nil {
		return m.err
	}
	return os.WriteFile(filepath.Join(dest, "install"), []byte("#!/bin/sh\n"), 0o600)
}

func (m *mockExtractor) ExtractZip(archive, dest string) error {
	m.extracted = append(m.extracted, archive)
	if m.err != nil {
		return m.err
	}
	return os.WriteFile(filepath.Join(dest, "project.ado"), []byte("program define project\n"), 0o600)
}

// mockTerminal reports a fixed answer
type mockTerminal bool

func (m mockTerminal) StdinIsTerminal() bool { return bool(m) }
