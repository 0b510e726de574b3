package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/entities"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces/gateways"
)

// licenseTool is the vendor's license wizard inside the install root
const licenseTool = "stinit"

// licenseHandler places the license for one source
type licenseHandler func(ctx context.Context, s *LicenseService, workingDir string) error

// licenseHandlers is keyed by every license source. A nil entry means the
// license is already in place.
var licenseHandlers = map[entities.LicenseSource]licenseHandler{
	entities.LicenseFromCache:       nil,
	entities.LicenseFromDecrypt:     applyDecryptedLicense,
	entities.LicenseFromEnv:         applyEnvLicense,
	entities.LicenseFromInteractive: applyInteractiveLicense,
	entities.LicenseFromPassword:    applyDownloadedLicense,
}

// LicenseService writes the license file or drives the vendor license tool
type LicenseService struct {
	profile     *entities.Profile
	acquisition *AcquisitionService
	host        gateways.Host
	runner      gateways.CommandRunner
	creds       gateways.Credentials
	logger      interfaces.Logger
}

// NewLicenseService creates a new license service
func NewLicenseService(
	profile *entities.Profile,
	acquisition *AcquisitionService,
	host gateways.Host,
	runner gateways.CommandRunner,
	creds gateways.Credentials,
	logger interfaces.Logger,
) *LicenseService {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &LicenseService{
		profile:     profile,
		acquisition: acquisition,
		host:        host,
		runner:      runner,
		creds:       creds,
		logger:      logger,
	}
}

// ApplyLicense places the license according to source
func (s *LicenseService) ApplyLicense(ctx context.Context, source entities.LicenseSource, workingDir string) error {
	handler, ok := licenseHandlers[source]
	if !ok {
		return entities.NewConfigurationError(fmt.Sprintf("unknown license source %q", source), nil)
	}
	if handler == nil {
		s.logger.Debug("Using cached license", interfaces.F("path", s.profile.LicensePath()))
		return nil
	}

	if err := handler(ctx, s, workingDir); err != nil {
		return err
	}
	s.logger.Info("License applied", interfaces.F("source", source))
	return nil
}

func applyDecryptedLicense(ctx context.Context, s *LicenseService, workingDir string) error {
	encrypted := s.profile.EncryptedLicensePath(workingDir)
	//nolint:gosec // G304: encrypted license path is resolved from the working directory
	src, err := os.Open(encrypted)
	if err != nil {
		return entities.NewConfigurationError(fmt.Sprintf("cannot open %s", encrypted), err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer src.Close()

	return s.writeLicense(ctx, func(w io.Writer) error {
		return s.acquisition.DecryptLicense(ctx, src, w)
	})
}

func applyEnvLicense(ctx context.Context, s *LicenseService, _ string) error {
	if s.creds.Has(entities.CredLicenseBlob) {
		return s.writeLicense(ctx, func(w io.Writer) error {
			return s.creds.Open(entities.CredLicenseBlob, func(blob []byte) error {
				_, err := w.Write(blob)
				return err
			})
		})
	}

	var missing []entities.CredentialName
	for _, name := range entities.LicenseFields {
		if !s.creds.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return entities.NewConfigurationError(fmt.Sprintf(
			"license source env needs %s, or all of %s (missing %s)",
			entities.CredLicenseBlob, joinNames(entities.LicenseFields), joinNames(missing)), nil)
	}

	if err := s.removeExistingLicense(ctx); err != nil {
		return err
	}

	answers, err := s.licenseToolAnswers()
	if err != nil {
		return err
	}
	defer wipe(answers)

	result := s.runner.Run(ctx, gateways.Command{
		Name:        s.profile.ExecutablePath(licenseTool),
		Dir:         s.profile.Paths.InstallRoot,
		Stdin:       bytes.NewReader(answers),
		Privileged:  true,
		Timeout:     5 * time.Minute,
		Description: "license tool",
	})
	return result.Failure("license tool " + licenseTool)
}

func applyInteractiveLicense(ctx context.Context, s *LicenseService, _ string) error {
	s.logger.Info("Starting the Stata license wizard")
	result := s.runner.Run(ctx, gateways.Command{
		Name:        s.profile.ExecutablePath(licenseTool),
		Dir:         s.profile.Paths.InstallRoot,
		Privileged:  true,
		Interactive: true,
		Description: "interactive license tool",
	})
	return result.Failure("license tool " + licenseTool)
}

func applyDownloadedLicense(ctx context.Context, s *LicenseService, _ string) error {
	return s.writeLicense(ctx, func(w io.Writer) error {
		return s.acquisition.FetchLicense(ctx, w)
	})
}

// writeLicense truncates the license file and fills it from fn inside the permission bracket
func (s *LicenseService) writeLicense(ctx context.Context, fn func(w io.Writer) error) error {
	path := s.profile.LicensePath()
	return withWritable(ctx, s.host, path, func() error {
		//nolint:gosec // G302,G304: license path comes from the profile; mode is narrowed by the bracket
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
		if err != nil {
			return fmt.Errorf("failed to open license file: %w", err)
		}
		if err := fn(f); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	})
}

// removeExistingLicense deletes a previous license and checks it is gone
func (s *LicenseService) removeExistingLicense(ctx context.Context) error {
	path := s.profile.LicensePath()
	if err := s.host.Remove(ctx, path); err != nil {
		return fmt.Errorf("failed to remove existing license: %w", err)
	}
	if _, err := os.Lstat(path); !errors.Is(err, fs.ErrNotExist) {
		return entities.NewExternalToolFailure("remove existing license", 0, "",
			fmt.Errorf("%s still present after removal", path))
	}
	return nil
}

// licenseToolAnswers scripts the license wizard: accept the prompts, then
// serial, code and authorization, confirm, then licensee name and institution
func (s *LicenseService) licenseToolAnswers() ([]byte, error) {
	var b bytes.Buffer
	b.Grow(1024)
	b.WriteString("Y\nY\n")

	appendField := func(name entities.CredentialName) error {
		return s.creds.Open(name, func(v []byte) error {
			b.Write(v)
			b.WriteByte('\n')
			return nil
		})
	}

	fields := entities.LicenseFields
	for _, name := range fields[:3] {
		if err := appendField(name); err != nil {
			return nil, err
		}
	}
	b.WriteString("Y\nY\n")
	for _, name := range fields[3:] {
		if err := appendField(name); err != nil {
			return nil, err
		}
	}
	b.WriteString("Y\n")
	return b.Bytes(), nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
