package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/entities"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces/gateways"
)

// installerStrategy writes the installer archive for a version to path
type installerStrategy func(ctx context.Context, s *AcquisitionService, version int, path string) error

// installerStrategies is keyed by every install source. A nil entry means
// nothing is fetched.
var installerStrategies = map[entities.InstallSource]installerStrategy{
	// cache assumes the product is already installed under the install root
	entities.InstallFromCache:    nil,
	entities.InstallFromDecrypt:  fetchEncryptedInstaller,
	entities.InstallFromPassword: fetchPasswordInstaller,
}

// AcquisitionService obtains installer archives and remote license files
type AcquisitionService struct {
	profile   *entities.Profile
	fetcher   gateways.Fetcher
	decrypter gateways.Decrypter
	checksum  gateways.ChecksumVerifier
	creds     gateways.Credentials
	logger    interfaces.Logger
}

// NewAcquisitionService creates a new acquisition service
func NewAcquisitionService(
	profile *entities.Profile,
	fetcher gateways.Fetcher,
	decrypter gateways.Decrypter,
	checksum gateways.ChecksumVerifier,
	creds gateways.Credentials,
	logger interfaces.Logger,
) *AcquisitionService {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &AcquisitionService{
		profile:   profile,
		fetcher:   fetcher,
		decrypter: decrypter,
		checksum:  checksum,
		creds:     creds,
		logger:    logger,
	}
}

// FetchInstaller obtains the installer archive. It returns nil for the cache source.
func (s *AcquisitionService) FetchInstaller(ctx context.Context, source entities.InstallSource, version int) (*entities.InstallArtifact, error) {
	strategy, ok := installerStrategies[source]
	if !ok {
		return nil, entities.NewConfigurationError(fmt.Sprintf("unknown install source %q", source), nil)
	}
	if strategy == nil {
		s.logger.Debug("Using cached installation", interfaces.F("source", source))
		return nil, nil
	}

	dir := s.profile.Paths.TempDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	path := s.profile.InstallerPath(version)
	s.logger.Info(fmt.Sprintf("Downloading Stata %d installer", version), interfaces.F("source", source))

	if err := strategy(ctx, s, version, path); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	if pin := s.profile.Download.InstallerSHA256; pin != "" {
		if err := s.checksum.VerifyChecksum(ctx, path, pin); err != nil {
			_ = os.Remove(path)
			return nil, entities.NewExternalToolFailure("verify installer checksum", 0, "", err)
		}
		s.logger.Debug("Installer checksum verified", interfaces.F("path", path))
	}

	return &entities.InstallArtifact{
		Version: version,
		Source:  source,
		Path:    path,
		Dir:     dir,
	}, nil
}

func fetchEncryptedInstaller(ctx context.Context, s *AcquisitionService, version int, path string) error {
	url := s.profile.EncryptedInstallerURL(version)
	return writeFile(path, func(w io.Writer) error {
		return s.decryptStream(ctx, "decrypt installer", gateways.FetchRequest{URL: url}, w)
	})
}

func fetchPasswordInstaller(ctx context.Context, s *AcquisitionService, version int, path string) error {
	return writeFile(path, func(w io.Writer) error {
		return s.fetchAuthenticated(ctx, "download installer", func(base string) string {
			return s.profile.InstallerURL(base, version)
		}, w)
	})
}

// decryptStream pipes a download through the decrypter into w
func (s *AcquisitionService) decryptStream(ctx context.Context, step string, req gateways.FetchRequest, w io.Writer) error {
	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := s.fetcher.Fetch(ctx, req, pw)
		_ = pw.CloseWithError(err)
	}()

	err := s.creds.Open(entities.CredAgePrivateKey, func(key []byte) error {
		return s.decrypter.Decrypt(ctx, pr, w, key)
	})
	// unblock the fetch when decryption stopped early
	_ = pr.CloseWithError(io.ErrClosedPipe)
	<-done

	if err != nil {
		return entities.NewExternalToolFailure(step, 0, "", err)
	}
	return nil
}

// fetchAuthenticated downloads from a URL under STATA_URL_BASE with basic auth
func (s *AcquisitionService) fetchAuthenticated(ctx context.Context, step string, urlFor func(base string) string, w io.Writer) error {
	var url string
	if err := s.creds.Open(entities.CredURLBase, func(base []byte) error {
		url = urlFor(string(base))
		return nil
	}); err != nil {
		return entities.NewConfigurationError(step+" needs "+string(entities.CredURLBase), err)
	}

	err := s.creds.Open(entities.CredURLPassword, func(password []byte) error {
		_, err := s.fetcher.Fetch(ctx, gateways.FetchRequest{
			URL:      url,
			Username: s.profile.Download.Username,
			Password: password,
		}, w)
		return err
	})
	if err != nil {
		return entities.NewExternalToolFailure(step, 0, "", err)
	}
	return nil
}

// writeFile creates path, hands it to fn and removes it again if fn fails
func writeFile(path string, fn func(w io.Writer) error) error {
	//nolint:gosec // G304: path comes from the profile
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}

	if err := fn(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}
	return nil
}

// FetchLicense downloads the license file from STATA_URL_BASE into w
func (s *AcquisitionService) FetchLicense(ctx context.Context, w io.Writer) error {
	return s.fetchAuthenticated(ctx, "download license", s.profile.LicenseURL, w)
}

// DecryptLicense decrypts an encrypted license read from src into w
func (s *AcquisitionService) DecryptLicense(ctx context.Context, src io.Reader, w io.Writer) error {
	err := s.creds.Open(entities.CredAgePrivateKey, func(key []byte) error {
		return s.decrypter.Decrypt(ctx, src, w, key)
	})
	if err != nil {
		return entities.NewExternalToolFailure("decrypt license", 0, "", err)
	}
	return nil
}

// FetchProjectArchive downloads the project add-on archive from STATA_URL_BASE into w
func (s *AcquisitionService) FetchProjectArchive(ctx context.Context, w io.Writer) error {
	return s.fetchAuthenticated(ctx, "download project add-on", func(base string) string {
		return entities.JoinURL(base, s.profile.Addons.ProjectArchive)
	}, w)
}
