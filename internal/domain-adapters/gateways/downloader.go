package gateways

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces/gateways"
)

// maxExtractedFileSize bounds a single archive member (decompression bombs)
const maxExtractedFileSize = 4 << 30

// Downloader fetches installers and licenses over HTTP and unpacks archives
type Downloader struct {
	httpClient *http.Client
	logger     interfaces.Logger
}

// NewDownloader creates a new downloader
func NewDownloader(logger interfaces.Logger, timeout time.Duration) *Downloader {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	if timeout == 0 {
		timeout = 30 * time.Minute // installers are large
	}
	return &Downloader{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Fetch streams the URL into dst, using HTTP basic auth when a username is set
func (d *Downloader) Fetch(ctx context.Context, req gateways.FetchRequest, dst io.Writer) (int64, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("User-Agent", "stata-install/1.0")
	if req.Username != "" {
		httpReq.SetBasicAuth(req.Username, string(req.Password))
	}

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	written, err := io.Copy(dst, resp.Body)
	if err != nil {
		return written, fmt.Errorf("failed to write download: %w", err)
	}

	d.logger.Debug("Downloaded", interfaces.F("url", redactURL(req.URL)), interfaces.F("bytes", written))
	return written, nil
}

// ExtractTarGz extracts a .tar.gz file to destination directory
func (d *Downloader) ExtractTarGz(tarPath, destDir string) error {
	//nolint:gosec // G304: archive path comes from the acquisition step
	file, err := os.Open(tarPath)
	if err != nil {
		return fmt.Errorf("failed to open tar.gz: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer file.Close()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	//nolint:errcheck // Defer close on gzip reader
	defer gzr.Close()

	tr := tar.NewReader(gzr)

	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	// Symlinks are created after all regular files exist
	type symlinkInfo struct {
		target   string
		linkname string
	}
	var symlinks []symlinkInfo

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tar read error: %w", err)
		}

		target, err := containedPath(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

		case tar.TypeReg:
			//nolint:gosec // G115: tar header mode fits in FileMode
			if err := writeMember(target, tr, os.FileMode(header.Mode)); err != nil {
				return err
			}

		case tar.TypeSymlink:
			symlinks = append(symlinks, symlinkInfo{target: target, linkname: header.Linkname})

		default:
			d.logger.Warn("Ignoring unsupported archive member",
				interfaces.F("type", string(header.Typeflag)),
				interfaces.F("name", header.Name))
		}
	}

	for _, link := range symlinks {
		if err := os.MkdirAll(filepath.Dir(link.target), 0o750); err != nil {
			return fmt.Errorf("failed to create directory for symlink: %w", err)
		}
		if err := os.Symlink(link.linkname, link.target); err != nil {
			d.logger.Warn("Failed to create symlink from archive",
				interfaces.F("link", link.target),
				interfaces.F("target", link.linkname),
				interfaces.F("error", err))
		}
	}

	d.logger.Debug("Extracted archive", interfaces.F("archive", tarPath), interfaces.F("dest", destDir))
	return nil
}

// ExtractZip extracts a .zip file to destination directory
func (d *Downloader) ExtractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
	}
	//nolint:errcheck // Defer close on read-only archive
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	for _, f := range r.File {
		target, err := containedPath(destDir, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s in zip: %w", f.Name, err)
		}
		err = writeMember(target, rc, f.Mode().Perm())
		_ = rc.Close()
		if err != nil {
			return err
		}
	}

	d.logger.Debug("Extracted archive", interfaces.F("archive", zipPath), interfaces.F("dest", destDir))
	return nil
}

// containedPath joins name onto destDir and rejects paths escaping it
func containedPath(destDir, name string) (string, error) {
	//nolint:gosec // G305: path traversal is checked below
	target := filepath.Join(destDir, name)
	cleanDest := filepath.Clean(destDir)
	if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid file path in archive: %s", name)
	}
	return target, nil
}

func writeMember(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	if mode == 0 {
		mode = 0o644
	}

	//nolint:gosec // G304: target is validated by containedPath
	out, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(out, io.LimitReader(r, maxExtractedFileSize)); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

// redactURL drops user info and query so logs never carry credentials
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}
