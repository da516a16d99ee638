// Package pipeline implements the multi-step protocol that installs,
// updates, and verifies one title: manifest fetch, validation, per-file
// download with integrity checks, and local manifest persistence. Each entry
// point returns a closure suitable for handing to the task registry; mutual
// exclusion per title is the caller's job, not the pipeline's.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"launcherd/internal/fault"
	"launcherd/internal/fetch"
	"launcherd/internal/manifest"
	"launcherd/internal/tasks"
)

// Progress checkpoints. The fractions are part of the pipeline's contract:
// the status hub maps them back to externally visible states.
const (
	progressFetchManifest = 0.05
	progressParseManifest = 0.10
	progressFilesBegin    = 0.15
	progressFilesEnd      = 0.95
)

// Pipeline builds install/update/verify closures around a network fetcher.
type Pipeline struct {
	fetcher fetch.Fetcher
	logger  *slog.Logger
}

// New creates a pipeline using the given fetch collaborator.
func New(fetcher fetch.Fetcher, logger *slog.Logger) *Pipeline {
	return &Pipeline{fetcher: fetcher, logger: logger}
}

// Install returns the work closure for an end-to-end install or update of
// one title. On any single-file failure the whole operation aborts; there is
// no partial-install-then-continue and no retry at this layer. Cancellation
// is consulted at every file boundary, so a download already in flight
// completes before the loop observes the request.
func (p *Pipeline) Install(titleID, manifestURL, installPath string) tasks.Work {
	return func(ctx context.Context, report tasks.ProgressFunc) error {
		report(progressFetchManifest, "Downloading manifest...")
		data, err := p.fetcher.FetchBytes(ctx, manifestURL)
		if err != nil {
			return fmt.Errorf("download manifest: %w", err)
		}

		report(progressParseManifest, "Parsing manifest...")
		m, err := manifest.Parse(data)
		if err != nil {
			return err
		}

		report(progressFilesBegin, "Validating manifest...")
		p.logger.Info("manifest validated", "title_id", titleID, "files", len(m.Files), "game_version", m.GameVersion)

		total := len(m.Files)
		span := progressFilesEnd - progressFilesBegin
		for i, entry := range m.Files {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("installation cancelled: %w", err)
			}

			report(progressFilesBegin+span*float64(i)/float64(total), "Downloading: "+entry.Path)

			dest, err := destinationPath(installPath, entry.Path)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return fmt.Errorf("%w: create directory for %s: %v", fault.ErrInternal, entry.Path, err)
			}

			p.logger.Info("downloading file", "title_id", titleID, "path", entry.Path, "index", i+1, "total", total)
			if err := p.fetcher.FetchToFile(ctx, entry.DownloadURL, dest); err != nil {
				return fmt.Errorf("download %s: %w", entry.Path, err)
			}
			if fi, statErr := os.Stat(dest); statErr == nil {
				bytesDownloaded.Add(float64(fi.Size()))
			}

			if err := verifyFileHash(dest, entry.Hash); err != nil {
				return err
			}
		}

		report(progressFilesEnd, "Saving local manifest...")
		if err := manifest.SaveLocal(titleID, installPath, m); err != nil {
			return fmt.Errorf("save local manifest: %w", err)
		}

		report(1.0, fmt.Sprintf("Installed %d files for %s (version %s).", total, titleID, m.GameVersion))
		return nil
	}
}

// Verify returns the work closure for the verification-only path: it loads
// the local manifest and checks existence and content hash for every listed
// file. Unlike install, it does not abort on the first failure — it collects
// every mismatched path and reports them all at once.
func (p *Pipeline) Verify(titleID, installPath string) tasks.Work {
	return func(ctx context.Context, report tasks.ProgressFunc) error {
		report(progressFetchManifest, "Loading local manifest...")
		m, err := manifest.LoadLocal(titleID, installPath)
		if err != nil {
			return fmt.Errorf("load local manifest: %w", err)
		}

		total := len(m.Files)
		if total == 0 {
			p.logger.Warn("local manifest lists no files", "title_id", titleID)
		}

		var failed []string
		for i, entry := range m.Files {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("verification cancelled: %w", err)
			}

			report(0.10+0.85*float64(i)/float64(max(total, 1)), "Verifying "+entry.Path+"...")

			dest, err := destinationPath(installPath, entry.Path)
			if err != nil {
				return err
			}
			if _, statErr := os.Stat(dest); statErr != nil {
				p.logger.Warn("verification failed: file missing", "title_id", titleID, "path", entry.Path)
				failed = append(failed, entry.Path)
				filesFailed.Inc()
				continue
			}
			if hashErr := verifyFileHash(dest, entry.Hash); hashErr != nil {
				p.logger.Warn("verification failed: hash mismatch", "title_id", titleID, "path", entry.Path)
				failed = append(failed, entry.Path)
				filesFailed.Inc()
				continue
			}
			filesVerified.Inc()
		}

		if len(failed) > 0 {
			report(1.0, "Verification failed.")
			return fmt.Errorf("%w: verification failed for files: %s", fault.ErrDataLoss, strings.Join(failed, ", "))
		}

		report(1.0, "Verification complete.")
		return nil
	}
}

// destinationPath resolves a manifest-relative path under the install path,
// rejecting entries that would escape it.
func destinationPath(installPath, relative string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(relative))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: manifest path %q escapes install directory", fault.ErrInvalidArgument, relative)
	}
	return filepath.Join(installPath, clean), nil
}
