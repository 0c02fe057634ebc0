// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package exportstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/logging"
)

const filePrefix = "audit-export-"

// ErrInvalidJobID is returned for job ids that are not UUIDs. Job ids become
// file names, so anything else is refused.
var ErrInvalidJobID = errors.New("export job id must be a UUID")

// Config configures a FileSink.
type Config struct {
	Dir      string
	Compress bool
	MaxFiles int
}

// Export describes one stored export file.
type Export struct {
	JobID     string             `json:"jobId"`
	Format    audit.ExportFormat `json:"format"`
	Path      string             `json:"path"`
	Size      int64              `json:"size"`
	CreatedAt time.Time          `json:"createdAt"`
}

// FileSink stores exports on the local filesystem.
type FileSink struct {
	config Config
	mu     sync.Mutex
	now    func() time.Time
}

var _ audit.ExportSink = (*FileSink)(nil)

// NewFileSink creates the export directory if needed.
func NewFileSink(cfg Config) (*FileSink, error) {
	if cfg.Dir == "" {
		return nil, errors.New("export directory is required")
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve export directory: %w", err)
	}
	cfg.Dir = dir
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &FileSink{config: cfg, now: time.Now}, nil
}

// Put implements audit.ExportSink and returns the absolute file path.
func (s *FileSink) Put(ctx context.Context, jobID string, format audit.ExportFormat, data []byte) (string, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidJobID, jobID)
	}
	format, err := audit.ParseExportFormat(string(format))
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := s.fileName(jobID, format)
	path := filepath.Join(s.config.Dir, name)
	if err := s.writeAtomic(path, data); err != nil {
		return "", err
	}

	logging.Ctx(ctx).Info().
		Str("job_id", jobID).
		Str("path", path).
		Int("bytes", len(data)).
		Bool("compressed", s.config.Compress).
		Msg("Audit export stored")

	if s.config.MaxFiles > 0 {
		s.pruneLocked(ctx)
	}
	return path, nil
}

func (s *FileSink) fileName(jobID string, format audit.ExportFormat) string {
	name := fmt.Sprintf("%s%s-%s.%s", filePrefix, s.now().UTC().Format("20060102T150405Z"), jobID, format)
	if s.config.Compress {
		name += ".gz"
	}
	return name
}

// writeAtomic writes into a temporary file in the same directory and renames
// it over path.
func (s *FileSink) writeAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(s.config.Dir, ".export-*.tmp")
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()           //nolint:errcheck // already failing
			os.Remove(tmp.Name()) //nolint:errcheck // already failing
		}
	}()

	var w io.Writer = tmp
	var gz *gzip.Writer
	if s.config.Compress {
		gz = gzip.NewWriter(tmp)
		w = gz
	}
	if _, err = w.Write(data); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	if gz != nil {
		if err = gz.Close(); err != nil {
			return fmt.Errorf("finish gzip stream: %w", err)
		}
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync export file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o640); err != nil {
		return fmt.Errorf("chmod export file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename export file: %w", err)
	}
	return nil
}

// List returns stored exports, newest first.
func (s *FileSink) List() ([]Export, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

func (s *FileSink) listLocked() ([]Export, error) {
	entries, err := os.ReadDir(s.config.Dir)
	if err != nil {
		return nil, fmt.Errorf("read export directory: %w", err)
	}

	exports := make([]Export, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		exp, ok := parseFileName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		exp.Path = filepath.Join(s.config.Dir, entry.Name())
		exp.Size = info.Size()
		exports = append(exports, exp)
	}

	sort.Slice(exports, func(i, j int) bool {
		if !exports[i].CreatedAt.Equal(exports[j].CreatedAt) {
			return exports[i].CreatedAt.After(exports[j].CreatedAt)
		}
		return exports[i].Path > exports[j].Path
	})
	return exports, nil
}

// Open returns a reader over the decompressed content of an export.
func (s *FileSink) Open(jobID string) (io.ReadCloser, error) {
	exports, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, exp := range exports {
		if exp.JobID != jobID {
			continue
		}
		f, err := os.Open(exp.Path)
		if err != nil {
			return nil, fmt.Errorf("open export: %w", err)
		}
		if !strings.HasSuffix(exp.Path, ".gz") {
			return f, nil
		}
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("read gzip header: %w", err)
		}
		return &gzipFile{Reader: gz, file: f}, nil
	}
	return nil, fmt.Errorf("export %s: %w", jobID, audit.ErrNotFound)
}

// pruneLocked deletes the oldest exports beyond MaxFiles. Failures are
// logged; the export that triggered the prune has already succeeded.
func (s *FileSink) pruneLocked(ctx context.Context) {
	exports, err := s.listLocked()
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to list exports for pruning")
		return
	}
	if len(exports) <= s.config.MaxFiles {
		return
	}

	removed := 0
	for _, exp := range exports[s.config.MaxFiles:] {
		if err := os.Remove(exp.Path); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("path", exp.Path).Msg("Failed to prune export")
			continue
		}
		removed++
	}
	logging.Ctx(ctx).Info().Int("removed", removed).Int("kept", s.config.MaxFiles).Msg("Pruned old exports")
}

// parseFileName reverses fileName.
func parseFileName(name string) (Export, bool) {
	if !strings.HasPrefix(name, filePrefix) {
		return Export{}, false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ".gz")

	stamp, rest, ok := strings.Cut(rest, "-")
	if !ok {
		return Export{}, false
	}
	created, err := time.Parse("20060102T150405Z", stamp)
	if err != nil {
		return Export{}, false
	}

	dot := strings.LastIndexByte(rest, '.')
	if dot < 0 {
		return Export{}, false
	}
	jobID, ext := rest[:dot], rest[dot+1:]
	format, err := audit.ParseExportFormat(ext)
	if err != nil {
		return Export{}, false
	}
	if _, err := uuid.Parse(jobID); err != nil {
		return Export{}, false
	}
	return Export{JobID: jobID, Format: format, CreatedAt: created}, true
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	return errors.Join(g.Reader.Close(), g.file.Close())
}
