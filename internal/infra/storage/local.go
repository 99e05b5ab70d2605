package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"jpk2json-service/internal/domain/ports/repository"
)

var _ repository.ArtifactStore = (*LocalStore)(nil)

// LocalStore keeps artifacts on the local filesystem, one upload dir and one
// output dir, files prefixed with the owning job id so cleanup can find
// everything a job produced.
type LocalStore struct {
	uploadDir string
	outputDir string
}

func NewLocalStore(uploadDir, outputDir string) (*LocalStore, error) {
	for _, dir := range []string{uploadDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create artifact dir %s: %w", dir, err)
		}
	}
	return &LocalStore{uploadDir: uploadDir, outputDir: outputDir}, nil
}

// SanitizeFilename strips any path components and characters that have no
// business in a stored filename.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		out = "upload"
	}
	return out
}

func (s *LocalStore) SaveInput(ctx context.Context, jobID, filename string, r io.Reader) (string, int64, error) {
	path := filepath.Join(s.uploadDir, fmt.Sprintf("%s_%s", jobID, SanitizeFilename(filename)))
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create input artifact: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("write input artifact: %w", err)
	}
	return path, n, nil
}

func (s *LocalStore) OutputPath(jobID, filename string) string {
	base := SanitizeFilename(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
	return filepath.Join(s.outputDir, fmt.Sprintf("%s_%s", jobID, base))
}

func (s *LocalStore) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (s *LocalStore) Size(path string) (int64, bool) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	return fi.Size(), true
}

func (s *LocalStore) RemoveAll(jobID string) error {
	if jobID == "" {
		return nil
	}
	for _, dir := range []string{s.uploadDir, s.outputDir} {
		matches, err := filepath.Glob(filepath.Join(dir, jobID+"_*"))
		if err != nil {
			continue
		}
		for _, m := range matches {
			_ = os.Remove(m)
		}
	}
	return nil
}
