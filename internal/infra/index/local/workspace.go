package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	domain "github.com/bryanwahyu/comment-analyzer/internal/domain/comments"
)

const currentFile = "current_video"

// Workspace is the on-disk directory holding one sub directory per video.
type Workspace struct {
	dir string
}

func NewWorkspace(dir string) *Workspace {
	return &Workspace{dir: dir}
}

func (w *Workspace) Dir() string { return w.dir }

// VideoDir path for a single video
func (w *Workspace) VideoDir(videoID string) string {
	return filepath.Join(w.dir, videoID)
}

func (w *Workspace) MetadataPath(videoID string) string {
	return filepath.Join(w.VideoDir(videoID), domain.MetadataFile)
}

// Exists reports whether the workspace directory is present on disk.
func (w *Workspace) Exists() bool {
	info, err := os.Stat(w.dir)
	return err == nil && info.IsDir()
}

func (w *Workspace) WriteMetadata(videoID string, m *domain.Metadata) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(w.MetadataPath(videoID), b)
}

// ReadMetadata decodes the metadata file as generic JSON. ok is false when
// the file does not exist.
func (w *Workspace) ReadMetadata(videoID string) (any, bool, error) {
	b, err := os.ReadFile(w.MetadataPath(videoID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (w *Workspace) LoadMetadata(videoID string) (*domain.Metadata, error) {
	b, err := os.ReadFile(w.MetadataPath(videoID))
	if err != nil {
		return nil, err
	}
	var m domain.Metadata
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", domain.MetadataFile, err)
	}
	return &m, nil
}

func (w *Workspace) SetCurrent(videoID string) error {
	return writeFileAtomic(filepath.Join(w.dir, currentFile), []byte(videoID+"\n"))
}

// Current returns "" when no video was analyzed yet.
func (w *Workspace) Current() (string, error) {
	b, err := os.ReadFile(filepath.Join(w.dir, currentFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// writeFileAtomic writes to a temp file in the same directory and renames it
// over path, so readers never see a half written file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
