package processor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// StatusFile publishes the current status of a run for external pollers.
// Each write replaces the whole file through a rename, so a reader sees either
// the previous status or the new one, never a partial or empty file. Writes and removal are attempted once
// and failures are ignored: progress reporting must never stop a batch.
// A StatusFile with an empty path does nothing.
type StatusFile struct {
	path   string
	logger *log.Logger
}

func NewStatusFile(path string, logger *log.Logger) *StatusFile {
	return &StatusFile{path: path, logger: logger}
}

func (s *StatusFile) Write(status string) {
	if s == nil || s.path == "" {
		return
	}
	if err := replaceContents(s.path, []byte(status)); err != nil && s.logger != nil {
		s.logger.Debug("status file write failed", "path", s.path, "err", err)
	}
}

func (s *StatusFile) WriteProgress(percent int) {
	s.Write(fmt.Sprintf("%s:%d", StageProcessing, percent))
}

func (s *StatusFile) Remove() {
	if s == nil || s.path == "" {
		return
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) && s.logger != nil {
		s.logger.Debug("status file removal failed", "path", s.path, "err", err)
	}
}

// replaceContents writes data to a temporary file next to path and renames it
// over path.
func replaceContents(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
