package jobs

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-faster/errors"
)

// Sink receives the timestamped lines a job produces.
type Sink interface {
	Append(lines ...string) error
}

// FileSink appends lines to a file, creating it and its directory on first
// use. Each Append call is written with a single write.
type FileSink struct {
	path string
	mu   sync.Mutex
}

// NewFileSink returns a sink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Path returns the file the sink writes to.
func (s *FileSink) Path() string {
	return s.path
}

func (s *FileSink) Append(lines ...string) error {
	if len(lines) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrapf(err, "create log dir for %s", s.path)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open %s", s.path)
	}

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "write %s", s.path)
	}
	return f.Close()
}
