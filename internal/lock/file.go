package lock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileLocker implements Locker with exclusive token files in Dir.
// A token older than its ttl is treated as abandoned and replaced.
type FileLocker struct {
	Dir string
	now func() time.Time
}

// NewFileLocker creates the token directory if needed.
func NewFileLocker(dir string) (*FileLocker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	return &FileLocker{Dir: dir, now: time.Now}, nil
}

func (l *FileLocker) Acquire(_ context.Context, name string, ttl time.Duration) (func(), error) {
	path := filepath.Join(l.Dir, sanitize(name)+".lock")
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			expires := l.now().Add(ttl)
			fmt.Fprintf(f, "%d\n", expires.Unix())
			f.Close()
			return func() {
				if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
					log.Printf("[WARN] release lock %s: %v", path, err)
				}
			}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create lock %s: %w", path, err)
		}
		if !l.expired(path) {
			return nil, fmt.Errorf("%s: %w", name, ErrLocked)
		}
		log.Printf("[WARN] removing stale lock %s", path)
		os.Remove(path)
	}
	return nil, fmt.Errorf("%s: %w", name, ErrLocked)
}

func (l *FileLocker) expired(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var unix int64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(data)), "%d", &unix); err != nil {
		return false
	}
	return !l.now().Before(time.Unix(unix, 0))
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, name)
}
