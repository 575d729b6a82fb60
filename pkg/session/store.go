// Package session holds the most recent refresh result and saves it to disk.
package session

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"asmscope/pkg/diag"
	"asmscope/pkg/lang"
	"asmscope/pkg/lexer"
	"asmscope/pkg/perf"
)

var (
	ErrNoSnapshot = errors.New("no snapshot yet")
	ErrStale      = errors.New("snapshot is older than the current one")
)

// Snapshot is everything one refresh produced.
type Snapshot struct {
	Generation  uint64                        `json:"generation"`
	SourcePath  string                        `json:"source_path"`
	SourceLines []string                      `json:"source_lines"`
	Language    lang.Language                 `json:"language"`
	Flags       []string                      `json:"flags"`
	LineMap     lexer.LineMap                 `json:"line_map"`
	Stats       map[int]perf.InstructionStats `json:"stats"`
	Diagnostics []diag.Diagnostic             `json:"diagnostics"`
	Alignment   string                        `json:"alignment,omitempty"`
	Created     time.Time                     `json:"created"`

	// Stored as separate archive entries.
	Display        string `json:"-"`
	Mangled        string `json:"-"`
	AnalyzerOutput string `json:"-"`
	CompilerOutput string `json:"-"`
}

// DisplayLines splits Display into lines.
func (s Snapshot) DisplayLines() []string {
	return splitLines(s.Display)
}

// SourceLine returns the 1-based source line n, or "" when out of range.
func (s Snapshot) SourceLine(n int) string {
	if n < 1 || n > len(s.SourceLines) {
		return ""
	}
	return s.SourceLines[n-1]
}

// Store keeps the latest snapshot. Refreshes may finish out of order; a
// snapshot only replaces the current one if it was started later.
type Store struct {
	mu      sync.RWMutex
	next    uint64
	latest  *Snapshot
	unsaved bool
}

func NewStore() *Store {
	return &Store{}
}

// Begin reserves the generation number for a refresh that is starting.
func (s *Store) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

// Apply publishes snap. It returns ErrStale and leaves the store unchanged
// when a snapshot from a later refresh is already published.
func (s *Store) Apply(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest != nil && snap.Generation <= s.latest.Generation {
		return ErrStale
	}
	if snap.Generation > s.next {
		s.next = snap.Generation
	}
	if snap.Created.IsZero() {
		snap.Created = time.Now()
	}
	s.latest = &snap
	s.unsaved = true
	return nil
}

// Latest returns a copy of the current snapshot.
func (s *Store) Latest() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return Snapshot{}, ErrNoSnapshot
	}
	return *s.latest, nil
}

// Generation is the generation of the published snapshot, 0 before the
// first one.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return 0
	}
	return s.latest.Generation
}

// Unsaved reports whether the published snapshot has not been persisted.
func (s *Store) Unsaved() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unsaved
}

// PersistTo writes the current snapshot as an archive into dir when it has
// changed since the last call. The directory is created if needed.
func (s *Store) PersistTo(dir string) error {
	// Take the snapshot and clear the flag under the lock, then do I/O
	// without it.
	s.mu.Lock()
	if !s.unsaved || s.latest == nil {
		s.mu.Unlock()
		return nil
	}
	snap := *s.latest
	s.unsaved = false
	s.mu.Unlock()

	err := os.MkdirAll(dir, 0o755)
	if err == nil {
		err = WriteArchiveFile(filepath.Join(dir, ArchiveName(snap)), snap)
	}
	if err != nil {
		// restore the flag unless a newer snapshot arrived meanwhile
		s.mu.Lock()
		if s.latest != nil && s.latest.Generation == snap.Generation {
			s.unsaved = true
		}
		s.mu.Unlock()
		return errors.Wrap(err, "persisting session")
	}
	return nil
}

// ArchiveName is the file name PersistTo uses for snap.
func ArchiveName(snap Snapshot) string {
	base := filepath.Base(snap.SourcePath)
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "session"
	}
	return base + ".asmscope.zip"
}
