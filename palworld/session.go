package palworld

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"palworld-save-edit/gvas"
)

var ErrNoDocument = errors.New("no save loaded")

// Session owns the last decoded document. Readers share the projection;
// Update and Load take the document exclusively.
type Session struct {
	mu         sync.RWMutex
	path       string
	doc        *gvas.Document
	projection *Projection

	paths Paths
	kind  CompressionKind
	opts  []gvas.Option
}

type Status struct {
	Path        string `json:"path"`
	Players     int    `json:"players"`
	Skipped     int    `json:"skipped"`
	Diagnostics int    `json:"diagnostics"`
}

func NewSession(paths Paths, kind CompressionKind, opts ...gvas.Option) *Session {
	return &Session{paths: paths.WithDefaults(), kind: kind, opts: opts}
}

// Load decodes the save at path and replaces the current document. On error
// the previous document stays loaded.
func (s *Session) Load(path string) (*Projection, error) {
	doc, err := OpenDocument(path, s.opts...)
	if err != nil {
		return nil, err
	}
	projection, err := Project(doc, s.paths, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.path, s.doc, s.projection = path, doc, projection
	log.Printf("[Load] %s: %d players, %d skipped, %d raw structs", path, len(projection.Players), len(projection.Skipped), len(doc.Diagnostics)+len(projection.Diagnostics))
	return projection, nil
}

// Projection returns the current entity view. Callers must not modify it.
func (s *Session) Projection() (*Projection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.projection == nil {
		return nil, ErrNoDocument
	}
	return s.projection, nil
}

func (s *Session) Players() ([]Player, error) {
	projection, err := s.Projection()
	if err != nil {
		return nil, err
	}
	return projection.Players, nil
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := Status{Path: s.path}
	if s.projection != nil {
		status.Players = len(s.projection.Players)
		status.Skipped = len(s.projection.Skipped)
		status.Diagnostics = len(s.projection.Diagnostics)
	}
	if s.doc != nil {
		status.Diagnostics += len(s.doc.Diagnostics)
	}
	return status
}

func (s *Session) Paths() Paths {
	return s.paths
}

func (s *Session) Options() []gvas.Option {
	return s.opts
}

// Update runs fn on the document and re-projects it. If fn or the
// projection fails the document is restored to its previous state.
func (s *Session) Update(fn func(doc *gvas.Document) error) (*Projection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, ErrNoDocument
	}

	backup, err := gvas.Encode(s.doc, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot document: %w", err)
	}
	restore := func() {
		doc, err := gvas.Decode(backup, s.opts...)
		if err != nil {
			log.Printf("[Update] failed to restore %s: %v", s.path, err)
			return
		}
		s.doc = doc
	}

	if err := fn(s.doc); err != nil {
		restore()
		return nil, err
	}
	projection, err := Project(s.doc, s.paths, s.opts...)
	if err != nil {
		restore()
		return nil, err
	}
	s.projection = projection
	return projection, nil
}

// Save writes the document to path, or back to the loaded file when path
// is empty.
func (s *Session) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return ErrNoDocument
	}
	if path == "" {
		path = s.path
	}
	return WriteDocument(path, s.doc, s.kind, s.opts...)
}

// Document returns the loaded document for read-only use such as dumping.
// It must not be modified outside Update.
func (s *Session) Document() (*gvas.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return nil, ErrNoDocument
	}
	return s.doc, nil
}
