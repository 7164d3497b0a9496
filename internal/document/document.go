// Package document holds the in-memory model of the document under
// translation. The store is the single point where updates from the
// push channel and the polling fallback meet; both are applied through
// the same merge operations.
package document

import (
	"fmt"

	"github.com/ziadkadry99/epub-reader/internal/logbuf"
)

// Section is one chapter of the document. Content is rendering markup
// supplied by the ingestion service and immutable once loaded;
// TranslatedContent is set as translations arrive.
type Section struct {
	ID                string
	Title             string
	Content           string
	TranslatedContent string
	Order             int
}

// IsTranslated reports whether a translation is present.
func (s *Section) IsTranslated() bool { return s.TranslatedContent != "" }

// Store owns the ordered sections of one document. It is mutated only
// from the session loop, so operations are plain synchronous writes.
type Store struct {
	id       string
	sections []*Section
	index    map[string]*Section
	logs     *logbuf.Buffer
}

// NewStore creates an empty store for the document with the given id.
func NewStore(id string, logs *logbuf.Buffer) *Store {
	return &Store{
		id:    id,
		index: make(map[string]*Section),
		logs:  logs,
	}
}

// DocumentID returns the external identifier of the document.
func (s *Store) DocumentID() string { return s.id }

// ApplyTranslation records a finished translation for one section.
// The write is unconditional: updates carry no ordering token, so the
// last one applied wins regardless of which channel delivered it.
// An unknown section id is a logged no-op, never an error.
func (s *Store) ApplyTranslation(sectionID, translatedText string) bool {
	sec, ok := s.index[sectionID]
	if !ok {
		s.logs.Append(logbuf.LevelWarn, "document",
			fmt.Sprintf("translation for unknown section %q dropped", sectionID))
		return false
	}
	sec.TranslatedContent = translatedText
	return true
}

// ReplaceAll swaps in a freshly fetched section list, used after job
// completion when many sections may have changed at once.
func (s *Store) ReplaceAll(sections []Section) {
	s.sections = make([]*Section, 0, len(sections))
	s.index = make(map[string]*Section, len(sections))
	for i := range sections {
		sec := sections[i]
		s.sections = append(s.sections, &sec)
		s.index[sec.ID] = &sec
	}
}

// Get looks up a section by id.
func (s *Store) Get(id string) (*Section, bool) {
	sec, ok := s.index[id]
	return sec, ok
}

// Sections returns the sections in presentation order. The returned
// slice is a copy; the sections themselves remain owned by the store.
func (s *Store) Sections() []*Section {
	out := make([]*Section, len(s.sections))
	copy(out, s.sections)
	return out
}

// Translated returns only the sections with a translation, in order.
func (s *Store) Translated() []*Section {
	var out []*Section
	for _, sec := range s.sections {
		if sec.IsTranslated() {
			out = append(out, sec)
		}
	}
	return out
}

// HasTranslated reports whether any section has a translation.
func (s *Store) HasTranslated() bool {
	for _, sec := range s.sections {
		if sec.IsTranslated() {
			return true
		}
	}
	return false
}

// Len reports the number of sections.
func (s *Store) Len() int { return len(s.sections) }
