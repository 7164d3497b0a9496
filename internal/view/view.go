// Package view drives what is presented: which sections are in scope,
// whether the original or the translated variant is shown, and the
// status surfaces (connection indicator, job progress, terminal error).
package view

import (
	"fmt"

	"github.com/ziadkadry99/epub-reader/internal/document"
	"github.com/ziadkadry99/epub-reader/internal/engine"
	"github.com/ziadkadry99/epub-reader/internal/logbuf"
)

// Mode selects the navigational scope.
type Mode string

const (
	ModeAll            Mode = "all"
	ModeTranslatedOnly Mode = "translated-only"
	ModeSingle         Mode = "single"
)

// Variant selects which content variant is rendered.
type Variant string

const (
	VariantOriginal   Variant = "original"
	VariantTranslated Variant = "translated"
)

// State is the complete presentation state. ActiveSectionID is
// meaningful only in ModeSingle. Sections are referenced by id; the
// document store remains their sole owner.
type State struct {
	Mode            Mode
	ActiveSectionID string
	Variant         Variant
	TargetLanguage  string
}

// Placeholder texts rendered instead of missing content.
const (
	PlaceholderNoContent    = "Content not available"
	PlaceholderNoTranslated = "No translated sections available yet"
)

// RenderedSection is one section as presented.
type RenderedSection struct {
	ID                 string
	Title              string
	Content            string
	IsTranslated       bool
	ShowingTranslation bool
}

// Snapshot is a full render of the current state.
type Snapshot struct {
	Mode        Mode
	Variant     Variant
	Sections    []RenderedSection
	Placeholder string
	Connected   bool
	Job         engine.JobStatus
	Error       string
}

// Model is the view state machine. It reads from the document store and
// is mutated only through its transition methods, all on the session
// loop.
type Model struct {
	store    *document.Store
	logs     *logbuf.Buffer
	state    State
	job      engine.JobStatus
	conn     bool
	errMsg   string
	onChange func(State)
}

// New creates a model showing all sections in the original variant.
func New(store *document.Store, logs *logbuf.Buffer) *Model {
	return &Model{
		store: store,
		logs:  logs,
		state: State{Mode: ModeAll, Variant: VariantOriginal},
	}
}

// OnChange registers the hook fired after every user-driven transition.
// Restores do not fire it.
func (m *Model) OnChange(fn func(State)) { m.onChange = fn }

// State returns the current presentation state.
func (m *Model) State() State { return m.state }

// ShowAll switches to the all-sections scope. Valid from any state.
func (m *Model) ShowAll() {
	m.state.Mode = ModeAll
	m.state.ActiveSectionID = ""
	m.changed()
}

// ShowTranslatedOnly restricts the scope to translated sections.
func (m *Model) ShowTranslatedOnly() {
	m.state.Mode = ModeTranslatedOnly
	m.state.ActiveSectionID = ""
	m.changed()
}

// SelectSection focuses a single section. An id that does not resolve
// in the document is a logged no-op.
func (m *Model) SelectSection(id string) {
	if _, ok := m.store.Get(id); !ok {
		m.logs.Append(logbuf.LevelWarn, "view",
			fmt.Sprintf("cannot select unknown section %q", id))
		return
	}
	m.state.Mode = ModeSingle
	m.state.ActiveSectionID = id
	m.changed()
}

// ToggleVariant flips between original and translated content. It is a
// no-op while no section in the visible set has a translation.
func (m *Model) ToggleVariant() {
	if !m.anyVisibleTranslated() {
		return
	}
	if m.state.Variant == VariantOriginal {
		m.state.Variant = VariantTranslated
	} else {
		m.state.Variant = VariantOriginal
	}
	m.changed()
}

// SetTargetLanguage records the language used for translation requests
// and for the translated variant.
func (m *Model) SetTargetLanguage(lang string) {
	if m.state.TargetLanguage == lang {
		return
	}
	m.state.TargetLanguage = lang
	m.changed()
}

// Restore applies a deserialized state without firing the change hook,
// so reproducing an address does not write a redundant one. Invalid
// references degrade instead of failing: a missing active section falls
// back to ModeAll, and the translated variant falls back to original
// when nothing is translated yet.
func (m *Model) Restore(st State) {
	if st.Mode != ModeAll && st.Mode != ModeTranslatedOnly && st.Mode != ModeSingle {
		st.Mode = ModeAll
	}
	if st.Variant != VariantOriginal && st.Variant != VariantTranslated {
		st.Variant = VariantOriginal
	}
	if st.Mode == ModeSingle {
		if _, ok := m.store.Get(st.ActiveSectionID); !ok {
			st.Mode = ModeAll
			st.ActiveSectionID = ""
		}
	} else {
		st.ActiveSectionID = ""
	}
	if st.Variant == VariantTranslated && !m.store.HasTranslated() {
		st.Variant = VariantOriginal
	}
	m.state = st
}

// Revalidate re-checks the state's references against the store, used
// after ReplaceAll swapped the section set underneath it.
func (m *Model) Revalidate() {
	if m.state.Mode == ModeSingle {
		if _, ok := m.store.Get(m.state.ActiveSectionID); !ok {
			m.logs.Append(logbuf.LevelWarn, "view",
				fmt.Sprintf("active section %q vanished after refresh, showing all", m.state.ActiveSectionID))
			m.state.Mode = ModeAll
			m.state.ActiveSectionID = ""
		}
	}
	if m.state.Variant == VariantTranslated && !m.store.HasTranslated() {
		m.state.Variant = VariantOriginal
	}
}

// SetConnected updates the push-channel indicator.
func (m *Model) SetConnected(connected bool) { m.conn = connected }

// Connected reports the push-channel indicator.
func (m *Model) Connected() bool { return m.conn }

// SetJobStatus replaces the progress display snapshot.
func (m *Model) SetJobStatus(st engine.JobStatus) { m.job = st }

// JobStatus returns the last progress snapshot.
func (m *Model) JobStatus() engine.JobStatus { return m.job }

// SetTerminalError surfaces a failed job.
func (m *Model) SetTerminalError(msg string) { m.errMsg = msg }

// TerminalError returns the surfaced job failure, if any.
func (m *Model) TerminalError() string { return m.errMsg }

// Render produces the presentation of the current state from the store.
func (m *Model) Render() Snapshot {
	snap := Snapshot{
		Mode:      m.state.Mode,
		Variant:   m.state.Variant,
		Connected: m.conn,
		Job:       m.job,
		Error:     m.errMsg,
	}

	var visible []*document.Section
	switch m.state.Mode {
	case ModeTranslatedOnly:
		visible = m.store.Translated()
		if len(visible) == 0 {
			snap.Placeholder = PlaceholderNoTranslated
			return snap
		}
	case ModeSingle:
		if sec, ok := m.store.Get(m.state.ActiveSectionID); ok {
			visible = []*document.Section{sec}
		}
	default:
		visible = m.store.Sections()
	}

	for _, sec := range visible {
		snap.Sections = append(snap.Sections, m.renderSection(sec))
	}
	return snap
}

// renderSection applies the content rule: the translated variant when
// selected and present, else the original, else a placeholder.
func (m *Model) renderSection(sec *document.Section) RenderedSection {
	r := RenderedSection{
		ID:           sec.ID,
		Title:        sec.Title,
		IsTranslated: sec.IsTranslated(),
	}
	switch {
	case m.state.Variant == VariantTranslated && sec.IsTranslated():
		r.Content = sec.TranslatedContent
		r.ShowingTranslation = true
	case sec.Content != "":
		r.Content = sec.Content
	default:
		r.Content = PlaceholderNoContent
	}
	return r
}

func (m *Model) anyVisibleTranslated() bool {
	switch m.state.Mode {
	case ModeSingle:
		sec, ok := m.store.Get(m.state.ActiveSectionID)
		return ok && sec.IsTranslated()
	case ModeTranslatedOnly:
		return len(m.store.Translated()) > 0
	default:
		return m.store.HasTranslated()
	}
}

func (m *Model) changed() {
	if m.onChange != nil {
		m.onChange(m.state)
	}
}
