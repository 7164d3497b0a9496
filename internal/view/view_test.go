package view

import (
	"testing"

	"github.com/ziadkadry99/epub-reader/internal/document"
	"github.com/ziadkadry99/epub-reader/internal/engine"
	"github.com/ziadkadry99/epub-reader/internal/logbuf"
)

func newTestModel(t *testing.T) (*Model, *document.Store, *logbuf.Buffer) {
	t.Helper()
	logs := logbuf.New(100)
	store := document.NewStore("doc1", logs)
	store.ReplaceAll([]document.Section{
		{ID: "ch1", Title: "Chapter 1", Content: "<p>one</p>", Order: 0},
		{ID: "ch2", Title: "Chapter 2", Content: "<p>two</p>", Order: 1},
		{ID: "ch3", Title: "Chapter 3", Content: "<p>three</p>", Order: 2},
	})
	return New(store, logs), store, logs
}

func TestInitialState(t *testing.T) {
	m, _, _ := newTestModel(t)
	st := m.State()
	if st.Mode != ModeAll || st.Variant != VariantOriginal {
		t.Errorf("unexpected initial state: %+v", st)
	}
}

func TestSelectSection(t *testing.T) {
	m, _, _ := newTestModel(t)

	var fired []State
	m.OnChange(func(s State) { fired = append(fired, s) })

	m.SelectSection("ch3")

	st := m.State()
	if st.Mode != ModeSingle || st.ActiveSectionID != "ch3" {
		t.Errorf("unexpected state after select: %+v", st)
	}
	if len(fired) != 1 {
		t.Fatalf("expected 1 change notification, got %d", len(fired))
	}

	snap := m.Render()
	if len(snap.Sections) != 1 || snap.Sections[0].ID != "ch3" {
		t.Errorf("expected single rendered section ch3, got %+v", snap.Sections)
	}
}

func TestSelectUnknownSectionNoOp(t *testing.T) {
	m, _, logs := newTestModel(t)

	fired := 0
	m.OnChange(func(State) { fired++ })

	m.SelectSection("nope")

	if st := m.State(); st.Mode != ModeAll {
		t.Errorf("state must be unchanged, got %+v", st)
	}
	if fired != 0 {
		t.Error("no change hook expected for a failed selection")
	}
	entries := logs.Entries()
	if len(entries) == 0 || entries[len(entries)-1].Level != logbuf.LevelWarn {
		t.Error("expected a warning log entry")
	}
}

func TestToggleVariantDisabledWithoutTranslations(t *testing.T) {
	m, _, _ := newTestModel(t)

	m.ToggleVariant()
	if m.State().Variant != VariantOriginal {
		t.Error("toggle must be a no-op with no translated sections")
	}
}

func TestToggleAfterTranslationRendersTranslated(t *testing.T) {
	m, store, _ := newTestModel(t)

	store.ApplyTranslation("ch3", "<p>bonjour</p>")
	m.SelectSection("ch3")
	m.ToggleVariant()

	snap := m.Render()
	if len(snap.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(snap.Sections))
	}
	got := snap.Sections[0]
	if got.Content != "<p>bonjour</p>" {
		t.Errorf("expected translated content, got %q", got.Content)
	}
	if !got.ShowingTranslation || !got.IsTranslated {
		t.Errorf("unexpected indicators: %+v", got)
	}
}

func TestRenderFallsBackToOriginal(t *testing.T) {
	m, store, _ := newTestModel(t)

	// Only ch1 is translated; in the translated variant the others keep
	// their original content.
	store.ApplyTranslation("ch1", "<p>un</p>")
	m.ToggleVariant()

	snap := m.Render()
	if snap.Sections[0].Content != "<p>un</p>" {
		t.Errorf("ch1 should show translation, got %q", snap.Sections[0].Content)
	}
	if snap.Sections[1].Content != "<p>two</p>" {
		t.Errorf("ch2 should fall back to original, got %q", snap.Sections[1].Content)
	}
}

func TestRenderPlaceholderForEmptyContent(t *testing.T) {
	logs := logbuf.New(10)
	store := document.NewStore("doc1", logs)
	store.ReplaceAll([]document.Section{{ID: "ch1", Title: "Chapter 1"}})
	m := New(store, logs)

	snap := m.Render()
	if snap.Sections[0].Content != PlaceholderNoContent {
		t.Errorf("expected content placeholder, got %q", snap.Sections[0].Content)
	}
}

func TestTranslatedOnlyEmptyPlaceholder(t *testing.T) {
	m, _, _ := newTestModel(t)

	m.ShowTranslatedOnly()
	snap := m.Render()
	if len(snap.Sections) != 0 {
		t.Fatalf("expected no sections, got %d", len(snap.Sections))
	}
	if snap.Placeholder != PlaceholderNoTranslated {
		t.Errorf("expected placeholder, got %q", snap.Placeholder)
	}
}

func TestTranslatedOnlyFilters(t *testing.T) {
	m, store, _ := newTestModel(t)

	store.ApplyTranslation("ch2", "<p>deux</p>")
	m.ShowTranslatedOnly()

	snap := m.Render()
	if len(snap.Sections) != 1 || snap.Sections[0].ID != "ch2" {
		t.Errorf("expected only ch2, got %+v", snap.Sections)
	}
}

func TestRestoreSuppressesChangeHook(t *testing.T) {
	m, store, _ := newTestModel(t)
	store.ApplyTranslation("ch2", "<p>deux</p>")

	fired := 0
	m.OnChange(func(State) { fired++ })

	m.Restore(State{Mode: ModeSingle, ActiveSectionID: "ch2", Variant: VariantTranslated, TargetLanguage: "fr"})

	if fired != 0 {
		t.Error("Restore must not fire the change hook")
	}
	st := m.State()
	if st.Mode != ModeSingle || st.ActiveSectionID != "ch2" || st.Variant != VariantTranslated {
		t.Errorf("unexpected restored state: %+v", st)
	}
}

func TestRestoreDegradesInvalidReferences(t *testing.T) {
	m, _, _ := newTestModel(t)

	// Unknown section and translated variant with nothing translated.
	m.Restore(State{Mode: ModeSingle, ActiveSectionID: "gone", Variant: VariantTranslated})

	st := m.State()
	if st.Mode != ModeAll || st.ActiveSectionID != "" {
		t.Errorf("expected fallback to all mode, got %+v", st)
	}
	if st.Variant != VariantOriginal {
		t.Errorf("expected fallback to original variant, got %q", st.Variant)
	}
}

func TestRevalidateAfterReplaceAll(t *testing.T) {
	m, store, _ := newTestModel(t)

	m.SelectSection("ch3")
	store.ReplaceAll([]document.Section{
		{ID: "ch1", Content: "<p>one</p>"},
	})
	m.Revalidate()

	if st := m.State(); st.Mode != ModeAll {
		t.Errorf("expected fallback to all after active section vanished, got %+v", st)
	}
}

func TestStatusSurfaces(t *testing.T) {
	m, _, _ := newTestModel(t)

	m.SetConnected(true)
	m.SetJobStatus(engine.JobStatus{State: engine.JobInProgress, ProgressPercent: 40})
	m.SetTerminalError("engine timeout")

	snap := m.Render()
	if !snap.Connected {
		t.Error("expected connected indicator")
	}
	if snap.Job.ProgressPercent != 40 {
		t.Errorf("unexpected job snapshot: %+v", snap.Job)
	}
	if snap.Error != "engine timeout" {
		t.Errorf("unexpected terminal error %q", snap.Error)
	}
}

func TestSetTargetLanguage(t *testing.T) {
	m, _, _ := newTestModel(t)

	fired := 0
	m.OnChange(func(State) { fired++ })

	m.SetTargetLanguage("fr")
	m.SetTargetLanguage("fr") // unchanged, no hook
	if m.State().TargetLanguage != "fr" {
		t.Errorf("unexpected language %q", m.State().TargetLanguage)
	}
	if fired != 1 {
		t.Errorf("expected 1 change notification, got %d", fired)
	}
}
