// Package session binds the two update channels to the document model
// and the view. All mutations of the store and the presentation state
// run on one loop goroutine: push-channel handlers, poll results and
// navigation commands are queued as events and executed to completion
// one at a time, so no two handlers ever interleave.
package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/epub-reader/internal/deeplink"
	"github.com/ziadkadry99/epub-reader/internal/document"
	"github.com/ziadkadry99/epub-reader/internal/engine"
	"github.com/ziadkadry99/epub-reader/internal/logbuf"
	"github.com/ziadkadry99/epub-reader/internal/poller"
	"github.com/ziadkadry99/epub-reader/internal/stream"
	"github.com/ziadkadry99/epub-reader/internal/view"
	"github.com/ziadkadry99/epub-reader/internal/wire"
)

// Config carries the session's tunables.
type Config struct {
	SectionLimit         int
	PollInterval         time.Duration
	ReconnectBaseDelay   time.Duration
	MaxReconnectAttempts int
	// TargetLanguage preselects the language used for translation
	// requests.
	TargetLanguage string
	// InitialLocation is a deep-link query applied at startup,
	// write-suppressed, to reproduce a shared view.
	InitialLocation string
}

// Session tracks one document's translation job.
type Session struct {
	id     string
	docID  string
	cfg    Config
	api    *engine.Client
	logs   *logbuf.Buffer
	store  *document.Store
	view   *view.Model
	stream *stream.Conn
	poll   *poller.Poller

	events chan func()
	runCtx context.Context

	location string
	history  []string
	histPos  int
}

// New assembles a session for the given document. Run must be called
// before the session does anything.
func New(api *engine.Client, docID string, cfg Config, logs *logbuf.Buffer) *Session {
	s := &Session{
		id:     uuid.NewString(),
		docID:  docID,
		cfg:    cfg,
		api:    api,
		logs:   logs,
		events: make(chan func(), 64),
	}
	s.store = document.NewStore(docID, logs)
	s.view = view.New(s.store, logs)
	s.view.OnChange(s.recordLocation)

	s.stream = stream.New(stream.Config{
		URL:         api.WebSocketURL(),
		BaseDelay:   cfg.ReconnectBaseDelay,
		MaxAttempts: cfg.MaxReconnectAttempts,
		ClientID:    s.id,
	}, stream.Handlers{
		Log:             s.onStreamLog,
		Progress:        s.onStreamProgress,
		PageTranslation: s.onPageTranslation,
		Complete:        s.onStreamComplete,
		Error:           s.onStreamError,
		Status:          s.onStreamStatus,
	}, logs)

	s.poll = poller.New(api, docID, cfg.PollInterval, logs, s.onPollStatus)
	return s
}

// ID returns this session's client identifier.
func (s *Session) ID() string { return s.id }

// DocumentID returns the tracked document's identifier.
func (s *Session) DocumentID() string { return s.docID }

// Logs exposes the session's log sink.
func (s *Session) Logs() *logbuf.Buffer { return s.logs }

// Run loads the document, connects both update channels, and then
// processes events until the context is cancelled. It blocks for the
// lifetime of the session.
func (s *Session) Run(ctx context.Context) error {
	s.runCtx = ctx

	if err := s.loadDocument(ctx); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}
	s.logs.Append(logbuf.LevelInfo, "session",
		fmt.Sprintf("loaded %d sections of document %s", s.store.Len(), s.docID))

	if s.cfg.TargetLanguage != "" {
		s.view.Restore(view.State{
			Mode:           view.ModeAll,
			Variant:        view.VariantOriginal,
			TargetLanguage: s.cfg.TargetLanguage,
		})
	}
	if s.cfg.InitialLocation != "" {
		s.applyLocation(s.cfg.InitialLocation)
	}
	s.location = deeplink.Encode(s.view.State())
	s.history = []string{s.location}
	s.histPos = 0

	// Resume a job that was already in flight before this session
	// started.
	if st, err := s.api.Status(ctx, s.docID); err != nil {
		s.logs.Append(logbuf.LevelWarn, "session",
			fmt.Sprintf("resume check failed: %v", err))
	} else if st.State == engine.JobInProgress {
		s.logs.Append(logbuf.LevelInfo, "session", "resuming in-progress translation")
		s.view.SetJobStatus(st)
		s.poll.Start(ctx)
	} else if st.State == engine.JobFailed {
		s.view.SetJobStatus(st)
		s.view.SetTerminalError(st.ErrorMessage)
	} else if st.State == engine.JobCompleted {
		s.view.SetJobStatus(st)
	}

	go func() {
		if err := s.stream.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("session: push channel stopped: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.stream.Close()
			s.poll.Stop()
			return ctx.Err()
		case fn := <-s.events:
			fn()
		}
	}
}

// do queues fn onto the session loop.
func (s *Session) do(fn func()) {
	s.events <- fn
}

// call queues fn and waits for it to finish, serializing reads with the
// loop's mutations. Must not be called from the loop itself.
func (s *Session) call(fn func()) {
	done := make(chan struct{})
	s.do(func() {
		defer close(done)
		fn()
	})
	<-done
}

// ShowAll switches the view to all sections.
func (s *Session) ShowAll() { s.call(s.view.ShowAll) }

// ShowTranslatedOnly restricts the view to translated sections.
func (s *Session) ShowTranslatedOnly() { s.call(s.view.ShowTranslatedOnly) }

// SelectSection focuses one section.
func (s *Session) SelectSection(id string) { s.call(func() { s.view.SelectSection(id) }) }

// ToggleVariant flips between original and translated content.
func (s *Session) ToggleVariant() { s.call(s.view.ToggleVariant) }

// SetTargetLanguage selects the language for translation requests.
func (s *Session) SetTargetLanguage(lang string) {
	s.call(func() { s.view.SetTargetLanguage(lang) })
}

// Render produces a consistent snapshot of the current presentation.
func (s *Session) Render() view.Snapshot {
	var snap view.Snapshot
	s.call(func() { snap = s.view.Render() })
	return snap
}

// State returns the current presentation state.
func (s *Session) State() view.State {
	var st view.State
	s.call(func() { st = s.view.State() })
	return st
}

// Location returns the current address encoding of the view.
func (s *Session) Location() string {
	var loc string
	s.call(func() { loc = s.location })
	return loc
}

// Navigate applies an externally supplied address (a reload or a shared
// link). The restore is write-suppressed: reproducing an address never
// records a new history entry.
func (s *Session) Navigate(query string) {
	s.call(func() { s.applyLocation(query) })
}

// Back moves one step back in navigation history, restoring the state
// recorded there without writing a new entry.
func (s *Session) Back() bool {
	var ok bool
	s.call(func() {
		if s.histPos > 0 {
			s.histPos--
			s.restoreLocation(s.history[s.histPos])
			ok = true
		}
	})
	return ok
}

// Forward is the inverse of Back.
func (s *Session) Forward() bool {
	var ok bool
	s.call(func() {
		if s.histPos < len(s.history)-1 {
			s.histPos++
			s.restoreLocation(s.history[s.histPos])
			ok = true
		}
	})
	return ok
}

// StartTranslation starts a whole-document job in the view's target
// language (or the given override) and begins polling for progress.
func (s *Session) StartTranslation(ctx context.Context, lang string) error {
	if lang == "" {
		lang = s.State().TargetLanguage
	}
	if err := s.api.StartTranslation(ctx, s.docID, lang); err != nil {
		return err
	}
	s.call(func() {
		s.view.SetTargetLanguage(lang)
		s.view.SetTerminalError("")
		s.view.SetJobStatus(engine.JobStatus{DocumentID: s.docID, State: engine.JobInProgress})
	})
	s.poll.Start(s.runCtx)
	s.logs.Append(logbuf.LevelInfo, "session",
		fmt.Sprintf("translation to %s started", lang))
	return nil
}

// TranslateActiveSection requests translation of the focused section,
// or the first visible one outside single view. The result arrives
// asynchronously as a page_translation push event.
func (s *Session) TranslateActiveSection(ctx context.Context) error {
	var (
		target *document.Section
		lang   string
	)
	s.call(func() {
		st := s.view.State()
		lang = st.TargetLanguage
		switch st.Mode {
		case view.ModeSingle:
			if sec, ok := s.store.Get(st.ActiveSectionID); ok {
				target = sec
			}
		case view.ModeTranslatedOnly:
			if tr := s.store.Translated(); len(tr) > 0 {
				target = tr[0]
			}
		default:
			if secs := s.store.Sections(); len(secs) > 0 {
				target = secs[0]
			}
		}
	})
	if target == nil {
		return fmt.Errorf("no section available to translate")
	}
	if target.Content == "" {
		return fmt.Errorf("section %s has no content to translate", target.ID)
	}
	return s.api.TranslateSection(ctx, engine.SectionRequest{
		DocumentID: s.docID,
		SectionID:  target.ID,
		Content:    target.Content,
		TargetLang: lang,
	})
}

// DownloadURL returns the translated-document download location for
// the current target language, or the original when none is selected.
func (s *Session) DownloadURL() string {
	lang := s.State().TargetLanguage
	if lang == "" {
		return s.api.DownloadURL(s.docID)
	}
	return s.api.TranslatedDownloadURL(s.docID, lang)
}

// recordLocation runs on the loop after every user-driven transition.
func (s *Session) recordLocation(st view.State) {
	loc := deeplink.Encode(st)
	if loc == s.location {
		return
	}
	s.location = loc
	// A new entry truncates anything ahead of the cursor, the same way
	// a browser drops its forward stack.
	s.history = append(s.history[:s.histPos+1], loc)
	s.histPos = len(s.history) - 1
}

// applyLocation decodes and restores an address, normalizing the stored
// location to the canonical re-encoding.
func (s *Session) applyLocation(query string) {
	st, err := deeplink.Decode(query)
	if err != nil {
		s.logs.Append(logbuf.LevelWarn, "session",
			fmt.Sprintf("ignoring malformed address %q: %v", query, err))
		return
	}
	s.view.Restore(st)
	s.location = deeplink.Encode(s.view.State())
}

func (s *Session) restoreLocation(loc string) {
	st, err := deeplink.Decode(loc)
	if err != nil {
		return
	}
	s.view.Restore(st)
	s.location = deeplink.Encode(s.view.State())
}

// loadDocument fetches summaries and full content for every section
// and seeds the store.
func (s *Session) loadDocument(ctx context.Context) error {
	sections, err := s.fetchSections(ctx)
	if err != nil {
		return err
	}
	s.store.ReplaceAll(sections)
	return nil
}

func (s *Session) fetchSections(ctx context.Context) ([]document.Section, error) {
	summaries, err := s.api.Sections(ctx, s.docID, s.cfg.SectionLimit)
	if err != nil {
		return nil, err
	}

	sections := make([]document.Section, 0, len(summaries))
	for _, sum := range summaries {
		detail, err := s.api.Section(ctx, s.docID, sum.ID)
		if err != nil {
			// Keep the summary entry so ordering and navigation stay
			// intact even when one section fails to load.
			s.logs.Append(logbuf.LevelWarn, "session",
				fmt.Sprintf("loading section %s failed: %v", sum.ID, err))
			sections = append(sections, document.Section{
				ID:    sum.ID,
				Title: sum.Title,
				Order: sum.Order,
			})
			continue
		}
		sections = append(sections, document.Section{
			ID:                detail.ID,
			Title:             detail.Title,
			Content:           detail.Content,
			TranslatedContent: detail.TranslatedContent,
			Order:             detail.Order,
		})
	}
	return sections, nil
}

// refresh re-fetches everything and swaps it into the store on the
// loop. Used after job completion, when batch results may cover
// sections no individual push event mentioned.
func (s *Session) refresh() {
	go func() {
		sections, err := s.fetchSections(s.runCtx)
		if err != nil {
			if s.runCtx.Err() == nil {
				s.logs.Append(logbuf.LevelError, "session",
					fmt.Sprintf("refresh failed: %v", err))
			}
			return
		}
		s.do(func() {
			s.store.ReplaceAll(sections)
			s.view.Revalidate()
			s.logs.Append(logbuf.LevelInfo, "session",
				fmt.Sprintf("refreshed %d sections", len(sections)))
		})
	}()
}

// Push-channel handlers. Each queues its mutation onto the loop.

func (s *Session) onStreamLog(e wire.LogEvent) {
	level := logbuf.Level(e.Level)
	switch level {
	case logbuf.LevelDebug, logbuf.LevelInfo, logbuf.LevelWarn, logbuf.LevelError:
	default:
		level = logbuf.LevelInfo
	}
	category := e.Module
	if category == "" {
		category = "server"
	}
	s.logs.Append(level, category, e.Message)
}

func (s *Session) onStreamProgress(e wire.ProgressEvent) {
	s.do(func() {
		s.view.SetJobStatus(engine.JobStatus{
			DocumentID:        e.DocumentID,
			State:             engine.JobInProgress,
			TotalSections:     e.TotalSections,
			CompletedSections: e.CompletedSections,
			CurrentSection:    e.CurrentSection,
			ProgressPercent:   e.ProgressPercent,
		})
	})
}

func (s *Session) onPageTranslation(e wire.PageTranslationEvent) {
	s.do(func() {
		if s.store.ApplyTranslation(e.SectionID, e.TranslatedText) {
			s.logs.Append(logbuf.LevelInfo, "session",
				fmt.Sprintf("section %s translated", e.SectionID))
		}
	})
}

func (s *Session) onStreamComplete(e wire.CompleteEvent) {
	s.do(func() {
		s.poll.Stop()
		st := s.view.JobStatus()
		st.State = engine.JobCompleted
		st.ProgressPercent = 100
		s.view.SetJobStatus(st)
		s.logs.Append(logbuf.LevelInfo, "session", "translation complete")
		s.refresh()
	})
}

func (s *Session) onStreamError(e wire.ErrorEvent) {
	s.do(func() {
		s.poll.Stop()
		st := s.view.JobStatus()
		st.State = engine.JobFailed
		st.ErrorMessage = e.Error
		s.view.SetJobStatus(st)
		s.view.SetTerminalError(e.Error)
		s.logs.Append(logbuf.LevelError, "session",
			fmt.Sprintf("translation failed: %s", e.Error))
	})
}

func (s *Session) onStreamStatus(connected bool) {
	s.do(func() { s.view.SetConnected(connected) })
}

// onPollStatus receives snapshots from the polling fallback.
func (s *Session) onPollStatus(st engine.JobStatus) {
	s.do(func() {
		s.view.SetJobStatus(st)
		switch st.State {
		case engine.JobCompleted:
			s.logs.Append(logbuf.LevelInfo, "session", "translation complete")
			s.refresh()
		case engine.JobFailed:
			s.view.SetTerminalError(st.ErrorMessage)
			s.logs.Append(logbuf.LevelError, "session",
				fmt.Sprintf("translation failed: %s", st.ErrorMessage))
		}
	})
}
