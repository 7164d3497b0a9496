package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()

	r := chi.NewRouter()
	r.Get("/api/chapters/{id}", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"chapters": []map[string]any{
				{"id": "ch1", "title": "Chapter 1", "is_translated": false, "order": 0},
				{"id": "ch2", "title": "Chapter 2", "is_translated": true, "order": 1},
			},
			"total": 2,
		})
	})
	r.Get("/api/chapter/{doc}/{sec}", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":                 chi.URLParam(req, "sec"),
			"title":              "Chapter 2",
			"content":            "<p>two</p>",
			"translated_content": "<p>deux</p>",
			"is_translated":      true,
			"order":              1,
		})
	})
	r.Post("/translate", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ID         string `json:"id"`
			TargetLang string `json:"target_lang"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.TargetLang == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "target_lang is required"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"message": "started"})
	})
	r.Get("/status/{id}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "id") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "Translation not found"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":                  chi.URLParam(req, "id"),
			"status":              "in_progress",
			"total_chapters":      10,
			"completed_chapters":  3,
			"current_chapter":     "Chapter 4",
			"progress_percentage": 30.0,
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return srv, client
}

func TestSections(t *testing.T) {
	_, client := newTestServer(t)

	sections, err := client.Sections(context.Background(), "doc1", 50)
	if err != nil {
		t.Fatalf("Sections: %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].ID != "ch1" || sections[1].IsTranslated != true {
		t.Errorf("unexpected sections: %+v", sections)
	}
}

func TestSection(t *testing.T) {
	_, client := newTestServer(t)

	detail, err := client.Section(context.Background(), "doc1", "ch2")
	if err != nil {
		t.Fatalf("Section: %v", err)
	}
	if detail.TranslatedContent != "<p>deux</p>" {
		t.Errorf("unexpected detail: %+v", detail)
	}
}

func TestStartTranslationValidatesLanguage(t *testing.T) {
	_, client := newTestServer(t)

	err := client.StartTranslation(context.Background(), "doc1", "")
	if !errors.Is(err, ErrNoTargetLanguage) {
		t.Fatalf("expected ErrNoTargetLanguage, got %v", err)
	}

	if err := client.StartTranslation(context.Background(), "doc1", "!!bad!!"); err == nil {
		t.Fatal("expected invalid language code to be rejected")
	}

	if err := client.StartTranslation(context.Background(), "doc1", "fr"); err != nil {
		t.Fatalf("StartTranslation: %v", err)
	}
}

func TestTranslateSectionValidatesLanguage(t *testing.T) {
	_, client := newTestServer(t)

	err := client.TranslateSection(context.Background(), SectionRequest{
		DocumentID: "doc1",
		SectionID:  "ch1",
		Content:    "<p>one</p>",
	})
	if !errors.Is(err, ErrNoTargetLanguage) {
		t.Fatalf("expected ErrNoTargetLanguage, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	_, client := newTestServer(t)

	st, err := client.Status(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.State != JobInProgress || st.CompletedSections != 3 {
		t.Errorf("unexpected status: %+v", st)
	}
}

func TestStatusNotFoundMeansNotStarted(t *testing.T) {
	_, client := newTestServer(t)

	st, err := client.Status(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.State != JobNotStarted {
		t.Errorf("expected not_started for 404, got %q", st.State)
	}
}

func TestTerminal(t *testing.T) {
	for state, want := range map[JobState]bool{
		JobNotStarted: false,
		JobInProgress: false,
		JobCompleted:  true,
		JobFailed:     true,
	} {
		if state.Terminal() != want {
			t.Errorf("%s.Terminal() = %v, want %v", state, !want, want)
		}
	}
}

func TestWebSocketURL(t *testing.T) {
	client, err := NewClient("http://example.com:8080")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if got := client.WebSocketURL(); got != "ws://example.com:8080/ws" {
		t.Errorf("unexpected websocket url %q", got)
	}

	secure, _ := NewClient("https://example.com")
	if got := secure.WebSocketURL(); got != "wss://example.com/ws" {
		t.Errorf("unexpected secure websocket url %q", got)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient("ftp://example.com"); err == nil {
		t.Fatal("expected scheme error")
	}
}
