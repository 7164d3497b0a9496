// Package engine is the HTTP client for the translation service: the
// section listing produced by ingestion, job control, per-section
// translation requests, and job status. The engine itself is an
// external collaborator; nothing here translates or parses documents.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// ErrNoTargetLanguage is returned before any network call when a
// translation request is missing its target language.
var ErrNoTargetLanguage = errors.New("target language is required")

// Client talks to one translation-engine server.
type Client struct {
	base *url.URL
	http *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing server url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	return &Client{
		base: u,
		http: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// WebSocketURL returns the push-channel endpoint for this server.
func (c *Client) WebSocketURL() string {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	return u.String()
}

// SectionSummary is one entry of the section listing.
type SectionSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	IsTranslated bool   `json:"is_translated"`
	Order        int    `json:"order"`
}

// SectionDetail is the full content of one section.
type SectionDetail struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Content           string `json:"content"`
	TranslatedContent string `json:"translated_content"`
	IsTranslated      bool   `json:"is_translated"`
	Order             int    `json:"order"`
}

// Sections fetches the ordered section summaries of a document.
func (c *Client) Sections(ctx context.Context, documentID string, limit int) ([]SectionSummary, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	var resp struct {
		Chapters []SectionSummary `json:"chapters"`
		Total    int              `json:"total"`
	}
	path := "/api/chapters/" + url.PathEscape(documentID)
	if err := c.getJSON(ctx, path, q, &resp); err != nil {
		return nil, fmt.Errorf("listing sections: %w", err)
	}
	return resp.Chapters, nil
}

// Section fetches one section with its full content.
func (c *Client) Section(ctx context.Context, documentID, sectionID string) (SectionDetail, error) {
	var detail SectionDetail
	path := "/api/chapter/" + url.PathEscape(documentID) + "/" + url.PathEscape(sectionID)
	if err := c.getJSON(ctx, path, nil, &detail); err != nil {
		return SectionDetail{}, fmt.Errorf("fetching section %s: %w", sectionID, err)
	}
	return detail, nil
}

// StartTranslation starts a whole-document translation job. The target
// language is validated locally before any request is issued.
func (c *Client) StartTranslation(ctx context.Context, documentID, targetLang string) error {
	if err := validateLanguage(targetLang); err != nil {
		return err
	}
	body := map[string]string{"id": documentID, "target_lang": targetLang}
	if err := c.postJSON(ctx, "/translate", body, nil); err != nil {
		return fmt.Errorf("starting translation: %w", err)
	}
	return nil
}

// SectionRequest asks for a single section to be translated. The result
// arrives asynchronously on the push channel as a page_translation event.
type SectionRequest struct {
	DocumentID string `json:"epub_id"`
	SectionID  string `json:"chapter_id"`
	Content    string `json:"content"`
	TargetLang string `json:"target_lang"`
	SourceLang string `json:"source_lang,omitempty"`
}

// TranslateSection requests translation of one section.
func (c *Client) TranslateSection(ctx context.Context, req SectionRequest) error {
	if err := validateLanguage(req.TargetLang); err != nil {
		return err
	}
	if err := c.postJSON(ctx, "/api/translate-page", req, nil); err != nil {
		return fmt.Errorf("requesting section translation: %w", err)
	}
	return nil
}

// Status fetches the current job status. A 404 means no job has been
// started for this document and maps to JobNotStarted.
func (c *Client) Status(ctx context.Context, documentID string) (JobStatus, error) {
	var st JobStatus
	err := c.getJSON(ctx, "/status/"+url.PathEscape(documentID), nil, &st)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return JobStatus{DocumentID: documentID, State: JobNotStarted}, nil
		}
		return JobStatus{}, fmt.Errorf("fetching status: %w", err)
	}
	return st, nil
}

// DownloadURL returns the original-document download location.
func (c *Client) DownloadURL(documentID string) string {
	return c.base.String() + "/download/" + url.PathEscape(documentID)
}

// TranslatedDownloadURL returns the download location for a finished
// translation in the given language.
func (c *Client) TranslatedDownloadURL(documentID, lang string) string {
	return c.base.String() + "/download-translated/" + url.PathEscape(documentID) + "/" + url.PathEscape(lang)
}

func validateLanguage(lang string) error {
	if lang == "" {
		return ErrNoTargetLanguage
	}
	if _, err := language.Parse(lang); err != nil {
		return fmt.Errorf("invalid target language %q: %w", lang, err)
	}
	return nil
}

// statusError carries a non-2xx response, preserving the server's error
// message when it sent one.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	if e.message != "" {
		return fmt.Sprintf("server returned %d: %s", e.code, e.message)
	}
	return fmt.Sprintf("server returned %d", e.code)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.base.String() + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.String()+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &apiErr)
		return &statusError{code: resp.StatusCode, message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
