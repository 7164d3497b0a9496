package poller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ziadkadry99/epub-reader/internal/engine"
	"github.com/ziadkadry99/epub-reader/internal/logbuf"
)

// statusServer serves /status/{id} responses from a queue; once the
// queue is exhausted it keeps serving the last one.
func statusServer(t *testing.T, hits *atomic.Int64, responses ...map[string]any) *engine.Client {
	t.Helper()
	var i atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		n := int(i.Add(1)) - 1
		if n >= len(responses) {
			n = len(responses) - 1
		}
		json.NewEncoder(w).Encode(responses[n])
	}))
	t.Cleanup(srv.Close)

	client, err := engine.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestPollsUntilCompleted(t *testing.T) {
	client := statusServer(t, nil,
		map[string]any{"status": "in_progress", "progress_percentage": 50.0},
		map[string]any{"status": "completed", "progress_percentage": 100.0},
	)

	logs := logbuf.New(100)
	statuses := make(chan engine.JobStatus, 8)
	p := New(client, "doc1", 10*time.Millisecond, logs, func(st engine.JobStatus) {
		statuses <- st
	})

	p.Start(context.Background())
	p.Wait()

	if p.Running() {
		t.Error("poller must stop itself on a terminal state")
	}

	var seen []engine.JobStatus
	for len(statuses) > 0 {
		seen = append(seen, <-statuses)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(seen))
	}
	if seen[0].State != engine.JobInProgress || seen[1].State != engine.JobCompleted {
		t.Errorf("unexpected snapshots: %+v", seen)
	}
}

func TestFailedJobStopsPollingWithMessage(t *testing.T) {
	var hits atomic.Int64
	client := statusServer(t, &hits,
		map[string]any{"status": "failed", "error_message": "engine timeout"},
	)

	logs := logbuf.New(100)
	var last engine.JobStatus
	p := New(client, "doc1", 10*time.Millisecond, logs, func(st engine.JobStatus) {
		last = st
	})

	p.Start(context.Background())
	p.Wait()

	if last.State != engine.JobFailed || last.ErrorMessage != "engine timeout" {
		t.Errorf("unexpected terminal snapshot: %+v", last)
	}

	// No further requests are issued after the terminal state.
	settled := hits.Load()
	time.Sleep(50 * time.Millisecond)
	if hits.Load() != settled {
		t.Errorf("poller kept issuing requests after failure: %d -> %d", settled, hits.Load())
	}
}

func TestFailedTickRetries(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		if n == 1 {
			// One broken response; the poller must carry on.
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "completed"})
	}))
	t.Cleanup(srv.Close)
	client, err := engine.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	logs := logbuf.New(100)
	got := make(chan engine.JobStatus, 1)
	p := New(client, "doc1", 10*time.Millisecond, logs, func(st engine.JobStatus) {
		got <- st
	})

	p.Start(context.Background())
	p.Wait()

	st := <-got
	if st.State != engine.JobCompleted {
		t.Errorf("expected completion after retry, got %+v", st)
	}

	var warned bool
	for _, e := range logs.Entries() {
		if e.Level == logbuf.LevelWarn && e.Category == "poller" {
			warned = true
		}
	}
	if !warned {
		t.Error("expected a warning for the failed tick")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	client := statusServer(t, nil, map[string]any{"status": "in_progress"})
	p := New(client, "doc1", 10*time.Millisecond, logbuf.New(10), func(engine.JobStatus) {})

	p.Start(context.Background())
	p.Stop()
	p.Stop() // must not panic or error
	p.Wait()

	if p.Running() {
		t.Error("expected stopped poller")
	}

	// Stopping before ever starting is also fine.
	fresh := New(client, "doc2", 10*time.Millisecond, logbuf.New(10), func(engine.JobStatus) {})
	fresh.Stop()
}

func TestLateResponseDiscardedAfterStop(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		json.NewEncoder(w).Encode(map[string]any{"status": "in_progress"})
	}))
	t.Cleanup(srv.Close)
	client, err := engine.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	var applied atomic.Int64
	p := New(client, "doc1", 5*time.Millisecond, logbuf.New(10), func(engine.JobStatus) {
		applied.Add(1)
	})

	p.Start(context.Background())
	time.Sleep(20 * time.Millisecond) // let a request get in flight
	p.Stop()
	close(release)
	p.Wait()

	if applied.Load() != 0 {
		t.Error("a response arriving after Stop must be discarded")
	}
}
