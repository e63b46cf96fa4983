package qa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientAskSuccess(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/ask" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Question != "What is Vancouver known for?" {
			t.Errorf("question = %q", req.Question)
		}
		if req.DocumentText != "some document" {
			t.Errorf("document_text = %q", req.DocumentText)
		}

		resp := AskResponse{
			Answer: []AnswerSentence{
				{Sentence: "Vancouver is known for its film industry.", Citations: []Citation{{ChunkID: "c0", Start: 10, End: 42}}},
			},
			Abstained: false,
			Trace: Trace{
				Retrieved:  []RetrievedChunk{{ChunkID: "c0", Score: 0.91}},
				Thresholds: map[string]float64{"retrieval": 0.3},
				TimingsMS:  map[string]float64{"total": 512},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer backend.Close()

	client := NewClient(backend.URL, 5*time.Second)
	resp, err := client.Ask(context.Background(), "What is Vancouver known for?", "some document")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if len(resp.Answer) != 1 {
		t.Fatalf("expected 1 sentence, got %d", len(resp.Answer))
	}
	if resp.Answer[0].Citations[0].ChunkID != "c0" {
		t.Errorf("citation chunk = %q", resp.Answer[0].Citations[0].ChunkID)
	}
	if resp.Abstained {
		t.Error("expected abstained false")
	}
}

func TestClientAskErrorMessagePriority(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail field wins", 422, `{"detail":"question too short","error":"other"}`, "question too short"},
		{"error field next", 500, `{"error":"internal failure"}`, "internal failure"},
		{"raw body excerpt", 503, "upstream exploded", "upstream exploded"},
		{"long raw body truncated", 503, strings.Repeat("x", 400), strings.Repeat("x", 180)},
		{"empty body falls back", 404, "", "Request failed (404)"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer backend.Close()

			client := NewClient(backend.URL, 5*time.Second)
			_, err := client.Ask(context.Background(), "q", "d")
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T: %v", err, err)
			}
			if apiErr.Status != tc.status {
				t.Errorf("status = %d, want %d", apiErr.Status, tc.status)
			}
			if apiErr.Message != tc.want {
				t.Errorf("message = %q, want %q", apiErr.Message, tc.want)
			}
		})
	}
}

func TestClientAskMalformedSuccessBody(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not json"))
	}))
	defer backend.Close()

	client := NewClient(backend.URL, 5*time.Second)
	_, err := client.Ask(context.Background(), "q", "d")
	if err == nil {
		t.Fatal("expected parse error for malformed 2xx body")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatalf("malformed 2xx body must not be an APIError: %v", err)
	}
}

func TestClientAskTimeout(t *testing.T) {
	release := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer backend.Close()
	defer close(release)

	client := NewClient(backend.URL, 30*time.Millisecond)
	_, err := client.Ask(context.Background(), "q", "d")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestClientAskCancellation(t *testing.T) {
	release := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer backend.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	client := NewClient(backend.URL, 5*time.Second)
	_, err := client.Ask(ctx, "q", "d")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestClientAskMissingBackendURL(t *testing.T) {
	client := NewClient("", 5*time.Second)
	_, err := client.Ask(context.Background(), "q", "d")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Errorf("status = %d", apiErr.Status)
	}
}
