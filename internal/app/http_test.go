package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"trustcite/api/internal/config"
	"trustcite/api/internal/qa"
	"trustcite/api/internal/session"
)

func doJSON(t *testing.T, method, url string, body any, target any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, config.Config{})

	var body map[string]any
	resp := doJSON(t, http.MethodGet, server.URL+"/api/health", nil, &body)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if body["ok"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestReady(t *testing.T) {
	server := newTestServer(t, config.Config{})

	var body map[string]any
	resp := doJSON(t, http.MethodGet, server.URL+"/api/ready", nil, &body)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if body["status"] != "ready" {
		t.Errorf("body = %v", body)
	}
}

func TestSessionStartsWithDemoDocument(t *testing.T) {
	server := newTestServer(t, config.Config{})

	var snap session.Snapshot
	resp := doJSON(t, http.MethodGet, server.URL+"/api/session", nil, &snap)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if snap.ActiveDocumentText != session.DemoDocText() {
		t.Error("expected demo document")
	}
	if !snap.EditMode {
		t.Error("expected edit mode")
	}
	if len(snap.Documents) != 0 {
		t.Errorf("expected no saved documents, got %d", len(snap.Documents))
	}
}

func TestDocumentLifecycleOverHTTP(t *testing.T) {
	server := newTestServer(t, config.Config{})

	// Edit the active text, then save it under a title.
	var snap session.Snapshot
	doJSON(t, http.MethodPut, server.URL+"/api/session/text", map[string]string{"text": "Hello"}, &snap)
	if snap.ActiveDocumentText != "Hello" {
		t.Fatalf("active text = %q", snap.ActiveDocumentText)
	}

	doJSON(t, http.MethodPost, server.URL+"/api/documents", map[string]string{"title": "Notes"}, &snap)
	if len(snap.Documents) != 1 || snap.Documents[0].Title != "Notes" || snap.Documents[0].Text != "Hello" {
		t.Fatalf("documents = %+v", snap.Documents)
	}
	if snap.SelectedDocumentID == nil || *snap.SelectedDocumentID != snap.Documents[0].ID {
		t.Error("saved document not selected")
	}
	if snap.EditMode {
		t.Error("expected view mode after save")
	}
	savedID := snap.Documents[0].ID

	// Load the demo, then select the saved document again.
	doJSON(t, http.MethodPost, server.URL+"/api/session/demo", nil, &snap)
	if snap.SelectedDocumentID != nil {
		t.Error("demo must clear the selection")
	}

	resp := doJSON(t, http.MethodPost, server.URL+fmt.Sprintf("/api/documents/%s/select", savedID), nil, &snap)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("select status = %d", resp.StatusCode)
	}
	if snap.ActiveDocumentText != "Hello" {
		t.Errorf("active text = %q", snap.ActiveDocumentText)
	}

	// Selecting an unknown id is a 404.
	var errBody map[string]any
	resp = doJSON(t, http.MethodPost, server.URL+"/api/documents/doc_missing/select", nil, &errBody)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown select status = %d", resp.StatusCode)
	}

	// Delete the selected document; the session reverts to the demo.
	doJSON(t, http.MethodDelete, server.URL+"/api/documents/selected", nil, &snap)
	if len(snap.Documents) != 0 {
		t.Errorf("documents = %+v", snap.Documents)
	}
	if snap.ActiveDocumentText != session.DemoDocText() || !snap.EditMode {
		t.Error("expected demo document in edit mode after deleting the last document")
	}
}

func TestAskOverHTTP(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req qa.AskRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(qa.AskResponse{
			Answer: []qa.AnswerSentence{{
				Sentence:  "Vancouver is known for its film industry.",
				Citations: []qa.Citation{{ChunkID: "c0", Start: 116, End: 150}},
			}},
		})
	}))
	defer backend.Close()

	server := newTestServer(t, config.Config{BackendURL: backend.URL})

	var snap session.Snapshot
	resp := doJSON(t, http.MethodPost, server.URL+"/api/session/ask", map[string]string{"question": "What is Vancouver known for?"}, &snap)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if snap.Loading {
		t.Error("loading must be cleared in the settled snapshot")
	}
	if snap.LastResponse == nil || len(snap.LastResponse.Answer) != 1 {
		t.Fatalf("lastResponse = %+v", snap.LastResponse)
	}
	if snap.Question != "What is Vancouver known for?" {
		t.Errorf("question = %q", snap.Question)
	}
}

func TestAskFailureSurfacesInSnapshot(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"question too short"}`))
	}))
	defer backend.Close()

	server := newTestServer(t, config.Config{BackendURL: backend.URL})

	var snap session.Snapshot
	doJSON(t, http.MethodPost, server.URL+"/api/session/ask", map[string]string{"question": "?"}, &snap)
	if snap.LastError == nil || *snap.LastError != "question too short" {
		t.Errorf("lastError = %v", snap.LastError)
	}
	if snap.LastResponse != nil {
		t.Error("failure must not record a response")
	}
}

func TestPickAndClearCitationOverHTTP(t *testing.T) {
	server := newTestServer(t, config.Config{})

	var snap session.Snapshot
	doJSON(t, http.MethodPut, server.URL+"/api/session/text", map[string]string{"text": "abcdefghijklmnopqrst"}, &snap)

	var picked struct {
		Session session.Snapshot `json:"session"`
		Span    struct {
			Before    string `json:"before"`
			Highlight string `json:"highlight"`
			After     string `json:"after"`
		} `json:"span"`
	}
	doJSON(t, http.MethodPost, server.URL+"/api/session/citation", qa.Citation{ChunkID: "c1", Start: 10, End: 5}, &picked)

	if picked.Span.Highlight != "fghij" {
		t.Errorf("highlight = %q, want %q", picked.Span.Highlight, "fghij")
	}
	if picked.Session.EditMode {
		t.Error("picking a citation must force view mode")
	}
	if picked.Session.ActiveCitation == nil || picked.Session.ActiveCitation.ChunkID != "c1" {
		t.Errorf("activeCitation = %+v", picked.Session.ActiveCitation)
	}

	doJSON(t, http.MethodDelete, server.URL+"/api/session/citation", nil, &snap)
	if snap.ActiveCitation != nil {
		t.Error("citation not cleared")
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	server := newTestServer(t, config.Config{})

	var body map[string]any
	resp := doJSON(t, http.MethodGet, server.URL+"/api/unknown", nil, &body)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if body["code"] != "NOT_FOUND" {
		t.Errorf("body = %v", body)
	}
}
