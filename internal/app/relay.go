package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
)

// relayClient is shared across relayed asks; per-request deadlines come from
// the request context.
var relayClient = &http.Client{}

// handleAskRelay forwards the ask body to the QA backend verbatim and passes
// the backend's status, body, and content-type back unchanged. The relay never
// interprets the payload; timeouts and transport failures surface as 502 with
// an error body, and a missing backend URL is a configuration error.
func (s *HTTPServer) handleAskRelay(w http.ResponseWriter, r *http.Request) {
	backend := s.service.BackendURL()
	if backend == "" {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Missing TRUSTCITE_BACKEND_URL"})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "could not read request body"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.service.AskTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, backend+"/ask", bytes.NewReader(body))
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := relayClient.Do(req)
	if err != nil {
		message := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			message = "Backend request timed out"
		}
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": message})
		return
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(raw)
}
