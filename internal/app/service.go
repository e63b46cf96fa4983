package app

import (
	"context"
	"net/http"
	"time"

	"trustcite/api/internal/config"
	"trustcite/api/internal/docstore"
	"trustcite/api/internal/qa"
	"trustcite/api/internal/session"
	"trustcite/api/internal/span"
)

// Service exposes the session operations to the HTTP layer, mapping bad input
// and store misses onto DomainError.
type Service struct {
	cfg        config.Config
	controller *session.Controller
	docs       *docstore.Store
}

func New(cfg config.Config, controller *session.Controller, docs *docstore.Store) *Service {
	return &Service{cfg: cfg, controller: controller, docs: docs}
}

// Bootstrap initializes the session from the persisted collection.
func (s *Service) Bootstrap(ctx context.Context) error {
	return s.controller.Init(ctx)
}

// Ping reports storage backend health.
func (s *Service) Ping(ctx context.Context) error {
	return s.docs.Ping(ctx)
}

// BackendURL is the configured QA backend base URL; empty when unset.
func (s *Service) BackendURL() string {
	return s.cfg.BackendURL
}

// AskTimeout bounds relayed and coordinated asks.
func (s *Service) AskTimeout() time.Duration {
	return s.cfg.AskTimeout
}

// Snapshot returns the current view state.
func (s *Service) Snapshot(ctx context.Context) (session.Snapshot, error) {
	return s.controller.Snapshot(ctx)
}

// Ask runs a coordinated ask, optionally replacing the question first. The
// bool result reports whether the ask was superseded before settling.
func (s *Service) Ask(ctx context.Context, question string) (session.Snapshot, bool, error) {
	if question != "" {
		s.controller.SetQuestion(question)
	}
	outcome := s.controller.Ask(ctx)
	if outcome.Kind == qa.OutcomeCancelled {
		return session.Snapshot{}, true, nil
	}
	snap, err := s.controller.Snapshot(ctx)
	return snap, false, err
}

// SetDocumentText applies a live edit to the active document.
func (s *Service) SetDocumentText(ctx context.Context, text string) (session.Snapshot, error) {
	if err := s.controller.SetDocumentText(ctx, text); err != nil {
		return session.Snapshot{}, err
	}
	return s.controller.Snapshot(ctx)
}

// SetQuestion replaces the pending question.
func (s *Service) SetQuestion(ctx context.Context, question string) (session.Snapshot, error) {
	s.controller.SetQuestion(question)
	return s.controller.Snapshot(ctx)
}

// SetEditMode switches between edit and view mode.
func (s *Service) SetEditMode(ctx context.Context, edit bool) (session.Snapshot, error) {
	s.controller.SetEditMode(edit)
	return s.controller.Snapshot(ctx)
}

// LoadDemo resets the session to the built-in demo document.
func (s *Service) LoadDemo(ctx context.Context) (session.Snapshot, error) {
	s.controller.LoadDemo()
	return s.controller.Snapshot(ctx)
}

// PickCitation highlights a citation and returns the resolved span with the
// updated snapshot.
func (s *Service) PickCitation(ctx context.Context, citation qa.Citation) (session.Snapshot, span.Parts, error) {
	s.controller.PickCitation(citation)
	parts := s.controller.ResolveActiveSpan()
	snap, err := s.controller.Snapshot(ctx)
	return snap, parts, err
}

// ClearCitation removes the highlight.
func (s *Service) ClearCitation(ctx context.Context) (session.Snapshot, error) {
	s.controller.ClearCitation()
	return s.controller.Snapshot(ctx)
}

// Documents lists the saved collection.
func (s *Service) Documents(ctx context.Context) ([]docstore.SavedDocument, error) {
	return s.docs.List(ctx)
}

// SaveDocument saves the active text as a new document.
func (s *Service) SaveDocument(ctx context.Context, title string) (session.Snapshot, error) {
	if _, err := s.controller.SaveNewDoc(ctx, title); err != nil {
		return session.Snapshot{}, err
	}
	return s.controller.Snapshot(ctx)
}

// SelectDocument makes a saved document active. Unknown ids are a 404.
func (s *Service) SelectDocument(ctx context.Context, id string) (session.Snapshot, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return session.Snapshot{}, err
	}
	found := false
	for _, doc := range docs {
		if doc.ID == id {
			found = true
			break
		}
	}
	if !found {
		return session.Snapshot{}, domainError(http.StatusNotFound, "NOT_FOUND", "Document not found", nil)
	}
	if err := s.controller.SelectDoc(ctx, id); err != nil {
		return session.Snapshot{}, err
	}
	return s.controller.Snapshot(ctx)
}

// DeleteSelected removes the selected document; a no-op when nothing is
// selected.
func (s *Service) DeleteSelected(ctx context.Context) (session.Snapshot, error) {
	if err := s.controller.DeleteSelected(ctx); err != nil {
		return session.Snapshot{}, err
	}
	return s.controller.Snapshot(ctx)
}
