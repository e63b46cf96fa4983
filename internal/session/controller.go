// Package session owns the view state of one QA session: the active document,
// the saved-document collection, the in-flight ask, and the highlighted
// citation.
package session

import (
	"context"
	"sync"

	"trustcite/api/internal/docstore"
	"trustcite/api/internal/qa"
	"trustcite/api/internal/span"
)

// DefaultQuestion seeds the question field for a fresh session.
const DefaultQuestion = "What is Vancouver known for?"

// DemoDocText is the built-in document used when no saved document exists.
func DemoDocText() string {
	return "TrustCite Demo Doc\n\n" +
		"This system answers questions only using the provided document.\n" +
		"If it cannot find evidence, it will abstain.\n\n" +
		"Vancouver is a coastal city in British Columbia. It is known for its film industry.\n\n" +
		"This is a tiny demo doc."
}

type documentStore interface {
	Load(ctx context.Context) ([]docstore.SavedDocument, error)
	List(ctx context.Context) ([]docstore.SavedDocument, error)
	Add(ctx context.Context, title, text string) (docstore.SavedDocument, error)
	Remove(ctx context.Context, id string) error
	UpdateText(ctx context.Context, id, text string) error
}

type askCoordinator interface {
	Ask(ctx context.Context, question, documentText string) qa.Outcome
}

// Snapshot is the externally observable view state plus the saved collection.
type Snapshot struct {
	ActiveDocumentText string                   `json:"activeDocumentText"`
	SelectedDocumentID *string                  `json:"selectedDocumentId"`
	EditMode           bool                     `json:"editMode"`
	Question           string                   `json:"question"`
	Loading            bool                     `json:"loading"`
	LastResponse       *qa.AskResponse          `json:"lastResponse"`
	LastError          *string                  `json:"lastError"`
	ActiveCitation     *qa.Citation             `json:"activeCitation"`
	Documents          []docstore.SavedDocument `json:"documents"`
}

// Controller coordinates the session. All state lives behind one mutex; the
// only operation that runs outside it is the ask itself, which is applied on
// settlement only if its generation is still current. The generation advances
// on every new ask and on every document switch, so a slow settlement can
// neither overwrite a newer answer nor land on a different document.
type Controller struct {
	docs        documentStore
	coordinator askCoordinator

	mu             sync.Mutex
	activeText     string
	selectedID     string // empty when no saved document is selected
	editMode       bool
	question       string
	loading        bool
	lastResponse   *qa.AskResponse
	lastError      string
	activeCitation *qa.Citation
	generation     uint64
	pendingGen     uint64 // generation of the ask that owns the loading flag
}

// New creates a controller; call Init before use.
func New(docs documentStore, coordinator askCoordinator) *Controller {
	return &Controller{
		docs:        docs,
		coordinator: coordinator,
		activeText:  DemoDocText(),
		editMode:    true,
		question:    DefaultQuestion,
	}
}

// Init loads the saved collection and selects its most recent entry in view
// mode, or falls back to the demo document in edit mode.
func (c *Controller) Init(ctx context.Context) error {
	loaded, err := c.docs.Load(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(loaded) > 0 {
		c.selectedID = loaded[0].ID
		c.activeText = loaded[0].Text
		c.editMode = false
	} else {
		c.selectedID = ""
		c.activeText = DemoDocText()
		c.editMode = true
	}
	return nil
}

// LoadDemo resets the session to the built-in demo document in edit mode.
func (c *Controller) LoadDemo() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeText = DemoDocText()
	c.selectedID = ""
	c.resetResultsLocked()
	c.editMode = true
	c.generation++
}

// SaveNewDoc saves the active text under the given title, selects the new
// document, and switches to view mode.
func (c *Controller) SaveNewDoc(ctx context.Context, title string) (docstore.SavedDocument, error) {
	c.mu.Lock()
	text := c.activeText
	c.mu.Unlock()

	doc, err := c.docs.Add(ctx, title, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lastError = err.Error()
		return docstore.SavedDocument{}, err
	}
	c.selectedID = doc.ID
	c.editMode = false
	return doc, nil
}

// SelectDoc makes the document with the given id active in view mode,
// clearing any prior answer state. Selecting an unknown id is a no-op.
func (c *Controller) SelectDoc(ctx context.Context, id string) error {
	docs, err := c.docs.List(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, doc := range docs {
		if doc.ID == id {
			c.selectedID = doc.ID
			c.activeText = doc.Text
			c.resetResultsLocked()
			c.editMode = false
			c.generation++
			return nil
		}
	}
	return nil
}

// DeleteSelected removes the selected document. The next remaining document
// becomes active in view mode; with none left, the session reverts to the
// demo document in edit mode. No-op when nothing is selected.
func (c *Controller) DeleteSelected(ctx context.Context) error {
	c.mu.Lock()
	id := c.selectedID
	c.mu.Unlock()
	if id == "" {
		return nil
	}

	if err := c.docs.Remove(ctx, id); err != nil {
		c.mu.Lock()
		c.lastError = err.Error()
		c.mu.Unlock()
		return err
	}
	remaining, err := c.docs.List(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(remaining) > 0 {
		c.selectedID = remaining[0].ID
		c.activeText = remaining[0].Text
		c.editMode = false
	} else {
		c.selectedID = ""
		c.activeText = DemoDocText()
		c.editMode = true
	}
	c.resetResultsLocked()
	c.generation++
	return nil
}

// SetDocumentText updates the active text. While a saved document is
// selected, the stored copy tracks the edit; otherwise the edit is ephemeral.
func (c *Controller) SetDocumentText(ctx context.Context, text string) error {
	c.mu.Lock()
	c.activeText = text
	id := c.selectedID
	c.mu.Unlock()

	if id == "" {
		return nil
	}
	if err := c.docs.UpdateText(ctx, id, text); err != nil {
		c.mu.Lock()
		c.lastError = err.Error()
		c.mu.Unlock()
		return err
	}
	return nil
}

// SetQuestion replaces the pending question.
func (c *Controller) SetQuestion(question string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.question = question
}

// SetEditMode toggles between edit and view mode.
func (c *Controller) SetEditMode(edit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editMode = edit
}

// Ask submits the current question and active text. A new ask supersedes any
// pending one. On Success the response is stored, on Failure the message; a
// Cancelled settlement changes nothing. Loading is cleared on settlement by
// whichever ask currently owns it.
func (c *Controller) Ask(ctx context.Context) qa.Outcome {
	c.mu.Lock()
	c.loading = true
	c.resetResultsLocked()
	c.generation++
	mine := c.generation
	c.pendingGen = mine
	question := c.question
	text := c.activeText
	c.mu.Unlock()

	outcome := c.coordinator.Ask(ctx, question, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingGen == mine {
		c.loading = false
		c.pendingGen = 0
	}
	if c.generation != mine {
		// Superseded or the document changed underneath; discard.
		return qa.Outcome{Kind: qa.OutcomeCancelled}
	}
	switch outcome.Kind {
	case qa.OutcomeSuccess:
		c.lastResponse = outcome.Response
	case qa.OutcomeFailure:
		c.lastError = outcome.Message
	case qa.OutcomeCancelled:
		// The user's own newer action; nothing to record.
	}
	return outcome
}

// PickCitation highlights the given citation and forces view mode so the span
// is visible.
func (c *Controller) PickCitation(citation qa.Citation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cc := citation
	c.activeCitation = &cc
	c.editMode = false
}

// ClearCitation removes the highlight.
func (c *Controller) ClearCitation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeCitation = nil
}

// ResolveActiveSpan splits the active text around the active citation.
func (c *Controller) ResolveActiveSpan() span.Parts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return span.Resolve(c.activeText, c.activeCitation)
}

// Snapshot returns a copy of the view state plus the saved collection.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	docs, err := c.docs.List(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		ActiveDocumentText: c.activeText,
		EditMode:           c.editMode,
		Question:           c.question,
		Loading:            c.loading,
		LastResponse:       c.lastResponse,
		Documents:          docs,
	}
	if c.selectedID != "" {
		id := c.selectedID
		snap.SelectedDocumentID = &id
	}
	if c.lastError != "" {
		msg := c.lastError
		snap.LastError = &msg
	}
	if c.activeCitation != nil {
		cc := *c.activeCitation
		snap.ActiveCitation = &cc
	}
	return snap, nil
}

// resetResultsLocked clears the answer, error, and highlight. Caller holds mu.
func (c *Controller) resetResultsLocked() {
	c.lastResponse = nil
	c.lastError = ""
	c.activeCitation = nil
}
