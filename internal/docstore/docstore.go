// Package docstore persists the saved-document collection as a single
// namespaced record in a key-value backend.
package docstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// RecordKey is the fixed key under which the whole collection is stored. It
// matches the record the browser client wrote, so existing corpora carry over.
const RecordKey = "trustcite_docs_v1"

// SavedDocument is one persisted document. ID and CreatedAt are immutable;
// Title and Text are replaced wholesale, never partially.
type SavedDocument struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"` // Unix milliseconds
}

// KV is a single-record byte store with overwrite semantics.
type KV interface {
	// Get returns the record bytes and whether the record exists.
	Get(ctx context.Context) ([]byte, bool, error)
	// Set replaces the record wholesale.
	Set(ctx context.Context, value []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// Store keeps the ordered collection (most recently saved first) in memory and
// mirrors every mutation to the KV backend. Mutations build the new collection
// first and only swap it in after the write succeeds, so a failed write leaves
// the prior collection intact.
type Store struct {
	kv KV

	mu     sync.Mutex
	docs   []SavedDocument
	loaded bool
}

// New creates a store over the given backend.
func New(kv KV) *Store {
	return &Store{kv: kv}
}

// Load reads the persisted collection. A missing or corrupt record yields an
// empty collection rather than an error; only backend transport failures are
// returned.
func (s *Store) Load(ctx context.Context) ([]SavedDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.kv.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	docs := []SavedDocument{}
	if ok {
		if err := json.Unmarshal(raw, &docs); err != nil {
			log.Printf("docstore: corrupt record under %s, starting empty: %v", RecordKey, err)
			docs = []SavedDocument{}
		}
	}

	s.docs = docs
	s.loaded = true
	return copyDocs(docs), nil
}

// List returns the current collection, reading from the backend on first use.
func (s *Store) List(ctx context.Context) ([]SavedDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(ctx); err != nil {
		return nil, err
	}
	return copyDocs(s.docs), nil
}

// Persist replaces the stored collection with docs.
func (s *Store) Persist(ctx context.Context, docs []SavedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx, copyDocs(docs))
}

// Add saves the given text as a new document at the front of the collection.
// A blank title becomes "Untitled doc".
func (s *Store) Add(ctx context.Context, title, text string) (SavedDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(ctx); err != nil {
		return SavedDocument{}, err
	}

	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		trimmed = "Untitled doc"
	}
	doc := SavedDocument{
		ID:        newDocID(),
		Title:     trimmed,
		Text:      text,
		CreatedAt: time.Now().UnixMilli(),
	}

	next := make([]SavedDocument, 0, len(s.docs)+1)
	next = append(next, doc)
	next = append(next, s.docs...)
	if err := s.persistLocked(ctx, next); err != nil {
		return SavedDocument{}, err
	}
	return doc, nil
}

// Remove deletes the document with the given id. Removing an absent id is not
// an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(ctx); err != nil {
		return err
	}

	next := make([]SavedDocument, 0, len(s.docs))
	for _, doc := range s.docs {
		if doc.ID != id {
			next = append(next, doc)
		}
	}
	return s.persistLocked(ctx, next)
}

// UpdateText replaces the text of the document with the given id, preserving
// its identity and position. Used to keep a selected document synced while the
// user edits it live.
func (s *Store) UpdateText(ctx context.Context, id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(ctx); err != nil {
		return err
	}

	next := copyDocs(s.docs)
	found := false
	for i := range next {
		if next[i].ID == id {
			next[i].Text = text
			found = true
			break
		}
	}
	if !found {
		return nil
	}
	return s.persistLocked(ctx, next)
}

// Ping reports whether the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.kv.Close()
}

func (s *Store) ensureLoadedLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	raw, ok, err := s.kv.Get(ctx)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	docs := []SavedDocument{}
	if ok {
		if err := json.Unmarshal(raw, &docs); err != nil {
			log.Printf("docstore: corrupt record under %s, starting empty: %v", RecordKey, err)
			docs = []SavedDocument{}
		}
	}
	s.docs = docs
	s.loaded = true
	return nil
}

func (s *Store) persistLocked(ctx context.Context, docs []SavedDocument) error {
	raw, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode documents: %w", err)
	}
	if err := s.kv.Set(ctx, raw); err != nil {
		return fmt.Errorf("persist documents: %w", err)
	}
	s.docs = docs
	s.loaded = true
	return nil
}

func copyDocs(docs []SavedDocument) []SavedDocument {
	out := make([]SavedDocument, len(docs))
	copy(out, docs)
	return out
}

func newDocID() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return "doc_" + hex.EncodeToString(bytes)
}
