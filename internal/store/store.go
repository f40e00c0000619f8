// Package store provides the durable knowledge store: the persisted collection
// of ingested documents, their chunks, and chunk vectors.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperjump/kiban/internal/models"
	"go.uber.org/zap"
)

// SchemaVersion is the on-disk snapshot schema version.
const SchemaVersion = 1

// snapshot is the persisted representation: the full document list plus a
// schema marker and the last-saved timestamp, rewritten wholesale on each mutation.
type snapshot struct {
	SchemaVersion int                `json:"schema_version"`
	SavedAt       time.Time          `json:"saved_at"`
	NextID        int                `json:"next_id"`
	Documents     []*models.Document `json:"documents"`
}

type docList = []*models.Document

// KnowledgeStore is the process-wide persisted collection of documents.
// Mutations are serialized; reads observe an atomically swapped snapshot of
// the document list, so searches never see a torn update.
type KnowledgeStore struct {
	path   string
	logger *zap.Logger

	mu     sync.Mutex // serializes AddOrReplace and Clear
	nextID int
	docs   atomic.Pointer[docList]
}

// StoreOption configures a KnowledgeStore.
type StoreOption func(*KnowledgeStore)

// WithLogger sets a logger for load/save diagnostics.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *KnowledgeStore) { s.logger = l }
}

// Open creates a store backed by the snapshot file at path and loads it.
// A missing or corrupt snapshot yields an empty store, never an error: the
// condition is logged and the engine degrades rather than refusing to start.
func Open(path string, opts ...StoreOption) *KnowledgeStore {
	s := &KnowledgeStore{path: path, logger: zap.NewNop(), nextID: 1}
	for _, opt := range opts {
		opt(s)
	}
	empty := docList{}
	s.docs.Store(&empty)
	s.load()
	return s
}

func (s *KnowledgeStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("knowledge store unreadable, starting empty", zap.String("path", s.path), zap.Error(err))
		}
		return
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("knowledge store corrupt, starting empty", zap.String("path", s.path), zap.Error(err))
		return
	}
	if snap.SchemaVersion != SchemaVersion {
		s.logger.Warn("knowledge store schema version mismatch, starting empty",
			zap.Int("got", snap.SchemaVersion), zap.Int("want", SchemaVersion))
		return
	}
	docs := snap.Documents
	if docs == nil {
		docs = docList{}
	}
	s.nextID = snap.NextID
	for _, d := range docs {
		if d.ID >= s.nextID {
			s.nextID = d.ID + 1
		}
	}
	s.docs.Store(&docs)
	s.logger.Info("knowledge store loaded", zap.Int("documents", len(docs)), zap.String("path", s.path))
}

// Documents returns the current document list. The returned slice is a shared
// immutable snapshot; callers must not modify it or the documents it holds.
func (s *KnowledgeStore) Documents() []*models.Document {
	return *s.docs.Load()
}

// AddOrReplace inserts doc, first removing any existing document with the same
// filename, assigns the next sequential ID, and persists the store. The
// in-memory list is swapped only after a successful save, so a failed
// ingestion leaves the searchable state untouched; prior documents on disk
// are never corrupted either (the snapshot is written to a temp file and
// renamed).
func (s *KnowledgeStore) AddOrReplace(doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := *s.docs.Load()
	next := make(docList, 0, len(current)+1)
	filename := doc.Filename()
	for _, d := range current {
		if d.Filename() == filename {
			s.logger.Info("replacing existing document", zap.String("filename", filename), zap.Int("old_id", d.ID))
			continue
		}
		next = append(next, d)
	}
	doc.ID = s.nextID
	next = append(next, doc)

	if err := s.save(next); err != nil {
		return err
	}
	s.nextID++
	s.docs.Store(&next)
	return nil
}

// Clear empties the store and deletes the persisted snapshot. It is
// idempotent: clearing an empty store returns zero counts without error.
func (s *KnowledgeStore) Clear() (*models.ClearStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := *s.docs.Load()
	stats := &models.ClearStats{DocumentsRemoved: len(current)}
	for _, d := range current {
		stats.ChunksRemoved += len(d.Chunks)
	}

	empty := docList{}
	s.docs.Store(&empty)
	s.nextID = 1

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return stats, fmt.Errorf("remove snapshot: %w", err)
	}
	s.logger.Warn("knowledge store cleared",
		zap.Int("documents", stats.DocumentsRemoved), zap.Int("chunks", stats.ChunksRemoved))
	return stats, nil
}

// save writes the snapshot atomically: marshal to a temp file in the same
// directory, then rename over the old snapshot.
func (s *KnowledgeStore) save(docs docList) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	snap := snapshot{
		SchemaVersion: SchemaVersion,
		SavedAt:       time.Now().UTC(),
		NextID:        s.nextID,
		Documents:     docs,
	}
	data, err := json.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".kb-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("swap snapshot: %w", err)
	}
	return nil
}

// Len returns the number of documents in the store.
func (s *KnowledgeStore) Len() int {
	return len(*s.docs.Load())
}

// ChunkCount returns the total number of chunks across all documents.
func (s *KnowledgeStore) ChunkCount() int {
	n := 0
	for _, d := range *s.docs.Load() {
		n += len(d.Chunks)
	}
	return n
}

// SizeBytes returns the size of the persisted snapshot in bytes, or 0 if it
// does not exist.
func (s *KnowledgeStore) SizeBytes() int64 {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0
	}
	return info.Size()
}
