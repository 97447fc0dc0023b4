// Package store persists analysis results in an embedded Badger database.
// Records are keyed by the document content hash, which makes re-uploads
// of the same PDF cheap: the pipeline can return the stored result
// instead of paying for another vision pass.
package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/dgallion1/docmark/internal/findings"
)

// ErrNotFound is returned when no record exists for a content hash.
var ErrNotFound = errors.New("not found")

// Analysis is the stored outcome of one document run.
type Analysis struct {
	Hash       string
	Title      string
	Filename   string
	PageCount  int
	Model      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Summary    findings.Summary
	Raw        []findings.Detection
	Detections []findings.Detection
	Placed     []findings.HighlightInstruction
	Report     string
}

// pdfArtifact keeps the annotated PDF bytes out of the Analysis record
// so listing and summary reads stay cheap.
type pdfArtifact struct {
	Hash string
	Data []byte
}

// Store wraps a badgerhold database.
type Store struct {
	db *badgerhold.Store
}

// Open creates or opens the database under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Options = badger.DefaultOptions(dir).WithLogger(nil)

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveAnalysis upserts the record keyed by its content hash.
func (s *Store) SaveAnalysis(rec *Analysis) error {
	if rec.Hash == "" {
		return fmt.Errorf("analysis hash is required")
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	if err := s.db.Upsert(rec.Hash, rec); err != nil {
		return fmt.Errorf("save analysis %s: %w", rec.Hash, err)
	}
	return nil
}

func (s *Store) GetAnalysis(hash string) (*Analysis, error) {
	var rec Analysis
	if err := s.db.Get(hash, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get analysis %s: %w", hash, err)
	}
	return &rec, nil
}

// HasAnalysis reports whether a completed run exists for the hash.
func (s *Store) HasAnalysis(hash string) (bool, error) {
	_, err := s.GetAnalysis(hash)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) DeleteAnalysis(hash string) error {
	if err := s.db.Delete(hash, &Analysis{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("delete analysis %s: %w", hash, err)
	}
	if err := s.db.Delete(hash, &pdfArtifact{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("delete pdf %s: %w", hash, err)
	}
	return nil
}

// ListAnalyses returns up to limit records, newest first.
func (s *Store) ListAnalyses(limit int) ([]Analysis, error) {
	var recs []Analysis
	if err := s.db.Find(&recs, badgerhold.Where("Hash").Ne("").SortBy("UpdatedAt").Reverse().Limit(limit)); err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return recs, nil
}

// SavePDF stores the annotated PDF for a hash.
func (s *Store) SavePDF(hash string, data []byte) error {
	if err := s.db.Upsert(hash, &pdfArtifact{Hash: hash, Data: data}); err != nil {
		return fmt.Errorf("save pdf %s: %w", hash, err)
	}
	return nil
}

func (s *Store) GetPDF(hash string) ([]byte, error) {
	var art pdfArtifact
	if err := s.db.Get(hash, &art); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get pdf %s: %w", hash, err)
	}
	return art.Data, nil
}
