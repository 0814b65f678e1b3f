// Package store persists run artifacts (export, suggestions, mapping,
// manifests and reports) as JSON documents under a base URL. Any afs scheme
// works: a local directory, mem:// in tests, or object storage.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/rflorenc/catalog-migrator/internal/mapping"
	"github.com/rflorenc/catalog-migrator/internal/models"
)

// ErrNotFound is returned when an artifact has not been written yet.
var ErrNotFound = errors.New("artifact not found")

const (
	exportFile      = "export.json"
	suggestionsFile = "suggestions.json"
	mappingFile     = "mapping.json"
	manifestFile    = "manifest.json"
	duplicatesFile  = "duplicates.json"
	rollbackFile    = "rollback.json"
	manifestsDir    = "manifests"
)

// Store reads and writes artifacts under BaseURL.
type Store struct {
	fs      afs.Service
	baseURL string
	mu      sync.Mutex
}

// New creates a Store rooted at baseURL. A bare path is treated as a local
// directory.
func New(baseURL string) *Store {
	if !strings.Contains(baseURL, "://") {
		if abs, err := filepath.Abs(baseURL); err == nil {
			baseURL = "file://" + abs
		}
	}
	return &Store{fs: afs.New(), baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *Store) BaseURL() string { return s.baseURL }

func (s *Store) url(elements ...string) string {
	return url.Join(s.baseURL, elements...)
}

func (s *Store) save(ctx context.Context, URL string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", URL, err)
	}
	return s.upload(ctx, URL, data)
}

func (s *Store) upload(ctx context.Context, URL string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing %s: %w", URL, err)
	}
	return nil
}

func (s *Store) download(ctx context.Context, URL string) ([]byte, error) {
	ok, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", URL, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", URL, ErrNotFound)
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", URL, err)
	}
	return data, nil
}

func (s *Store) load(ctx context.Context, URL string, v interface{}) error {
	data, err := s.download(ctx, URL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", URL, err)
	}
	return nil
}

func (s *Store) SaveExport(ctx context.Context, e *models.ExportSet) error {
	return s.save(ctx, s.url(exportFile), e)
}

func (s *Store) LoadExport(ctx context.Context) (*models.ExportSet, error) {
	var e models.ExportSet
	if err := s.load(ctx, s.url(exportFile), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) SaveSuggestions(ctx context.Context, sugs []models.Suggestion) error {
	return s.save(ctx, s.url(suggestionsFile), sugs)
}

func (s *Store) LoadSuggestions(ctx context.Context) ([]models.Suggestion, error) {
	var sugs []models.Suggestion
	if err := s.load(ctx, s.url(suggestionsFile), &sugs); err != nil {
		return nil, err
	}
	return sugs, nil
}

func (s *Store) SaveMapping(ctx context.Context, m *mapping.Store) error {
	data, err := m.Serialize()
	if err != nil {
		return err
	}
	return s.upload(ctx, s.url(mappingFile), data)
}

// LoadMapping returns the persisted mapping, or ErrNotFound.
func (s *Store) LoadMapping(ctx context.Context) (*mapping.Store, error) {
	data, err := s.download(ctx, s.url(mappingFile))
	if err != nil {
		return nil, err
	}
	return mapping.Deserialize(data)
}

// SaveManifest writes the manifest under its run id and as the latest
// manifest. It is called after every policy, so a failed run still leaves
// its progress behind.
func (s *Store) SaveManifest(ctx context.Context, m *models.Manifest) error {
	if err := s.save(ctx, s.url(manifestsDir, m.RunID+".json"), m); err != nil {
		return err
	}
	return s.save(ctx, s.url(manifestFile), m)
}

// LoadManifest loads the manifest of runID, or the latest when runID is empty.
func (s *Store) LoadManifest(ctx context.Context, runID string) (*models.Manifest, error) {
	URL := s.url(manifestFile)
	if runID != "" {
		URL = s.url(manifestsDir, runID+".json")
	}
	var m models.Manifest
	if err := s.load(ctx, URL, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) SaveDuplicates(ctx context.Context, r *models.DuplicateReport) error {
	return s.save(ctx, s.url(duplicatesFile), r)
}

func (s *Store) LoadDuplicates(ctx context.Context) (*models.DuplicateReport, error) {
	var r models.DuplicateReport
	if err := s.load(ctx, s.url(duplicatesFile), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) SaveRollback(ctx context.Context, r *models.RollbackReport) error {
	return s.save(ctx, s.url(rollbackFile), r)
}
