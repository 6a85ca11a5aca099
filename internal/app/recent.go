package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/natefinch/atomic"

	"github.com/egemenmermer/business-extractor/internal/model"
)

const maxRecent = 10

// RecentSearch is one submitted search, newest first in the recent list.
type RecentSearch struct {
	Request     model.SearchRequest `json:"request"`
	JobID       string              `json:"job_id"`
	SubmittedAt time.Time           `json:"submitted_at"`
	// Snapshot is the local snapshot saved for the job, if any.
	Snapshot string `json:"snapshot,omitempty"`
}

// Recent persists the recent-search list as JSON.
type Recent struct {
	path string
	mu   sync.Mutex
}

func NewRecent(path string) *Recent {
	return &Recent{path: path}
}

// List returns the stored entries. A missing or unreadable file is an empty
// list.
func (r *Recent) List() []RecentSearch {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries, _ := r.load()
	return entries
}

func (r *Recent) load() ([]RecentSearch, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []RecentSearch
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", r.path, err)
	}
	return entries, nil
}

// Add prepends e, dropping an older entry for the same job.
func (r *Recent) Add(e RecentSearch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, _ := r.load()
	entries = slices.DeleteFunc(entries, func(old RecentSearch) bool {
		return e.JobID != "" && old.JobID == e.JobID
	})
	entries = append([]RecentSearch{e}, entries...)
	if len(entries) > maxRecent {
		entries = entries[:maxRecent]
	}
	return r.write(entries)
}

// AttachSnapshot records path as the snapshot of jobID.
func (r *Recent) AttachSnapshot(jobID, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, _ := r.load()
	i := slices.IndexFunc(entries, func(e RecentSearch) bool { return e.JobID == jobID })
	if i < 0 {
		return nil
	}
	entries[i].Snapshot = path
	return r.write(entries)
}

func (r *Recent) write(entries []RecentSearch) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	return atomic.WriteFile(r.path, bytes.NewReader(data))
}
