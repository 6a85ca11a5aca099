// Package selection holds the categories and locations the user picked for
// the next search.
package selection

import (
	"slices"
	"strings"
	"sync"

	"github.com/egemenmermer/business-extractor/internal/model"
)

// set is an insertion-ordered, case-sensitive string set with a selected
// subset.
type set struct {
	items    []string
	selected map[string]bool
}

func newSet() set {
	return set{selected: make(map[string]bool)}
}

func (s *set) add(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" || slices.Contains(s.items, v) {
		return false
	}
	s.items = append(s.items, v)
	return true
}

func (s *set) remove(v string) {
	v = strings.TrimSpace(v)
	if i := slices.Index(s.items, v); i >= 0 {
		s.items = slices.Delete(s.items, i, i+1)
	}
	delete(s.selected, v)
}

func (s *set) setSelected(v string, on bool) {
	v = strings.TrimSpace(v)
	if !slices.Contains(s.items, v) {
		return
	}
	if on {
		s.selected[v] = true
	} else {
		delete(s.selected, v)
	}
}

func (s *set) toggle(v string) {
	v = strings.TrimSpace(v)
	s.setSelected(v, !s.selected[v])
}

func (s *set) all() []string {
	return slices.Clone(s.items)
}

func (s *set) chosen() []string {
	out := make([]string, 0, len(s.selected))
	for _, v := range s.items {
		if s.selected[v] {
			out = append(out, v)
		}
	}
	return out
}

func (s *set) isSelected(v string) bool {
	return s.selected[strings.TrimSpace(v)]
}

// Store is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	categories set
	locations  set
}

func New() *Store {
	return &Store{categories: newSet(), locations: newSet()}
}

// AddCategory adds c, unselected. It reports whether c was new.
func (s *Store) AddCategory(c string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categories.add(c)
}

func (s *Store) RemoveCategory(c string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories.remove(c)
}

// SelectCategory marks a known category as (de)selected. Unknown values are
// ignored.
func (s *Store) SelectCategory(c string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories.setSelected(c, on)
}

func (s *Store) ToggleCategory(c string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories.toggle(c)
}

func (s *Store) CategorySelected(c string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categories.isSelected(c)
}

func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categories.all()
}

func (s *Store) SelectedCategories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categories.chosen()
}

// AddLocation adds l, unselected. It reports whether l was new.
func (s *Store) AddLocation(l string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locations.add(l)
}

func (s *Store) RemoveLocation(l string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations.remove(l)
}

func (s *Store) SelectLocation(l string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations.setSelected(l, on)
}

func (s *Store) ToggleLocation(l string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations.toggle(l)
}

func (s *Store) LocationSelected(l string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locations.isSelected(l)
}

func (s *Store) Locations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locations.all()
}

func (s *Store) SelectedLocations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locations.chosen()
}

// Request builds a search request from the selected values, in insertion
// order.
func (s *Store) Request() model.SearchRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.SearchRequest{
		Categories: s.categories.chosen(),
		Locations:  s.locations.chosen(),
	}
}

// Load replaces the store contents with req, every value selected.
func (s *Store) Load(req model.SearchRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = newSet()
	s.locations = newSet()
	for _, c := range req.Categories {
		s.categories.add(c)
		s.categories.setSelected(c, true)
	}
	for _, l := range req.Locations {
		s.locations.add(l)
		s.locations.setSelected(l, true)
	}
}

// Clear drops every value.
func (s *Store) Clear() {
	s.Load(model.SearchRequest{})
}
