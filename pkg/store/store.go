// Package store provides in-memory storage for named formulas.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Formula is a stored named formula definition.
type Formula struct {
	Name        string    `json:"name"`
	Expression  string    `json:"expression"`
	Description string    `json:"description,omitempty"`
	RevisionID  string    `json:"revisionId"`
	CreateTime  time.Time `json:"createTime"`
	UpdateTime  time.Time `json:"updateTime"`
}

// Store is a thread-safe in-memory storage for named formulas.
type Store struct {
	mu       sync.RWMutex
	formulas map[string]*Formula

	// Counter for generating revision IDs
	revCounter int64
}

// New creates a new empty store.
func New() *Store {
	return &Store{
		formulas: make(map[string]*Formula),
	}
}

// Create stores a new named formula.
func (s *Store) Create(name, expression, description string) (*Formula, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.formulas[name]; exists {
		return nil, fmt.Errorf("formula '%s' already exists", name)
	}

	s.revCounter++
	now := time.Now()
	f := &Formula{
		Name:        name,
		Expression:  expression,
		Description: description,
		RevisionID:  fmt.Sprintf("%06d-000", s.revCounter),
		CreateTime:  now,
		UpdateTime:  now,
	}
	s.formulas[name] = f
	return f, nil
}

// Get retrieves a formula by name.
func (s *Store) Get(name string) (*Formula, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.formulas[name]
	if !ok {
		return nil, fmt.Errorf("formula '%s' not found", name)
	}
	return f, nil
}

// List returns all formulas sorted by name.
func (s *Store) List() []*Formula {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Formula, 0, len(s.formulas))
	for _, f := range s.formulas {
		result = append(result, f)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Update replaces a formula's expression and, when non-empty, its
// description.
func (s *Store) Update(name, expression, description string) (*Formula, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.formulas[name]
	if !ok {
		return nil, fmt.Errorf("formula '%s' not found", name)
	}

	s.revCounter++
	f.Expression = expression
	if description != "" {
		f.Description = description
	}
	f.RevisionID = fmt.Sprintf("%06d-000", s.revCounter)
	f.UpdateTime = time.Now()

	return f, nil
}

// Delete removes a formula.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.formulas[name]; !ok {
		return fmt.Errorf("formula '%s' not found", name)
	}
	delete(s.formulas, name)
	return nil
}
