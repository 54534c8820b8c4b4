package factlookup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Static answers from an in-memory table. Subjects missing from the table
// are unavailable, not deceased.
type Static struct {
	mu    sync.RWMutex
	facts map[string]bool
}

// NewStatic creates a table lookup. Keys are normalized; invalid keys fail.
func NewStatic(facts map[string]bool) (*Static, error) {
	s := &Static{facts: make(map[string]bool, len(facts))}

	for id, alive := range facts {
		if err := s.Set(id, alive); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// LoadStatic reads a JSON object of {"123-45-6789": true, ...}.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read facts file:\n%w", err)
	}

	var facts map[string]bool
	if err := json.Unmarshal(data, &facts); err != nil {
		return nil, fmt.Errorf("parse facts file %s:\n%w", path, err)
	}

	return NewStatic(facts)
}

// Set records a fact.
func (s *Static) Set(subjectID string, alive bool) error {
	id, err := Normalize(subjectID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.facts[id] = alive
	s.mu.Unlock()

	return nil
}

// Len returns the number of known subjects.
func (s *Static) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.facts)
}

// Lookup implements Lookup.
func (s *Static) Lookup(ctx context.Context, subjectID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, &UnavailableError{SubjectID: subjectID, Reason: "cancelled", Err: err}
	}

	s.mu.RLock()
	alive, ok := s.facts[subjectID]
	s.mu.RUnlock()

	if !ok {
		return false, &UnavailableError{SubjectID: subjectID, Reason: "subject not in table"}
	}

	return alive, nil
}
