package server

import (
	"sync"

	"github.com/hpungsan/invoicename/internal/invoice"
)

// Store keeps tasks in memory. Tasks are copied on the way in and out so
// handlers can mutate what they get without affecting other requests.
type Store struct {
	mu    sync.Mutex
	tasks map[string]*invoice.Task
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{tasks: make(map[string]*invoice.Task)}
}

// Save stores a copy of task.
func (s *Store) Save(task *invoice.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task.Clone()
}

// Get returns a copy of the task, or nil.
func (s *Store) Get(id string) *invoice.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[id].Clone()
}
