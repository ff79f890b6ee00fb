package scenario

import "hash/fnv"

// Store exposes the scenario catalog.
type Store interface {
	List() []Scenario
	FindByID(id string) (Scenario, bool)
	Select(userID, jobRole string) Scenario
}

// MemoryStore implements Store over an immutable slice.
type MemoryStore struct {
	items []Scenario
}

// NewMemoryStore returns a MemoryStore holding a private copy of items.
// items must not be empty.
func NewMemoryStore(items []Scenario) *MemoryStore {
	if len(items) == 0 {
		panic("scenario: empty catalog")
	}
	return &MemoryStore{items: append([]Scenario(nil), items...)}
}

// List returns the catalog in selection order.
func (s *MemoryStore) List() []Scenario {
	return append([]Scenario(nil), s.items...)
}

// FindByID looks up a scenario by identifier.
func (s *MemoryStore) FindByID(id string) (Scenario, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Scenario{}, false
}

// Select picks the scenario for a user/role pair. The same pair always maps
// to the same scenario.
func (s *MemoryStore) Select(userID, jobRole string) Scenario {
	return s.items[Index(userID+":"+jobRole, len(s.items))]
}

// Index maps seed onto [0, n) with 32-bit FNV-1a.
func Index(seed string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	return int(h.Sum32() % uint32(n))
}
