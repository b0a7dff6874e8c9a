package session

import (
	"iter"
	"maps"
)

// Set is an unordered collection of UUIDs.
type Set struct {
	m map[UUID]struct{}
}

// NewSet returns a set holding ids.
func NewSet(ids ...UUID) *Set {
	s := &Set{m: make(map[UUID]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was not already present.
func (s *Set) Add(id UUID) bool {
	if s.m == nil {
		s.m = make(map[UUID]struct{})
	}
	if _, ok := s.m[id]; ok {
		return false
	}
	s.m[id] = struct{}{}
	return true
}

func (s *Set) Contains(id UUID) bool {
	_, ok := s.m[id]
	return ok
}

// Remove deletes id and reports whether it was present.
func (s *Set) Remove(id UUID) bool {
	if _, ok := s.m[id]; !ok {
		return false
	}
	delete(s.m, id)
	return true
}

func (s *Set) Len() int {
	return len(s.m)
}

// All iterates the set in no particular order.
func (s *Set) All() iter.Seq[UUID] {
	return maps.Keys(s.m)
}
