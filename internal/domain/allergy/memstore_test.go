package allergy

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var errUniqueViolation = errors.New("duplicate key value violates unique constraint")

type memStore struct {
	codes  map[CodeKey]int64
	nextID int64
	events map[uuid.UUID]Event

	codeInserts int
}

func newMemStore() *memStore {
	return &memStore{codes: map[CodeKey]int64{}, events: map[uuid.UUID]Event{}}
}

func (m *memStore) ResolveCodes(_ context.Context, keys []CodeKey) (map[CodeKey]int64, error) {
	out := map[CodeKey]int64{}
	for _, k := range keys {
		if id, ok := m.codes[k]; ok {
			out[k] = id
		}
	}
	return out, nil
}

func (m *memStore) InsertCodes(_ context.Context, keys []CodeKey) (int64, error) {
	m.codeInserts++
	for _, k := range keys {
		if _, dup := m.codes[k]; dup {
			return 0, errUniqueViolation
		}
		m.nextID++
		m.codes[k] = m.nextID
	}
	return int64(len(keys)), nil
}

func (m *memStore) ExistingEvents(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, id := range ids {
		if _, ok := m.events[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *memStore) InsertEvents(_ context.Context, events []Event) (int64, error) {
	for _, e := range events {
		if _, dup := m.events[e.UUID]; dup {
			return 0, errUniqueViolation
		}
		m.events[e.UUID] = e
	}
	return int64(len(events)), nil
}
