package patient

import (
	"context"

	"github.com/google/uuid"
)

// memStore is an in-memory Store with the same dedup semantics as the
// postgres tables.
type memStore struct {
	patients  map[uuid.UUID]Demographics
	names     map[NameKey]Name
	addresses map[AddressKey]Address
	telecoms  map[TelecomKey]Telecom

	lookups int
	failOn  string
}

func newMemStore() *memStore {
	return &memStore{
		patients:  map[uuid.UUID]Demographics{},
		names:     map[NameKey]Name{},
		addresses: map[AddressKey]Address{},
		telecoms:  map[TelecomKey]Telecom{},
	}
}

func present[K comparable, V any](m map[K]V, keys []K) []K {
	var out []K
	for _, k := range keys {
		if _, ok := m[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func (m *memStore) ExistingPatients(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]Demographics, error) {
	m.lookups++
	out := map[uuid.UUID]Demographics{}
	for _, id := range ids {
		if d, ok := m.patients[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}

func (m *memStore) ExistingNames(_ context.Context, keys []NameKey) ([]NameKey, error) {
	m.lookups++
	return present(m.names, keys), nil
}

func (m *memStore) ExistingAddresses(_ context.Context, keys []AddressKey) ([]AddressKey, error) {
	m.lookups++
	return present(m.addresses, keys), nil
}

func (m *memStore) ExistingTelecoms(_ context.Context, keys []TelecomKey) ([]TelecomKey, error) {
	m.lookups++
	return present(m.telecoms, keys), nil
}

func (m *memStore) InsertPatients(_ context.Context, ps []Demographics) (int64, error) {
	if m.failOn == "patients" && len(ps) > 0 {
		return 0, errUniqueViolation
	}
	for _, p := range ps {
		if _, dup := m.patients[p.UUID]; dup {
			return 0, errUniqueViolation
		}
		m.patients[p.UUID] = p
	}
	return int64(len(ps)), nil
}

func (m *memStore) InsertNames(_ context.Context, ns []Name) (int64, error) {
	for _, n := range ns {
		m.names[n.Key()] = n
	}
	return int64(len(ns)), nil
}

func (m *memStore) InsertAddresses(_ context.Context, as []Address) (int64, error) {
	for _, a := range as {
		m.addresses[a.Key()] = a
	}
	return int64(len(as)), nil
}

func (m *memStore) InsertTelecoms(_ context.Context, ts []Telecom) (int64, error) {
	for _, t := range ts {
		m.telecoms[t.Key()] = t
	}
	return int64(len(ts)), nil
}
