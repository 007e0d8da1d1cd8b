package pipeline

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/ehr/refinery/internal/domain/allergy"
	"github.com/ehr/refinery/internal/domain/patient"
	"github.com/ehr/refinery/internal/domain/staging"
)

// memDB holds staging rows per kind. InTx snapshots the ack flags and puts
// them back when fn fails, which is all the rollback these tests observe.
type memDB struct {
	rows      map[staging.Kind][]staging.RawRecord
	allergies *memAllergies
	fetchErr  error
	ackErr    error
}

func newMemDB() *memDB {
	return &memDB{rows: map[staging.Kind][]staging.RawRecord{}, allergies: newMemAllergies()}
}

func (m *memDB) stage(kind staging.Kind, payloads map[int64]string) {
	for id, p := range payloads {
		m.rows[kind] = append(m.rows[kind], staging.RawRecord{ID: id, Payload: []byte(p)})
	}
}

func (m *memDB) acked(kind staging.Kind) []int64 {
	var ids []int64
	for _, r := range m.rows[kind] {
		if r.Acknowledged {
			ids = append(ids, r.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *memDB) InTx(ctx context.Context, fn func(tx Tx) error) error {
	snapshot := map[staging.Kind][]bool{}
	for k, rows := range m.rows {
		for _, r := range rows {
			snapshot[k] = append(snapshot[k], r.Acknowledged)
		}
	}

	if err := fn(memTx{m}); err != nil {
		for k, flags := range snapshot {
			for i := range flags {
				m.rows[k][i].Acknowledged = flags[i]
			}
		}
		return err
	}
	return nil
}

type memTx struct{ db *memDB }

func (t memTx) Staging(kind staging.Kind) staging.Store { return memStaging{db: t.db, kind: kind} }
func (t memTx) Patients() patient.Store { return nil }
func (t memTx) Allergies() allergy.Store { return t.db.allergies }

type memStaging struct {
	db   *memDB
	kind staging.Kind
}

func (s memStaging) FetchUnacked(_ context.Context, afterID int64, limit int) ([]staging.RawRecord, error) {
	if s.db.fetchErr != nil {
		return nil, s.db.fetchErr
	}
	var out []staging.RawRecord
	for _, r := range s.db.rows[s.kind] {
		if !r.Acknowledged && r.ID > afterID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s memStaging) Ack(_ context.Context, ids []int64) (int64, error) {
	if s.db.ackErr != nil {
		return 0, s.db.ackErr
	}
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var n int64
	rows := s.db.rows[s.kind]
	for i := range rows {
		if want[rows[i].ID] && !rows[i].Acknowledged {
			rows[i].Acknowledged = true
			n++
		}
	}
	return n, nil
}

type memAllergies struct {
	codes  map[allergy.CodeKey]int64
	events map[uuid.UUID]allergy.Event
}

func newMemAllergies() *memAllergies {
	return &memAllergies{codes: map[allergy.CodeKey]int64{}, events: map[uuid.UUID]allergy.Event{}}
}

func (m *memAllergies) ResolveCodes(_ context.Context, keys []allergy.CodeKey) (map[allergy.CodeKey]int64, error) {
	out := map[allergy.CodeKey]int64{}
	for _, k := range keys {
		if id, ok := m.codes[k]; ok {
			out[k] = id
		}
	}
	return out, nil
}

func (m *memAllergies) InsertCodes(_ context.Context, keys []allergy.CodeKey) (int64, error) {
	for _, k := range keys {
		m.codes[k] = int64(len(m.codes) + 1)
	}
	return int64(len(keys)), nil
}

func (m *memAllergies) ExistingEvents(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, id := range ids {
		if _, ok := m.events[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *memAllergies) InsertEvents(_ context.Context, events []allergy.Event) (int64, error) {
	for _, e := range events {
		if _, dup := m.events[e.UUID]; dup {
			return 0, errors.New("duplicate event")
		}
		m.events[e.UUID] = e
	}
	return int64(len(events)), nil
}
