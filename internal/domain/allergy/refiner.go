package allergy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/refinery/internal/domain/outcome"
	"github.com/ehr/refinery/internal/domain/staging"
	"github.com/ehr/refinery/internal/platform/dedup"
)

type Inserted struct {
	Codes  int64 `json:"codes"`
	Events int64 `json:"events"`
}

func (i Inserted) Total() int64 { return i.Codes + i.Events }

// Report is the outcome of refining one batch. Codes holds rows whose coding
// could not be used; Events holds rows that failed validation before that.
type Report struct {
	Codes    []outcome.Failure `json:"codes,omitempty"`
	Events   []outcome.Failure `json:"events,omitempty"`
	Inserted Inserted          `json:"inserted"`
}

func (r *Report) AllSucceeded() bool {
	return len(r.Codes) == 0 && len(r.Events) == 0
}

func (r *Report) Failures() []outcome.Failure {
	out := make([]outcome.Failure, 0, len(r.Codes)+len(r.Events))
	out = append(out, r.Events...)
	return append(out, r.Codes...)
}

type Refiner struct {
	logger zerolog.Logger
}

func NewRefiner(logger zerolog.Logger) *Refiner {
	return &Refiner{logger: logger.With().Str("kind", "allergy").Logger()}
}

// Refine validates rows, interns their codes and writes the events the store
// does not already hold. A bad coding only excludes its own row.
func (r *Refiner) Refine(ctx context.Context, st Store, rows []staging.RawRecord) (*Report, error) {
	rep := &Report{}

	type pending struct {
		event Event
		key   CodeKey
	}
	var (
		batch []pending
		keys  []CodeKey
	)
	for _, row := range rows {
		c, err := ParseEvent(row.Payload)
		if err != nil {
			rep.Events = append(rep.Events, outcome.New(row.ID, c.SourceID, outcome.EntityEvent, outcome.ReasonInvalidEvent, err))
			continue
		}
		key, err := c.CodeKey()
		if err != nil {
			rep.Codes = append(rep.Codes, outcome.New(row.ID, c.SourceID, outcome.EntityCoding, outcome.ReasonInvalidCoding, err))
			continue
		}
		batch = append(batch, pending{event: c.Event, key: key})
		keys = append(keys, key)
	}
	if len(batch) == 0 {
		return rep, nil
	}

	insert := func(ctx context.Context, missing []CodeKey) error {
		n, err := st.InsertCodes(ctx, missing)
		rep.Inserted.Codes += n
		return err
	}
	codeIDs, err := dedup.Intern(ctx, keys, st.ResolveCodes, insert)
	if err != nil {
		return nil, fmt.Errorf("intern codes: %w", err)
	}

	events := make([]Event, len(batch))
	for i, p := range batch {
		events[i] = p.event
		events[i].CodeID = codeIDs[p.key]
	}

	fresh, err := dedup.Fresh(ctx, events, Event.Key, st.ExistingEvents)
	if err != nil {
		return nil, fmt.Errorf("lookup events: %w", err)
	}
	if skipped := len(events) - len(fresh); skipped > 0 {
		r.logger.Debug().Int("skipped", skipped).Msg("allergy events already refined")
	}

	if rep.Inserted.Events, err = st.InsertEvents(ctx, fresh); err != nil {
		return nil, fmt.Errorf("insert events: %w", err)
	}
	return rep, nil
}
