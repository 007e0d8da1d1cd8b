package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/refinery/internal/domain/outcome"
	"github.com/ehr/refinery/internal/domain/staging"
	"github.com/ehr/refinery/internal/platform/dedup"
)

// Inserted counts the rows a batch wrote.
type Inserted struct {
	Patients  int64 `json:"patients"`
	Names     int64 `json:"names"`
	Addresses int64 `json:"addresses"`
	Telecoms  int64 `json:"telecoms"`
}

func (i Inserted) Total() int64 {
	return i.Patients + i.Names + i.Addresses + i.Telecoms
}

// Report is the outcome of refining one batch.
type Report struct {
	Patients  []outcome.Failure `json:"patients,omitempty"`
	Names     []outcome.Failure `json:"names,omitempty"`
	Addresses []outcome.Failure `json:"addresses,omitempty"`
	Telecoms  []outcome.Failure `json:"telecoms,omitempty"`
	Inserted  Inserted          `json:"inserted"`
}

func (r *Report) AllSucceeded() bool {
	return len(r.Patients) == 0 && len(r.Names) == 0 && len(r.Addresses) == 0 && len(r.Telecoms) == 0
}

// Failures returns every failure list concatenated.
func (r *Report) Failures() []outcome.Failure {
	out := make([]outcome.Failure, 0, len(r.Patients)+len(r.Names)+len(r.Addresses)+len(r.Telecoms))
	out = append(out, r.Patients...)
	out = append(out, r.Names...)
	out = append(out, r.Addresses...)
	return append(out, r.Telecoms...)
}

func (r *Report) add(fs []outcome.Failure) {
	for _, f := range fs {
		switch f.Entity {
		case outcome.EntityName:
			r.Names = append(r.Names, f)
		case outcome.EntityAddress:
			r.Addresses = append(r.Addresses, f)
		case outcome.EntityTelecom:
			r.Telecoms = append(r.Telecoms, f)
		default:
			r.Patients = append(r.Patients, f)
		}
	}
}

type Refiner struct {
	logger zerolog.Logger
}

func NewRefiner(logger zerolog.Logger) *Refiner {
	return &Refiner{logger: logger.With().Str("kind", "patient").Logger()}
}

// Refine validates rows and writes every patient, name, address and telecom
// the store does not already hold. Row-level problems go in the report; a
// returned error means the batch must be rolled back.
//
// A patient that already exists is not rewritten, but its names, addresses
// and telecoms are still added when new.
func (r *Refiner) Refine(ctx context.Context, st Store, rows []staging.RawRecord) (*Report, error) {
	rep := &Report{}

	var (
		people    []Demographics
		names     []Name
		addresses []Address
		telecoms  []Telecom
	)
	for _, row := range rows {
		p, failures, ok := Parse(row.ID, row.Payload)
		rep.add(failures)
		if !ok {
			continue
		}
		people = append(people, p.Demographics)
		names = append(names, p.Names...)
		addresses = append(addresses, p.Addresses...)
		telecoms = append(telecoms, p.Telecoms...)
	}

	people = r.firstDemographics(people)
	if len(people) == 0 {
		return rep, nil
	}

	ids := make([]uuid.UUID, len(people))
	for i, d := range people {
		ids[i] = d.UUID
	}
	existing, err := st.ExistingPatients(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup patients: %w", err)
	}
	var fresh []Demographics
	for _, d := range people {
		stored, ok := existing[d.UUID]
		if !ok {
			fresh = append(fresh, d)
			continue
		}
		if !stored.BirthDate.Equal(d.BirthDate) || stored.Gender != d.Gender {
			r.logger.Warn().Str("uuid", d.UUID.String()).
				Time("stored_birth_date", stored.BirthDate).Time("incoming_birth_date", d.BirthDate).
				Str("stored_gender", string(stored.Gender)).Str("incoming_gender", string(d.Gender)).
				Msg("existing patient demographics differ; keeping stored values")
		}
	}

	freshNames, err := dedup.Fresh(ctx, names, Name.Key, st.ExistingNames)
	if err != nil {
		return nil, fmt.Errorf("lookup names: %w", err)
	}
	freshAddresses, err := dedup.Fresh(ctx, addresses, Address.Key, st.ExistingAddresses)
	if err != nil {
		return nil, fmt.Errorf("lookup addresses: %w", err)
	}
	freshTelecoms, err := dedup.Fresh(ctx, telecoms, Telecom.Key, st.ExistingTelecoms)
	if err != nil {
		return nil, fmt.Errorf("lookup telecoms: %w", err)
	}

	// Patients first: the other tables reference patients(uuid).
	if rep.Inserted.Patients, err = st.InsertPatients(ctx, fresh); err != nil {
		return nil, fmt.Errorf("insert patients: %w", err)
	}
	if rep.Inserted.Names, err = st.InsertNames(ctx, freshNames); err != nil {
		return nil, fmt.Errorf("insert names: %w", err)
	}
	if rep.Inserted.Addresses, err = st.InsertAddresses(ctx, freshAddresses); err != nil {
		return nil, fmt.Errorf("insert addresses: %w", err)
	}
	if rep.Inserted.Telecoms, err = st.InsertTelecoms(ctx, freshTelecoms); err != nil {
		return nil, fmt.Errorf("insert telecoms: %w", err)
	}

	return rep, nil
}

// firstDemographics keeps the first occurrence of each patient, warning when
// a later row in the same batch disagrees with it.
func (r *Refiner) firstDemographics(people []Demographics) []Demographics {
	first := make(map[uuid.UUID]Demographics, len(people))
	for _, d := range people {
		if f, ok := first[d.UUID]; ok {
			if !f.BirthDate.Equal(d.BirthDate) || f.Gender != d.Gender {
				r.logger.Warn().Str("uuid", d.UUID.String()).Msg("conflicting demographics within batch; keeping first")
			}
			continue
		}
		first[d.UUID] = d
	}
	return dedup.DistinctBy(people, func(d Demographics) uuid.UUID { return d.UUID })
}
