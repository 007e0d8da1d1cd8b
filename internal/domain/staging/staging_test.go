package staging

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"patient":            KindPatient,
		"Patients":           KindPatient,
		"allergy":            KindAllergy,
		"AllergyIntolerance": KindAllergy,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKind("observation")
	assert.Error(t, err)

	assert.Equal(t, "patients", KindPatient.Table())
	assert.Equal(t, "allergies", KindAllergy.Table())
	assert.Equal(t, "AllergyIntolerance", KindAllergy.ResourceType())
}

func TestFetchAndAckSQL(t *testing.T) {
	sql := fetchSQL(`"staging"."patients"`)
	assert.Contains(t, sql, "acknowledged = false AND id > $1")
	assert.Contains(t, sql, "ORDER BY id ASC")
	assert.Contains(t, sql, "LIMIT $2")

	assert.Equal(t,
		`UPDATE "staging"."allergies" SET acknowledged = true WHERE id = ANY($1) AND acknowledged = false`,
		ackSQL(`"staging"."allergies"`))
}

type recordingAppender struct {
	batches [][]string
	err     error
}

func (r *recordingAppender) Append(_ context.Context, payloads [][]byte) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	var batch []string
	for _, p := range payloads {
		batch = append(batch, string(p))
	}
	r.batches = append(r.batches, batch)
	return int64(len(payloads)), nil
}

func TestLoader_Load(t *testing.T) {
	input := strings.Join([]string{
		`{"resourceType":"Patient","id":"1"}`,
		``,
		`   `,
		`{"resourceType":"Patient",`,
		`[1,2,3]`,
		`  {"resourceType":"Patient","id":"2"}  `,
		`{"resourceType":"Patient","id":"3"}`,
	}, "\n")

	app := &recordingAppender{}
	res, err := NewLoader(app, 2, zerolog.Nop()).Load(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, LoadResult{Lines: 7, Loaded: 3, Skipped: 2}, res)
	assert.Equal(t, [][]string{
		{`{"resourceType":"Patient","id":"1"}`, `{"resourceType":"Patient","id":"2"}`},
		{`{"resourceType":"Patient","id":"3"}`},
	}, app.batches)
}

func TestLoader_AppendError(t *testing.T) {
	app := &recordingAppender{err: errors.New("copy failed")}
	_, err := NewLoader(app, 10, zerolog.Nop()).Load(context.Background(), strings.NewReader(`{"id":"1"}`))
	assert.ErrorIs(t, err, app.err)
}

func TestIDs(t *testing.T) {
	assert.Equal(t, []int64{3, 1}, IDs([]RawRecord{{ID: 3}, {ID: 1}}))
}
