package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closedThing struct {
	Name  *string      `json:"name"`
	Tags  StringOrList `json:"tags"`
	Count int          `json:"count"`
}

func TestDecodeStrict(t *testing.T) {
	t.Run("accepts known fields", func(t *testing.T) {
		var v closedThing
		require.NoError(t, DecodeStrict([]byte(`{"name":"x","tags":"a","count":2}`), &v, "thing"))
		assert.Equal(t, "x", *v.Name)
		assert.Equal(t, StringOrList{"a"}, v.Tags)
		assert.Equal(t, 2, v.Count)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		var v closedThing
		err := DecodeStrict([]byte(`{"name":"x","colour":"red"}`), &v, "thing")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownField)

		var fe *FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "thing.colour", fe.Field)
	})

	t.Run("reports type mismatches with the field path", func(t *testing.T) {
		var v closedThing
		err := DecodeStrict([]byte(`{"count":"many"}`), &v, "thing")
		var fe *FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "thing.count", fe.Field)
	})

	t.Run("rejects bad tag shapes", func(t *testing.T) {
		var v closedThing
		err := DecodeStrict([]byte(`{"tags":42}`), &v, "thing")
		var fe *FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "thing", fe.Field)
	})

	for name, doc := range map[string]string{
		"empty":     ``,
		"null":      `null`,
		"malformed": `{"name":`,
		"trailing":  `{"name":"x"} {}`,
	} {
		t.Run("rejects "+name, func(t *testing.T) {
			var v closedThing
			var fe *FieldError
			require.ErrorAs(t, DecodeStrict([]byte(doc), &v, "thing"), &fe)
		})
	}
}

func TestRequiredAndOptional(t *testing.T) {
	s := func(v string) *string { return &v }

	got, err := Required("family", s("  Smith "))
	require.NoError(t, err)
	assert.Equal(t, "Smith", got)

	_, err = Required("family", s("   "))
	assert.ErrorIs(t, err, ErrRequired)

	_, err = Required("family", nil)
	assert.ErrorIs(t, err, ErrRequired)

	assert.Nil(t, Optional(s("")))
	assert.Nil(t, Optional(nil))
	assert.Equal(t, "90210", *Optional(s("90210")))
}

func TestText_NormalizesToNFC(t *testing.T) {
	assert.Equal(t, "Jos\u00e9", Text(" Jose\u0301 "))
}

func TestStringOrList_Collapse(t *testing.T) {
	tests := []struct {
		name    string
		in      StringOrList
		want    *string
		wantErr bool
	}{
		{"nil", nil, nil, false},
		{"blank members dropped", StringOrList{"", "  "}, nil, false},
		{"single", StringOrList{"food"}, ptr("food"), false},
		{"single among blanks", StringOrList{"", "food"}, ptr("food"), false},
		{"several", StringOrList{"food", "environment"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Collapse("category")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func ptr(s string) *string { return &s }

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-03-01T10:15:30", time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)},
		{"2024-03-01T10:15:30Z", time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)},
		{"2024-03-01T10:15:30+02:00", time.Date(2024, 3, 1, 8, 15, 30, 0, time.UTC)},
		{"2024-03-01T10:15:30.250Z", time.Date(2024, 3, 1, 10, 15, 30, 250_000_000, time.UTC)},
		{"2024-03-01 10:15:30", time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDateTime("recordedDate", tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	for _, bad := range []string{"", "yesterday", "2024-13-01", "01/03/2024"} {
		_, err := ParseDateTime("recordedDate", bad)
		var fe *FieldError
		assert.ErrorAs(t, err, &fe, bad)
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("birthDate", "1990-07-04")
	require.NoError(t, err)
	assert.Equal(t, time.Date(1990, 7, 4, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDate("birthDate", "1990-07-04T23:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(1990, 7, 4, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("birthDate", "1990-02-30")
	assert.Error(t, err)
}

func TestParseReference(t *testing.T) {
	const id = "8f4e9b3c-2c4d-4a7e-9a51-0d1c2b3a4f5e"

	for _, ref := range []string{
		"Patient/" + id,
		"patient/" + id,
		"PATIENT/" + id,
		id,
		"urn:uuid:" + id,
	} {
		got, err := ParseReference("patient.reference", ref, "Patient")
		require.NoError(t, err, ref)
		assert.Equal(t, id, got.String())
	}

	_, err := ParseReference("patient.reference", "Practitioner/"+id, "Patient")
	assert.Error(t, err)

	_, err = ParseReference("patient.reference", "Patient/not-a-uuid", "Patient")
	assert.Error(t, err)

	_, err = ParseReference("patient.reference", "", "Patient")
	assert.ErrorIs(t, err, ErrRequired)
}

type colour string

func TestSynonyms_Match(t *testing.T) {
	table := Synonyms[colour]{
		"red":     "red",
		"crimson": "red",
		"blue":    "blue",
	}

	got, err := table.Match("colour", "  CRIMSON ")
	require.NoError(t, err)
	assert.Equal(t, colour("red"), got)

	_, err = table.Match("colour", "green")
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Reason, "blue, red")
}
