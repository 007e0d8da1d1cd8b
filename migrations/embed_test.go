package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/refinery/internal/platform/db"
)

func TestEmbeddedMigrationsLoad(t *testing.T) {
	for dir, want := range map[string][]string{
		StagingDir: {"001_raw_tables.sql"},
		RefinedDir: {"001_patients.sql", "002_allergies.sql"},
	} {
		t.Run(dir, func(t *testing.T) {
			migrations, err := db.NewMigrator(nil, FS, dir).LoadMigrations()
			require.NoError(t, err)

			var names []string
			for _, m := range migrations {
				names = append(names, m.Name)
				assert.NotEmpty(t, m.SQL)
			}
			assert.Equal(t, want, names)
		})
	}
}
