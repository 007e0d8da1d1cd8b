// Package migrations embeds the schema DDL applied by `refinery migrate`.
package migrations

import "embed"

// FS holds one directory of numbered .sql files per schema role.
//
//go:embed staging/*.sql refined/*.sql
var FS embed.FS

const (
	StagingDir = "staging"
	RefinedDir = "refined"
)
