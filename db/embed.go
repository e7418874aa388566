// Package db embeds the SQL migration files applied at startup.
package db

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrations returns the embedded migration files in lexical order.
// File names carry a numeric prefix, so lexical order is apply order.
func Migrations() ([]string, error) {
	entries, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(entries)

	out := make([]string, len(entries))
	for i, name := range entries {
		data, err := migrationFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out[i] = string(data)
	}
	return out, nil
}
