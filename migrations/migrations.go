// Package migrations embeds the SQL schema so the binaries can migrate
// without a checkout of this directory.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql
var postgresFiles embed.FS

//go:embed clickhouse/*.sql
var clickhouseFiles embed.FS

// Postgres returns the versioned golang-migrate files
func Postgres() fs.FS {
	return sub(postgresFiles, "postgres")
}

// ClickHouse returns the idempotent ClickHouse scripts
func ClickHouse() fs.FS {
	return sub(clickhouseFiles, "clickhouse")
}

func sub(fsys embed.FS, dir string) fs.FS {
	s, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return s
}
