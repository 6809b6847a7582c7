package storage

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// PostgresMigrator applies the versioned chain registry schema
type PostgresMigrator struct {
	m *migrate.Migrate
}

// NewPostgresMigrator reads golang-migrate files (NNN_name.up.sql /
// NNN_name.down.sql) from the root of source
func NewPostgresMigrator(databaseURL string, source fs.FS) (*PostgresMigrator, error) {
	driver, err := iofs.New(source, ".")
	if err != nil {
		return nil, fmt.Errorf("read postgres migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres migrator: %w", err)
	}
	return &PostgresMigrator{m: m}, nil
}

// Up applies every pending migration; nothing pending is not an error
func (p *PostgresMigrator) Up() error {
	if err := p.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration
func (p *PostgresMigrator) Down() error {
	if err := p.m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Version returns the applied version; 0 when nothing ran yet
func (p *PostgresMigrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = p.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("migration version: %w", err)
	}
	return version, dirty, nil
}

func (p *PostgresMigrator) Close() error {
	srcErr, dbErr := p.m.Close()
	return errors.Join(srcErr, dbErr)
}
