package storage

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/Aghostraa/oli-frontend/internal/logging"
)

// statementExecer is the part of ClickHouseDB the migration runner needs
type statementExecer interface {
	Exec(ctx context.Context, query string, args ...interface{}) error
}

// RunClickHouseMigrations executes every .sql file at the root of source in
// name order and returns how many files were applied. ClickHouse keeps no
// version table here, so every statement must be idempotent
// (CREATE ... IF NOT EXISTS).
func RunClickHouseMigrations(ctx context.Context, db statementExecer, source fs.FS) (int, error) {
	names, err := fs.Glob(source, "*.sql")
	if err != nil {
		return 0, fmt.Errorf("list clickhouse migrations: %w", err)
	}
	if len(names) == 0 {
		// Glob hides a missing directory
		if _, err := fs.ReadDir(source, "."); err != nil {
			return 0, fmt.Errorf("list clickhouse migrations: %w", err)
		}
		logging.FromContext(ctx).Warn("No ClickHouse migration files found")
		return 0, nil
	}
	sort.Strings(names)

	for applied, name := range names {
		content, err := fs.ReadFile(source, name)
		if err != nil {
			return applied, fmt.Errorf("read %s: %w", name, err)
		}

		logger := logging.FromContext(ctx).WithField("file", path.Base(name))
		for i, stmt := range splitSQLStatements(string(content)) {
			logger.WithField("statement", i+1).Debug("Executing ClickHouse statement")
			if err := db.Exec(ctx, stmt); err != nil {
				return applied, fmt.Errorf("%s statement %d: %w", name, i+1, err)
			}
		}
		logger.Info("Applied ClickHouse migration")
	}
	return len(names), nil
}

// splitSQLStatements splits on lines ending in ";". Blank lines and lines
// that are entirely "--" comments are dropped; trailing comments are kept.
func splitSQLStatements(content string) []string {
	var (
		statements []string
		lines      []string
	)
	emit := func() {
		stmt := strings.TrimSpace(strings.Join(lines, "\n"))
		stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
		if stmt != "" {
			statements = append(statements, stmt)
		}
		lines = lines[:0]
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		lines = append(lines, line)
		if strings.HasSuffix(trimmed, ";") {
			emit()
		}
	}
	emit()
	return statements
}
