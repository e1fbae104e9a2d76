package tenantdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gorm.io/gorm"
)

// Seeder executes *.sql files from a directory in lexical order.
type Seeder struct {
	path string
}

func NewSeeder(path string) *Seeder {
	return &Seeder{path: path}
}

// Seed runs every seed file against db. A missing directory is not an error.
func (s *Seeder) Seed(ctx context.Context, db *gorm.DB) (int, error) {
	files, err := filepath.Glob(filepath.Join(s.path, "*.sql"))
	if err != nil {
		return 0, errors.Join(ErrSeedFailed, err)
	}
	slices.Sort(files)

	for i, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return i, errors.Join(ErrSeedFailed, err)
		}
		for _, stmt := range splitStatements(string(raw)) {
			if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
				return i, errors.Join(ErrSeedFailed, fmt.Errorf("%s: %w", filepath.Base(file), err))
			}
		}
	}
	return len(files), nil
}

// splitStatements splits a script on semicolons that end a line. Lines
// starting with "--" are dropped.
func splitStatements(script string) []string {
	var (
		stmts []string
		cur   strings.Builder
	)
	for line := range strings.SplitSeq(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			if stmt := strings.TrimSuffix(strings.TrimSpace(cur.String()), ";"); stmt != "" {
				stmts = append(stmts, stmt)
			}
			cur.Reset()
		}
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		stmts = append(stmts, rest)
	}
	return stmts
}
