// Package selector decides which tables of a database get dumped. It
// applies the configured inclusion list and the exclusion patterns to
// the live table list and reports what was skipped.
package selector

import (
	"mysql-dump/internal/config"
	"mysql-dump/internal/glob"
	"mysql-dump/internal/logging"
)

// Selection is the outcome of table selection for one database
type Selection struct {
	Tables   []string // tables to dump, in deterministic order
	Excluded []string // tables dropped by exclusion patterns
	Missing  []string // configured tables absent from the database
}

// Selector resolves table lists against the configuration
type Selector struct {
	logger *logging.Logger
}

// New creates a table selector
func New(logger *logging.Logger) *Selector {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Selector{logger: logger}
}

// Select computes the tables to dump for one database. The available
// list comes from the live server. With the wildcard the selection
// keeps the server's alphabetical order; an explicit list keeps its
// declaration order. A configured table missing from the server is
// skipped with a warning, never an error. Exclusion patterns apply to
// both modes and a table matching any pattern is dropped.
func (s *Selector) Select(database string, available []string, tables config.TableList, excludePatterns []string) *Selection {
	selection := &Selection{}

	candidates := s.includedTables(available, tables, selection)

	patterns := glob.CompileAll(excludePatterns)
	for _, table := range candidates {
		if glob.MatchAny(patterns, table) {
			selection.Excluded = append(selection.Excluded, table)
			continue
		}
		selection.Tables = append(selection.Tables, table)
	}

	s.logger.LogTableSelection(database, len(selection.Tables), len(selection.Excluded), len(selection.Missing))
	for _, missing := range selection.Missing {
		s.logger.WithFields(map[string]interface{}{
			"database": database,
			"table":    missing,
		}).Warn("Configured table does not exist, skipping")
	}

	return selection
}

// includedTables applies the inclusion side of the configuration
func (s *Selector) includedTables(available []string, tables config.TableList, selection *Selection) []string {
	if tables.All {
		return available
	}

	exists := make(map[string]bool, len(available))
	for _, table := range available {
		exists[table] = true
	}

	seen := make(map[string]bool)
	var included []string
	for _, name := range tables.Names() {
		if seen[name] {
			continue
		}
		seen[name] = true

		if !exists[name] {
			selection.Missing = append(selection.Missing, name)
			continue
		}
		included = append(included, name)
	}
	return included
}
