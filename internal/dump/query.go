package dump

import (
	"fmt"
	"strings"

	"mysql-dump/internal/config"
	"mysql-dump/internal/logging"
	"mysql-dump/internal/schema"
)

// QuoteIdent wraps an identifier in backticks, doubling any embedded
// backtick.
func QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// quoteIdentList quotes and joins a list of identifiers
func quoteIdentList(names []string) string {
	quoted := make([]string, 0, len(names))
	for _, name := range names {
		quoted = append(quoted, QuoteIdent(name))
	}
	return strings.Join(quoted, ", ")
}

// BuildTableQuery constructs the SELECT statement for one table. The
// where clause is taken verbatim from the configuration: config authors
// are trusted operators and may use any expression the server accepts.
// An order column that does not exist in the table drops the ordering
// with a warning instead of failing the table.
func BuildTableQuery(table *schema.Table, settings config.TableSettings, logger *logging.Logger) string {
	var sb strings.Builder

	sb.WriteString("SELECT ")
	sb.WriteString(quoteIdentList(table.ColumnNames()))
	sb.WriteString(" FROM ")
	sb.WriteString(QuoteIdent(table.Name))

	if settings.WhereClause != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(settings.WhereClause)
	}

	if settings.OrderBy != "" {
		if table.HasColumn(settings.OrderBy) {
			sb.WriteString(" ORDER BY ")
			sb.WriteString(QuoteIdent(settings.OrderBy))
			sb.WriteString(" ")
			sb.WriteString(settings.OrderDirection)
		} else if logger != nil {
			logger.WithFields(map[string]interface{}{
				"table":  table.Name,
				"column": settings.OrderBy,
			}).Warn("Order column does not exist, dumping unordered")
		}
	}

	if settings.RowLimit != nil && *settings.RowLimit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", *settings.RowLimit)
	}

	return sb.String()
}
