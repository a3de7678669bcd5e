package config

import "strings"

// TableSettings are the effective dump settings for one table after
// the table, database and defaults levels have been consulted.
type TableSettings struct {
	RowLimit       *int64
	OrderBy        string
	OrderDirection string
	WhereClause    string
}

// SchemaOnly reports whether the table is dumped without any rows
func (ts TableSettings) SchemaOnly() bool {
	return ts.RowLimit != nil && *ts.RowLimit == 0
}

// Unlimited reports whether every row of the table is dumped
func (ts TableSettings) Unlimited() bool {
	return ts.RowLimit == nil
}

// ResolveTableSettings computes the effective settings for one table.
// Each option cascades independently: the explicit table entry wins,
// then the database level, then the global defaults. An option unset
// everywhere falls back to the built-ins (no limit, no ordering, no
// filter, ascending direction).
func (c *Config) ResolveTableSettings(db *DatabaseConfig, table string) TableSettings {
	chain := make([]*DumpOptions, 0, 3)
	if tc := db.Tables.Find(table); tc != nil {
		chain = append(chain, &tc.DumpOptions)
	}
	chain = append(chain, &db.DumpOptions, &c.Defaults)

	settings := TableSettings{
		RowLimit:       firstInt64(chain, func(o *DumpOptions) *int64 { return o.RowLimit }),
		OrderBy:        firstString(chain, func(o *DumpOptions) *string { return o.OrderBy }),
		OrderDirection: firstString(chain, func(o *DumpOptions) *string { return o.OrderDirection }),
		WhereClause:    firstString(chain, func(o *DumpOptions) *string { return o.WhereClause }),
	}

	settings.OrderDirection = strings.ToUpper(strings.TrimSpace(settings.OrderDirection))
	if settings.OrderDirection == "" {
		settings.OrderDirection = "ASC"
	}
	return settings
}

// firstInt64 returns a copy of the first value set in the cascade
func firstInt64(chain []*DumpOptions, pick func(*DumpOptions) *int64) *int64 {
	for _, opts := range chain {
		if v := pick(opts); v != nil {
			value := *v
			return &value
		}
	}
	return nil
}

// firstString returns the first value set in the cascade, or ""
func firstString(chain []*DumpOptions, pick func(*DumpOptions) *string) string {
	for _, opts := range chain {
		if v := pick(opts); v != nil {
			return *v
		}
	}
	return ""
}
