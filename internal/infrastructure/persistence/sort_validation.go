package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// sortWhitelist resolves user-supplied sort parameters to a safe ORDER BY.
// Unknown columns fall back to the default; anything but "asc" sorts descending.
type sortWhitelist struct {
	columns    map[string]struct{}
	fallback   string
	tiebreaker string
}

func newSortWhitelist(fallback, tiebreaker string, columns ...string) sortWhitelist {
	set := make(map[string]struct{}, len(columns)+1)
	set[fallback] = struct{}{}
	for _, c := range columns {
		set[c] = struct{}{}
	}
	return sortWhitelist{columns: set, fallback: fallback, tiebreaker: tiebreaker}
}

// column returns field when whitelisted, else the fallback
func (w sortWhitelist) column(field string) string {
	field = strings.TrimSpace(field)
	if _, ok := w.columns[field]; ok {
		return field
	}
	return w.fallback
}

func descending(dir string) bool {
	return !strings.EqualFold(strings.TrimSpace(dir), "asc")
}

// orderBy builds the clause; the tiebreaker follows the same direction
func (w sortWhitelist) orderBy(field, dir string) clause.OrderBy {
	desc := descending(dir)
	col := w.column(field)
	cols := []clause.OrderByColumn{{Column: clause.Column{Name: col}, Desc: desc}}
	if w.tiebreaker != "" && w.tiebreaker != col {
		cols = append(cols, clause.OrderByColumn{Column: clause.Column{Name: w.tiebreaker}, Desc: desc})
	}
	return clause.OrderBy{Columns: cols}
}

var disposalSort = newSortWhitelist("disposal_date", "created_at",
	"created_at", "quantity_disposed", "quantity_removed", "cost_loss", "batch_number")
