package model

import (
	"fmt"

	"github.com/fleetdesk/rentalconsole/pkg/domain/model/config"
)

// ListQuery selects one page of a collection
type ListQuery struct {
	Page    int
	Search  string
	Filters map[string]string
}

// Normalize returns the query with page defaulted to 1
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	return q
}

// Equal reports whether two queries select the same page
func (q ListQuery) Equal(other ListQuery) bool {
	a, b := q.Normalize(), other.Normalize()
	if a.Page != b.Page || a.Search != b.Search || len(a.Filters) != len(b.Filters) {
		return false
	}
	for k, v := range a.Filters {
		if bv, ok := b.Filters[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// PageResult is one page of records. It is produced per request and never
// persisted.
type PageResult struct {
	Items      []map[string]any `json:"items"`
	TotalCount int              `json:"total_count"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
}

// TotalPages returns the number of pages for the result's page size
func (p *PageResult) TotalPages() int {
	if p == nil || p.TotalCount == 0 {
		return 0
	}
	perPage := p.PerPage
	if perPage <= 0 {
		perPage = len(p.Items)
	}
	if perPage <= 0 {
		return 1
	}
	return (p.TotalCount + perPage - 1) / perPage
}

// Project renders every item as a row of display strings, one per column
func (p *PageResult) Project(columns []config.Column) [][]string {
	if p == nil {
		return nil
	}
	rows := make([][]string, 0, len(p.Items))
	for _, item := range p.Items {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = DisplayValue(DotPathLookup(item, col.Key))
		}
		rows = append(rows, row)
	}
	return rows
}

// DisplayValue formats a JSON value for a table cell
func DisplayValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case []any:
		if len(val) == 0 {
			return ""
		}
		return DisplayValue(val[0])
	default:
		return fmt.Sprint(val)
	}
}

// OptionPage is one page of relation options
type OptionPage struct {
	Options  []config.Option `json:"options"`
	HasMore  bool            `json:"has_more"`
	NextPage int             `json:"next_page"`
}
