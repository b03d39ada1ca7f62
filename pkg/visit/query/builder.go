package query

import (
	"context"
	"strings"

	"beacon-hq/beacon/pkg/visit"
)

const (
	// MinPerPage and MaxPerPage bound the page size; out-of-range values
	// are clamped, not rejected.
	MinPerPage = 1
	MaxPerPage = 100
)

// filterFields is the closed set of caller-facing filter names. Keys not
// in this map are ignored, never passed through to storage.
var filterFields = map[string]visit.Field{
	"ip":        visit.FieldIP,
	"language":  visit.FieldLanguage,
	"userAgent": visit.FieldUserAgent,
	"platform":  visit.FieldPlatform,
	"timezone":  visit.FieldTimezone,
}

// sortFields is the whitelist of ordering keys. Any other value silently
// falls back to recordedAt; this whitelist is what prevents unsafe dynamic
// query construction from unvalidated input.
var sortFields = map[string]visit.Field{
	"id":         visit.FieldID,
	"ip":         visit.FieldIP,
	"language":   visit.FieldLanguage,
	"userAgent":  visit.FieldUserAgent,
	"platform":   visit.FieldPlatform,
	"timezone":   visit.FieldTimezone,
	"recordedAt": visit.FieldRecordedAt,
}

// Build translates untyped filter/sort/page parameters into a fully
// specified, safe visit.Query. It never touches storage.
//
// Unrecognized filter keys and empty filter values are dropped. The sort
// field falls back to recordedAt unless whitelisted. Only an explicit
// ascending marker sorts ascending; everything else is descending. page is
// clamped to >= 1 and perPage to [MinPerPage, MaxPerPage];
// offset = (page-1) * perPage.
func Build(filters map[string]string, sortField, sortOrder string, page, perPage int) *visit.Query {
	q := &visit.Query{Filters: make(map[visit.Field]string)}

	for key, value := range filters {
		if value == "" {
			continue
		}
		if field, ok := filterFields[key]; ok {
			q.Filters[field] = value
		}
	}

	field, ok := sortFields[sortField]
	if !ok {
		field = visit.FieldRecordedAt
	}
	q.SortField = field

	if strings.EqualFold(sortOrder, string(visit.SortAsc)) {
		q.SortOrder = visit.SortAsc
	} else {
		q.SortOrder = visit.SortDesc
	}

	if page < 1 {
		page = 1
	}
	if perPage < MinPerPage {
		perPage = MinPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	q.Limit = perPage
	q.Offset = (page - 1) * perPage

	return q
}

// Result is one page of a query plus the unpaged totals.
type Result struct {
	Records       []*visit.Visit `json:"data"`
	TotalMatching int64          `json:"totalMatching"`
	TotalPages    int64          `json:"totalPages"`
	Page          int            `json:"page"`
	PerPage       int            `json:"perPage"`
}

// Execute builds a query from the raw parameters and runs it against the
// storage backend: one paged read plus one unpaged count under the same
// filter predicate. TotalPages is ceil(TotalMatching / perPage) with a
// floor of 1.
func Execute(ctx context.Context, storage visit.Storage, filters map[string]string, sortField, sortOrder string, page, perPage int) (*Result, error) {
	q := Build(filters, sortField, sortOrder, page, perPage)

	records, err := storage.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	total, err := storage.Count(ctx, q)
	if err != nil {
		return nil, err
	}

	normalizedPerPage := q.Limit
	totalPages := (total + int64(normalizedPerPage) - 1) / int64(normalizedPerPage)
	if totalPages < 1 {
		totalPages = 1
	}

	return &Result{
		Records:       records,
		TotalMatching: total,
		TotalPages:    totalPages,
		Page:          q.Offset/normalizedPerPage + 1,
		PerPage:       normalizedPerPage,
	}, nil
}
