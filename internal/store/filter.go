package store

import (
	"fmt"
	"strings"
)

// ResultFilter narrows a search to one game outcome.
type ResultFilter int

const (
	ResultAny ResultFilter = iota
	ResultWhiteWin
	ResultBlackWin
	ResultDraw
)

// ParseResultFilter accepts the PGN result notations plus "any"/"" for no
// filtering.
func ParseResultFilter(s string) (ResultFilter, error) {
	switch strings.TrimSpace(s) {
	case "", "any":
		return ResultAny, nil
	case "1-0":
		return ResultWhiteWin, nil
	case "0-1":
		return ResultBlackWin, nil
	case "1/2-1/2":
		return ResultDraw, nil
	}
	return ResultAny, fmt.Errorf("unknown result filter %q (want 1-0, 0-1, 1/2-1/2 or any)", s)
}

func (r ResultFilter) tag() string {
	switch r {
	case ResultWhiteWin:
		return "1-0"
	case ResultBlackWin:
		return "0-1"
	case ResultDraw:
		return "1/2-1/2"
	}
	return ""
}

// Filter selects games by header fields. String fields are trimmed and an
// empty value means no constraint; text matches are case-insensitive
// substring matches. Date bounds require the PGN "YYYY.MM.DD" form and only
// consider rows whose date column is fully dated (no "????" placeholders).
type Filter struct {
	SearchText  string
	Result      ResultFilter
	ECO         string
	EventOrSite string
	DateFrom    string
	DateTo      string
}

// InvalidDateError reports a malformed date bound.
type InvalidDateError struct {
	Field string
	Value string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid %s value %q: expected YYYY.MM.DD", e.Field, e.Value)
}

func validateDate(field, value string) error {
	ok := len(value) == 10 && value[4] == '.' && value[7] == '.'
	if ok {
		for i := 0; i < len(value); i++ {
			if i == 4 || i == 7 {
				continue
			}
			if value[i] < '0' || value[i] > '9' {
				ok = false
				break
			}
		}
	}
	if !ok {
		return &InvalidDateError{Field: field, Value: value}
	}
	return nil
}

func normalized(s string) string { return strings.TrimSpace(s) }

// buildWhere renders the filter as a WHERE clause with bind values. The
// clause string is empty when nothing is constrained.
func (f Filter) buildWhere() (string, []any, error) {
	var clauses []string
	var args []any

	if text := normalized(f.SearchText); text != "" {
		clauses = append(clauses,
			"LOWER(COALESCE(white, '') || ' ' || COALESCE(black, '') || ' ' || COALESCE(event, '') || ' ' || COALESCE(site, '')) LIKE LOWER(?)")
		args = append(args, "%"+text+"%")
	}

	if tag := f.Result.tag(); tag != "" {
		clauses = append(clauses, "result = ?")
		args = append(args, tag)
	}

	if eco := normalized(f.ECO); eco != "" {
		clauses = append(clauses, "LOWER(COALESCE(eco, '')) LIKE LOWER(?)")
		args = append(args, "%"+eco+"%")
	}

	if eventOrSite := normalized(f.EventOrSite); eventOrSite != "" {
		clauses = append(clauses,
			"LOWER(COALESCE(event, '') || ' ' || COALESCE(site, '')) LIKE LOWER(?)")
		args = append(args, "%"+eventOrSite+"%")
	}

	dateFrom := normalized(f.DateFrom)
	dateTo := normalized(f.DateTo)
	if dateFrom != "" || dateTo != "" {
		clauses = append(clauses, "date GLOB '[0-9][0-9][0-9][0-9].[0-9][0-9].[0-9][0-9]'")
	}
	if dateFrom != "" {
		if err := validateDate("date_from", dateFrom); err != nil {
			return "", nil, err
		}
		clauses = append(clauses, "date >= ?")
		args = append(args, dateFrom)
	}
	if dateTo != "" {
		if err := validateDate("date_to", dateTo); err != nil {
			return "", nil, err
		}
		clauses = append(clauses, "date <= ?")
		args = append(args, dateTo)
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// Pagination defaults: 50 rows per page, capped at 500.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// Pagination selects a result window. A zero (or negative) limit means the
// default page size.
type Pagination struct {
	Limit  int
	Offset int
}

func (p Pagination) normalized() Pagination {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	} else if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
