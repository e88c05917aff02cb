package spclient

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/koltyakov/gosip/api"
)

// ODataQuery holds the query options of a list item read.
type ODataQuery struct {
	Select     string
	Filter     string
	Expand     string
	OrderBy    string
	Descending bool
	Top        int
}

// ParseODataQuery reads a raw "$filter=…&$select=…" fragment. A leading "?" is ignored.
func ParseODataQuery(raw string) (ODataQuery, error) {
	var q ODataQuery
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "?")
	if raw == "" {
		return q, nil
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return q, fmt.Errorf("parse odata query: %w", err)
	}
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		v := vals[len(vals)-1]
		switch strings.ToLower(strings.TrimPrefix(key, "$")) {
		case "select":
			q.Select = v
		case "filter":
			q.Filter = v
		case "expand":
			q.Expand = v
		case "orderby":
			field, dir, _ := strings.Cut(strings.TrimSpace(v), " ")
			q.OrderBy = field
			q.Descending = strings.EqualFold(strings.TrimSpace(dir), "desc")
		case "top":
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return q, fmt.Errorf("parse odata query: invalid $top %q", v)
			}
			q.Top = n
		default:
			return q, fmt.Errorf("parse odata query: unsupported option %q", key)
		}
	}
	return q, nil
}

// String renders the query back to a fragment with stable option order.
func (q ODataQuery) String() string {
	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	add("$select", q.Select)
	add("$filter", q.Filter)
	add("$expand", q.Expand)
	if q.OrderBy != "" {
		dir := "asc"
		if q.Descending {
			dir = "desc"
		}
		add("$orderby", q.OrderBy+" "+dir)
	}
	if q.Top > 0 {
		add("$top", strconv.Itoa(q.Top))
	}
	return strings.Join(parts, "&")
}

// apply configures a Gosip items query.
func (q ODataQuery) apply(items *api.Items) *api.Items {
	if q.Select != "" {
		items = items.Select(q.Select)
	}
	if q.Filter != "" {
		items = items.Filter(q.Filter)
	}
	if q.Expand != "" {
		items = items.Expand(q.Expand)
	}
	if q.OrderBy != "" {
		items = items.OrderBy(q.OrderBy, !q.Descending)
	}
	return items
}

// eqInt renders "Field eq n".
func eqInt(field string, n int) string {
	return fmt.Sprintf("%s eq %d", field, n)
}

// neInt renders "Field ne n". Null columns satisfy it.
func neInt(field string, n int) string {
	return fmt.Sprintf("%s ne %d", field, n)
}

// eqString renders "Field eq 'v'".
func eqString(field, v string) string {
	return fmt.Sprintf("%s eq '%s'", field, escapeODataString(v))
}

// and joins non-empty filter clauses.
func and(clauses ...string) string {
	var kept []string
	for _, c := range clauses {
		if c != "" {
			kept = append(kept, c)
		}
	}
	if len(kept) < 2 {
		return strings.Join(kept, "")
	}
	return "(" + strings.Join(kept, ") and (") + ")"
}
