package client

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Record is one NCM resource as returned by the API. Payload shape varies
// per account and firmware version, so records stay schemaless.
type Record = map[string]any

// Filter is one query predicate. A single value filters for equality; a
// value set becomes a "<key>__in" style membership filter and is chunked
// when it exceeds the server's per-request cap.
type Filter struct {
	Key    string
	Values []string
}

// Query collects the filters and pagination controls of one logical call.
// Filters keep insertion order so that derived chunk queries and cache keys
// come out deterministic. A Query is built per call and discarded after.
type Query struct {
	filters []Filter
	sorts   []string

	// Limit is the requested total record count. Zero or negative means
	// unbounded: walk until the server signals exhaustion.
	Limit int

	// PageSize overrides the endpoint's default page size. It is always
	// capped by the endpoint's maximum.
	PageSize int
}

// NewQuery returns an empty query.
func NewQuery() *Query {
	return &Query{}
}

// Set adds an equality filter, replacing any previous filter on the same key.
func (q *Query) Set(key, value string) *Query {
	return q.set(key, []string{value})
}

// In adds a membership filter on key. Value sets larger than the upstream
// cap (100) are split into chunks transparently during the walk.
func (q *Query) In(key string, values ...string) *Query {
	return q.set(key, values)
}

// SortBy sets the result ordering columns.
func (q *Query) SortBy(fields ...string) *Query {
	q.sorts = fields
	return q
}

// WithLimit caps the total records fetched. n <= 0 means unbounded.
func (q *Query) WithLimit(n int) *Query {
	q.Limit = n
	return q
}

// WithPageSize overrides the endpoint's default page size.
func (q *Query) WithPageSize(n int) *Query {
	q.PageSize = n
	return q
}

func (q *Query) set(key string, values []string) *Query {
	for i := range q.filters {
		if q.filters[i].Key == key {
			q.filters[i].Values = values
			return q
		}
	}
	q.filters = append(q.filters, Filter{Key: key, Values: values})
	return q
}

// clone returns a deep copy; chunked walks derive per-chunk queries from it.
func (q *Query) clone() *Query {
	out := &Query{
		filters: make([]Filter, len(q.filters)),
		sorts:   append([]string(nil), q.sorts...),
		Limit:   q.Limit,
		PageSize: q.PageSize,
	}
	for i, f := range q.filters {
		out.filters[i] = Filter{Key: f.Key, Values: append([]string(nil), f.Values...)}
	}
	return out
}

// oversizedFilter returns the index of the first filter whose value set
// exceeds max, or -1 when normal pagination suffices.
func (q *Query) oversizedFilter(max int) int {
	for i, f := range q.filters {
		if len(f.Values) > max {
			return i
		}
	}
	return -1
}

// pageSize resolves the effective page size for one endpoint:
// min(override or endpoint default, endpoint max).
func (q *Query) pageSize(ep Endpoint) int {
	size := ep.DefaultPageSize
	if q.PageSize > 0 {
		size = q.PageSize
	}
	if size > ep.MaxPageSize {
		size = ep.MaxPageSize
	}
	return size
}

// encode renders the query in the endpoint's wire convention.
func (q *Query) encode(ep Endpoint) url.Values {
	if ep.Version == V3 {
		return q.encodeV3(ep)
	}
	return q.encodeV2(ep)
}

// encodeV2 renders flat v2 parameters: filters as key=v1,v2,..., ordering as
// order_by, and the page size as the limit parameter.
func (q *Query) encodeV2(ep Endpoint) url.Values {
	params := url.Values{}
	for _, f := range q.filters {
		params.Set(f.Key, strings.Join(f.Values, ","))
	}
	if len(q.sorts) > 0 {
		params.Set("order_by", strings.Join(q.sorts, ","))
	}
	params.Set("limit", strconv.Itoa(q.pageSize(ep)))
	return params
}

// encodeV3 renders JSON:API parameters: filter[key], filter[key][op] for
// key__op style filters, sort, and page[size].
func (q *Query) encodeV3(ep Endpoint) url.Values {
	params := url.Values{}
	for _, f := range q.filters {
		key, op, hasOp := strings.Cut(f.Key, "__")
		name := fmt.Sprintf("filter[%s]", key)
		if hasOp {
			name = fmt.Sprintf("filter[%s][%s]", key, op)
		}
		params.Set(name, strings.Join(f.Values, ","))
	}
	if len(q.sorts) > 0 {
		params.Set("sort", strings.Join(q.sorts, ","))
	}
	params.Set("page[size]", strconv.Itoa(q.pageSize(ep)))
	return params
}
