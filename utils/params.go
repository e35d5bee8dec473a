package utils

import (
	"math"
	"net/http"
	"strconv"
	"strings"
)

type QueryOptions struct {
	Page   int
	Limit  int
	Search string
	Status string
}

// Skip is the number of documents before the current page.
func (q QueryOptions) Skip() int64 {
	return int64(q.Page-1) * int64(q.Limit)
}

// TotalPages for total matching documents, at least 1.
func (q QueryOptions) TotalPages(total int64) int {
	if total == 0 {
		return 1
	}
	return int((total + int64(q.Limit) - 1) / int64(q.Limit))
}

// ParseQueryOptions reads page/limit/q/status. defaultLimit applies when limit is
// missing; limit is capped at 100 and page so that the skip fits an int32.
func ParseQueryOptions(r *http.Request, defaultLimit int) QueryOptions {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > 100 {
		limit = 100
	}
	if limit > 0 && page > math.MaxInt32/limit {
		page = math.MaxInt32 / limit
	}

	search := q.Get("q")
	if search == "" {
		search = q.Get("search")
	}

	return QueryOptions{
		Page:   page,
		Limit:  limit,
		Search: strings.TrimSpace(search),
		Status: q.Get("status"),
	}
}

func ContainsIgnoreCase(str, substr string) bool {
	return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
}
