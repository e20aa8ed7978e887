package api

import (
	"net/http"
	"strconv"
)

// parsePagination extracts limit and offset query parameters with sane
// defaults and an upper bound on the page size
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0

	query := r.URL.Query()

	if limitStr := query.Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}
