// Package pagination parses the page/limit query parameters shared by every
// list endpoint. Repositories translate the window into SQL offsets
// themselves.
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Params is a validated list window. Page is 1-based.
type Params struct {
	Page  int
	Limit int
}

// Parse reads page and limit from the query string. Missing, malformed or
// non-positive values fall back to the defaults; limit is capped so a single
// request cannot page through the whole table.
func Parse(c *gin.Context) Params {
	p := Params{Page: 1, Limit: defaultLimit}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		p.Limit = v
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}
