package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/types"
)

const maxPageSize = 100

// paginator implements page-number pagination with the page and limit query parameters
type paginator struct {
	defaultLimit int
}

func newPaginator(defaultLimit int) paginator {
	if defaultLimit <= 0 {
		defaultLimit = 6
	}
	return paginator{defaultLimit: defaultLimit}
}

// page parses the requested window. Invalid page numbers answer 404.
func (p paginator) page(c *gin.Context) (types.Page, bool) {
	page := types.Page{Number: 1, Limit: p.defaultLimit}

	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Invalid page."})
			return page, false
		}
		page.Number = n
	}

	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page.Limit = n
		}
	}
	if page.Limit > maxPageSize {
		page.Limit = maxPageSize
	}

	// the offset must fit in an int
	if page.Number > math.MaxInt/page.Limit {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Invalid page."})
		return page, false
	}
	return page, true
}

// write sends the envelope for one page of results. A page past the end answers 404.
func (p paginator) write(c *gin.Context, page types.Page, count int64, results interface{}) {
	if page.Number > 1 && int64(page.Offset()) >= count {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Invalid page."})
		return
	}

	resp := types.PaginatedResponse{Count: count, Results: results}
	if int64(page.Offset()+page.Limit) < count {
		resp.Next = pageURL(c, page.Number+1)
	}
	if page.Number > 1 {
		resp.Previous = pageURL(c, page.Number-1)
	}
	c.JSON(http.StatusOK, resp)
}

func pageURL(c *gin.Context, number int) *string {
	u := *c.Request.URL
	u.Scheme = "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		u.Scheme = "https"
	}
	u.Host = c.Request.Host

	q := u.Query()
	if number <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(number))
	}
	u.RawQuery = q.Encode()

	s := u.String()
	return &s
}
