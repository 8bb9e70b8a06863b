package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/gin-gonic/gin"
)

// endDate reads the optional end_date query parameter (YYYY-MM-DD). A zero
// time means today.
func endDate(c *gin.Context) (time.Time, error) {
	raw := strings.TrimSpace(c.Query("end_date"))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := domain.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: end_date must be YYYY-MM-DD", domain.ErrInvalidRequest)
	}
	return t, nil
}

// productIDs accepts both ?product_ids=A,B and repeated ?product_id=A&product_id=B.
func productIDs(c *gin.Context) []string {
	raw := append(c.QueryArray("product_id"), c.QueryArray("product_ids")...)

	var ids []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ids = append(ids, part)
			}
		}
	}
	return ids
}
