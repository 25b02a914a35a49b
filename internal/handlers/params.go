package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/weathermetrics/internal/models"
	"github.com/soltixdb/weathermetrics/internal/services"
)

// queryList collects a repeatable query parameter. Each occurrence may also
// hold comma separated values; blanks are dropped.
func queryList(c *fiber.Ctx, key string) []string {
	var values []string
	for _, raw := range c.Context().QueryArgs().PeekMulti(key) {
		for _, v := range strings.Split(string(raw), ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}

// queryTime parses an optional date-time parameter. Absent or blank yields nil.
func (h *Handler) queryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	t, err := models.ParseTimestamp(raw, h.info.Location)
	if err != nil {
		return nil, services.NewInvalidArgument("Invalid " + key + ": " + raw)
	}
	return &t, nil
}
