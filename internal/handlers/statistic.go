package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/weathermetrics/internal/models"
)

// Statistics handles GET .../metric/statistic
//
// Query parameters:
//   - metricName: Temp, Humidity or WindSpeed (repeatable or comma separated)
//   - sensorId: sensor ids (repeatable or comma separated), all sensors when absent
//   - statistic: min, max, avg or sum (default avg)
//   - startDate, endDate: ISO-8601 date-times, offset-less values use the configured timezone
func (h *Handler) Statistics(c *fiber.Ctx) error {
	start, err := h.queryTime(c, "startDate")
	if err != nil {
		return h.writeError(c, err)
	}
	end, err := h.queryTime(c, "endDate")
	if err != nil {
		return h.writeError(c, err)
	}

	result, err := h.statistics.Compute(c.UserContext(), models.StatisticQuery{
		MetricNames: queryList(c, "metricName"),
		SensorIDs:   queryList(c, "sensorId"),
		Statistic:   c.Query("statistic"),
		Start:       start,
		End:         end,
	})
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(result)
}
