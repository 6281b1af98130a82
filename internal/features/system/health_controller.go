package system

import (
	"context"
	"time"

	"crm-workflow/internal/config"
	"crm-workflow/internal/database"
	"crm-workflow/internal/features/transition"

	"github.com/gofiber/fiber/v2"
)

type HealthController struct {
	mongodb     *database.MongodbDB
	transitions transition.TransitionRepository
	config      *config.Config
}

func NewHealthController(mongodb *database.MongodbDB, transitions transition.TransitionRepository, cfg *config.Config) *HealthController {
	return &HealthController{
		mongodb:     mongodb,
		transitions: transitions,
		config:      cfg,
	}
}

// Health godoc
// @Summary      Health check
// @Description  Database reachability and queue depth
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (h *HealthController) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	resp := fiber.Map{
		"status":        "ok",
		"queue_backend": h.config.QueueBackend,
		"workers":       h.config.WorkerCount,
	}

	if err := h.mongodb.Client.Ping(ctx, nil); err != nil {
		resp["status"] = "degraded"
		resp["mongo"] = err.Error()
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}

	queue := fiber.Map{}
	for _, st := range []transition.Status{transition.StatusPending, transition.StatusProcessing, transition.StatusDead} {
		page, err := h.transitions.List(ctx, transition.Filter{Status: st, Limit: 1})
		if err != nil {
			resp["status"] = "degraded"
			resp["queue_error"] = err.Error()
			return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
		}
		queue[string(st)] = page.Total
	}
	resp["queue"] = queue
	return c.JSON(resp)
}
