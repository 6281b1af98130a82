package transition

import (
	"crm-workflow/internal/common/api"
	"crm-workflow/internal/config"
	"crm-workflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type TransitionApi struct {
	controller *TransitionController
	config     *config.Config
}

func NewTransitionApi(controller *TransitionController, config *config.Config) api.Route {
	return &TransitionApi{
		controller: controller,
		config:     config,
	}
}

func (h *TransitionApi) Setup(app *fiber.App) {
	group := app.Group("/api/workflow/transitions", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/", h.controller.ListTransitions)
	group.Get("/export", h.controller.ExportTransitions)
	group.Get("/:id", h.controller.GetTransition)
	group.Post("/:id/requeue", middleware.AdminMiddleware(), h.controller.RequeueTransition)
}
