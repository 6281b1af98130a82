package entity

import (
	"crm-workflow/internal/common/api"
	"crm-workflow/internal/config"
	"crm-workflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type EntityApi struct {
	controller *EntityController
	config     *config.Config
}

func NewEntityApi(controller *EntityController, config *config.Config) api.Route {
	return &EntityApi{
		controller: controller,
		config:     config,
	}
}

func (h *EntityApi) Setup(app *fiber.App) {
	group := app.Group("/api/workflow/entities", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/:type/:id", h.controller.GetEntity)
	group.Put("/:type/:id", h.controller.SaveEntity)
	group.Post("/:type/:id/changed", h.controller.EntityChanged)
}
