package workflow

import (
	"crm-workflow/internal/common/api"
	"crm-workflow/internal/config"
	"crm-workflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type WorkflowApi struct {
	controller *WorkflowController
	config     *config.Config
}

func NewWorkflowApi(controller *WorkflowController, config *config.Config) api.Route {
	return &WorkflowApi{
		controller: controller,
		config:     config,
	}
}

func (h *WorkflowApi) Setup(app *fiber.App) {
	group := app.Group("/api/workflow/workflows", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/", h.controller.ListWorkflows)
	group.Get("/:id", h.controller.GetWorkflow)

	admin := middleware.AdminMiddleware()
	group.Post("/", admin, h.controller.CreateWorkflow)
	group.Put("/:id", admin, h.controller.UpdateWorkflow)
	group.Patch("/:id/active", admin, h.controller.SetActive)
	group.Delete("/:id", admin, h.controller.DeleteWorkflow)
}
