package workflow

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WorkflowController struct {
	Service WorkflowService
}

func NewWorkflowController(service WorkflowService) *WorkflowController {
	return &WorkflowController{
		Service: service,
	}
}

type setActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// CreateWorkflow godoc
// @Summary Create workflow
// @Description Create a new routing workflow
// @Tags workflow
// @Accept json
// @Produce json
// @Param workflow body Workflow true "Workflow"
// @Success 201 {object} Workflow
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/workflow/workflows [post]
func (ctrl *WorkflowController) CreateWorkflow(c *fiber.Ctx) error {
	var wf Workflow
	if err := c.BodyParser(&wf); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := ctrl.Service.CreateWorkflow(c.UserContext(), &wf); err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(wf)
}

// GetWorkflow godoc
// @Summary Get workflow
// @Description Get a workflow by ID
// @Tags workflow
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} Workflow
// @Failure 404 {object} map[string]interface{}
// @Router /api/workflow/workflows/{id} [get]
func (ctrl *WorkflowController) GetWorkflow(c *fiber.Ctx) error {
	wf, err := ctrl.Service.GetWorkflow(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(wf)
}

// ListWorkflows godoc
// @Summary List workflows
// @Description List workflows in evaluation order, optionally filtered by entity type
// @Tags workflow
// @Produce json
// @Param entity_type query string false "Filter by entity type"
// @Success 200 {array} Workflow
// @Failure 500 {object} map[string]interface{}
// @Router /api/workflow/workflows [get]
func (ctrl *WorkflowController) ListWorkflows(c *fiber.Ctx) error {
	workflows, err := ctrl.Service.ListWorkflows(c.UserContext(), c.Query("entity_type"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(workflows)
}

// UpdateWorkflow godoc
// @Summary Update workflow
// @Description Replace a workflow definition
// @Tags workflow
// @Accept json
// @Produce json
// @Param id path string true "Workflow ID"
// @Param workflow body Workflow true "Workflow"
// @Success 200 {object} Workflow
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/workflow/workflows/{id} [put]
func (ctrl *WorkflowController) UpdateWorkflow(c *fiber.Ctx) error {
	var wf Workflow
	if err := c.BodyParser(&wf); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	// ID always comes from the path
	oid, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrNotFound.Error()})
	}
	wf.ID = oid

	if err := ctrl.Service.UpdateWorkflow(c.UserContext(), &wf); err != nil {
		return writeError(c, err)
	}

	return c.JSON(wf)
}

// SetActive godoc
// @Summary Enable or disable workflow
// @Description Disabling stops new matches; admitted transitions still drain
// @Tags workflow
// @Accept json
// @Param id path string true "Workflow ID"
// @Param body body setActiveRequest true "Active flag"
// @Success 204 {object} nil
// @Failure 404 {object} map[string]interface{}
// @Router /api/workflow/workflows/{id}/active [patch]
func (ctrl *WorkflowController) SetActive(c *fiber.Ctx) error {
	var req setActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := ctrl.Service.SetActive(c.UserContext(), c.Params("id"), req.IsActive); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteWorkflow godoc
// @Summary Delete workflow
// @Description Delete a workflow that no transition references
// @Tags workflow
// @Param id path string true "Workflow ID"
// @Success 204 {object} nil
// @Failure 409 {object} map[string]interface{}
// @Router /api/workflow/workflows/{id} [delete]
func (ctrl *WorkflowController) DeleteWorkflow(c *fiber.Ctx) error {
	if err := ctrl.Service.DeleteWorkflow(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func writeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, ErrInvalidWorkflow):
		status = fiber.StatusBadRequest
	case errors.Is(err, ErrWorkflowReferenced):
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
