package entity

import (
	"errors"

	"crm-workflow/internal/features/transition"

	"github.com/gofiber/fiber/v2"
)

type EntityController struct {
	Service EntityService
}

func NewEntityController(service EntityService) *EntityController {
	return &EntityController{Service: service}
}

type saveRequest struct {
	OwnerGroupID string                 `json:"owner_group_id"`
	Data         map[string]interface{} `json:"data"`
}

type changeResponse struct {
	Matched    bool                   `json:"matched"`
	Transition *transition.Transition `json:"transition,omitempty"`
}

func respond(c *fiber.Ctx, t *transition.Transition) error {
	return c.JSON(changeResponse{Matched: t != nil, Transition: t})
}

// GetEntity godoc
// @Summary Get entity record
// @Tags entity
// @Produce json
// @Param type path string true "Entity type"
// @Param id path string true "Entity ID"
// @Success 200 {object} Record
// @Failure 404 {object} map[string]interface{}
// @Router /api/workflow/entities/{type}/{id} [get]
func (ctrl *EntityController) GetEntity(c *fiber.Ctx) error {
	rec, err := ctrl.Service.Get(c.UserContext(), c.Params("type"), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(rec)
}

// SaveEntity godoc
// @Summary Write entity record
// @Description Store the entity's fields and owner, then run rule matching
// @Tags entity
// @Accept json
// @Produce json
// @Param type path string true "Entity type"
// @Param id path string true "Entity ID"
// @Param record body saveRequest true "Entity fields"
// @Success 200 {object} changeResponse
// @Failure 400 {object} map[string]interface{}
// @Router /api/workflow/entities/{type}/{id} [put]
func (ctrl *EntityController) SaveEntity(c *fiber.Ctx) error {
	var req saveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	rec := &Record{
		EntityType:   c.Params("type"),
		EntityID:     c.Params("id"),
		OwnerGroupID: req.OwnerGroupID,
		Data:         req.Data,
	}
	t, err := ctrl.Service.Save(c.UserContext(), rec)
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, t)
}

// EntityChanged godoc
// @Summary Notify entity change
// @Description Run rule matching for an entity that changed elsewhere
// @Tags entity
// @Produce json
// @Param type path string true "Entity type"
// @Param id path string true "Entity ID"
// @Success 200 {object} changeResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/workflow/entities/{type}/{id}/changed [post]
func (ctrl *EntityController) EntityChanged(c *fiber.Ctx) error {
	t, err := ctrl.Service.NotifyChanged(c.UserContext(), c.Params("type"), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, t)
}

func writeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, ErrInvalidRecord):
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
