package transition

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TransitionController struct {
	Service TransitionService
}

func NewTransitionController(service TransitionService) *TransitionController {
	return &TransitionController{
		Service: service,
	}
}

func parseFilter(c *fiber.Ctx) (Filter, error) {
	var f Filter

	if s := c.Query("status"); s != "" {
		status, err := ParseStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = status
	}
	f.EntityType = c.Query("entity_type")
	f.EntityID = c.Query("entity_id")

	if id := c.Query("workflow_id"); id != "" {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return f, fmt.Errorf("invalid workflow_id %q", id)
		}
		f.WorkflowID = oid
	}

	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		if v := c.Query(p.name); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return f, fmt.Errorf("invalid %s: expected RFC3339", p.name)
			}
			*p.dst = t
		}
	}

	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", strconv.Itoa(defaultPageSize)), 10, 64)
	offset, size, err := PageOffset(page, limit)
	if err != nil {
		return f, err
	}
	f.Limit = size
	f.Offset = offset
	return f, nil
}

// ListTransitions godoc
// @Summary List transitions
// @Description Queue view, newest first
// @Tags transition
// @Produce json
// @Param status query string false "pending, processing, success, failed (pending after a failed attempt; each attempt is in the audit log) or dead"
// @Param entity_type query string false "Entity type"
// @Param entity_id query string false "Entity ID"
// @Param workflow_id query string false "Workflow ID"
// @Param from query string false "Created at or after (RFC3339)"
// @Param to query string false "Created at or before (RFC3339)"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size, at most 500" default(50)
// @Success 200 {object} Page
// @Failure 400 {object} map[string]interface{}
// @Router /api/workflow/transitions [get]
func (ctrl *TransitionController) ListTransitions(c *fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	page, err := ctrl.Service.List(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(page)
}

// GetTransition godoc
// @Summary Get transition
// @Description Transition with the snapshot that justified it
// @Tags transition
// @Produce json
// @Param id path string true "Transition ID"
// @Success 200 {object} Detail
// @Failure 404 {object} map[string]interface{}
// @Router /api/workflow/transitions/{id} [get]
func (ctrl *TransitionController) GetTransition(c *fiber.Ctx) error {
	detail, err := ctrl.Service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(detail)
}

// RequeueTransition godoc
// @Summary Requeue dead transition
// @Description Return a dead transition to pending with a fresh attempt budget
// @Tags transition
// @Produce json
// @Param id path string true "Transition ID"
// @Success 200 {object} Transition
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/workflow/transitions/{id}/requeue [post]
func (ctrl *TransitionController) RequeueTransition(c *fiber.Ctx) error {
	t, err := ctrl.Service.Requeue(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(t)
}

// ExportTransitions godoc
// @Summary Export transitions
// @Description Download the filtered queue view as xlsx
// @Tags transition
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param status query string false "Status"
// @Param entity_type query string false "Entity type"
// @Param workflow_id query string false "Workflow ID"
// @Success 200 {file} file
// @Router /api/workflow/transitions/export [get]
func (ctrl *TransitionController) ExportTransitions(c *fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	// Export ignores paging
	filter.Limit = 0

	data, err := ctrl.Service.Export(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}

	filename := fmt.Sprintf("transitions_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	return c.Send(data)
}

func writeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrOpenTransitionExists):
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
