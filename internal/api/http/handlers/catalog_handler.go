package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// CatalogHandler serves departments and ticket categories.
type CatalogHandler struct {
	service *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// ListDepartments GET /departments?all=true.
func (h *CatalogHandler) ListDepartments(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	depts, err := h.service.ListDepartments(c.UserContext(), actor, c.QueryBool("all"))
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(depts))
	for i := range depts {
		items = append(items, dto.NewDepartmentResponse(&depts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateDepartment POST /admin/departments.
func (h *CatalogHandler) CreateDepartment(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.DepartmentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	dept, err := h.service.CreateDepartment(c.UserContext(), actor, service.DepartmentInput{
		Name: req.Name, Description: req.Description, Active: activeOrDefault(req.Active),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewDepartmentResponse(dept)})
}

// UpdateDepartment PUT /admin/departments/:id.
func (h *CatalogHandler) UpdateDepartment(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.DepartmentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	dept, err := h.service.UpdateDepartment(c.UserContext(), actor, c.Params("id"), service.DepartmentInput{
		Name: req.Name, Description: req.Description, Active: activeOrDefault(req.Active),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDepartmentResponse(dept)})
}

// ListCategories GET /ticket-categories?type=hardware&all=true.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var ticketType *domain.TicketType
	if raw := c.Query("type"); raw != "" {
		tp := domain.TicketType(raw)
		ticketType = &tp
	}
	categories, err := h.service.ListCategories(c.UserContext(), actor, ticketType, c.QueryBool("all"))
	if err != nil {
		return err
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		items = append(items, dto.NewCategoryResponse(&categories[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateCategory POST /admin/ticket-categories.
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := h.service.CreateCategory(c.UserContext(), actor, categoryInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCategoryResponse(category)})
}

// UpdateCategory PUT /admin/ticket-categories/:id.
func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := h.service.UpdateCategory(c.UserContext(), actor, c.Params("id"), categoryInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCategoryResponse(category)})
}

func categoryInput(req dto.CategoryRequest) service.CategoryInput {
	return service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Active:      activeOrDefault(req.Active),
	}
}

// activeOrDefault treats an omitted active flag as true.
func activeOrDefault(v *bool) bool {
	return v == nil || *v
}
