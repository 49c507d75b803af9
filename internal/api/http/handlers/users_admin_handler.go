package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// UsersAdminHandler serves account administration for DSI administrators.
type UsersAdminHandler struct {
	service *service.UserAdminService
}

// NewUsersAdminHandler constructs handler.
func NewUsersAdminHandler(svc *service.UserAdminService) *UsersAdminHandler {
	return &UsersAdminHandler{service: svc}
}

// CreateUser POST /admin/users.
func (h *UsersAdminHandler) CreateUser(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.UserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.service.CreateUser(c.UserContext(), actor, userInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ListUsers GET /admin/users?role=technician&department_id=..
func (h *UsersAdminHandler) ListUsers(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var filter service.UserListFilter
	if raw := c.Query("role"); raw != "" {
		r := domain.Role(raw)
		filter.Role = &r
	}
	if raw := c.Query("department_id"); raw != "" {
		filter.DepartmentID = &raw
	}
	users, err := h.service.ListUsers(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateUser PUT /admin/users/:id.
func (h *UsersAdminHandler) UpdateUser(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.UserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.service.UpdateUser(c.UserContext(), actor, c.Params("id"), userInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

func userInput(req dto.UserRequest) service.UserInput {
	return service.UserInput{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		Role:           req.Role,
		Specialization: req.Specialization,
		DepartmentID:   req.DepartmentID,
		Active:         activeOrDefault(req.Active),
	}
}
