package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/securetransact/escrow-api/internal/core/ports"
)

// UserHandler serves profiles and the per-user dashboard views.
type UserHandler struct {
	users        ports.UserService
	transactions ports.TransactionService
	messages     ports.MessageService
}

func NewUserHandler(users ports.UserService, transactions ports.TransactionService, messages ports.MessageService) *UserHandler {
	return &UserHandler{users: users, transactions: transactions, messages: messages}
}

// Get handles GET /api/users/:id.
//
// @Summary      Get a user profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.users.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Update handles PUT /api/users/:id.
//
// @Summary      Update a user profile
// @Description  Partial update of email, name, phone and userType. Only the profile owner may call it.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "User id"
// @Param        body  body      updateUserRequest  true  "Fields to overwrite"
// @Success      200   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	var req updateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.users.UpdateUser(c.Request().Context(), c.Param("id"), toUserPatch(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Stats handles GET /api/users/:id/stats.
//
// @Summary      Dashboard counters of a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  ports.Stats
// @Failure      401  {object}  errorResponse
// @Router       /users/{id}/stats [get]
func (h *UserHandler) Stats(c echo.Context) error {
	stats, err := h.transactions.Stats(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Conversations handles GET /api/users/:id/conversations.
//
// @Summary      Chat conversations of a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true   "User id"
// @Param        q    query     string  false  "Case-insensitive search over title and last message"
// @Success      200  {array}   domain.Conversation
// @Failure      401  {object}  errorResponse
// @Router       /users/{id}/conversations [get]
func (h *UserHandler) Conversations(c echo.Context) error {
	conversations, err := h.messages.Conversations(c.Request().Context(), c.Param("id"), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conversations)
}
