package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/securetransact/escrow-api/internal/api/metrics"
	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/ports"
)

// TransactionHandler handles HTTP requests for escrow transactions.
type TransactionHandler struct {
	service ports.TransactionService
	log     zerolog.Logger
}

func NewTransactionHandler(service ports.TransactionService, log zerolog.Logger) *TransactionHandler {
	return &TransactionHandler{service: service, log: log}
}

// List handles GET /api/transactions.
//
// @Summary      List every transaction
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Transaction
// @Failure      401  {object}  errorResponse
// @Router       /transactions [get]
func (h *TransactionHandler) List(c echo.Context) error {
	txs, err := h.service.ListTransactions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(txs))
}

// ListByUser handles GET /api/transactions/user/:userId.
//
// @Summary      List the transactions of a user
// @Description  Transactions where the user is buyer or seller, newest first.
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string  true  "User id"
// @Success      200     {array}   domain.Transaction
// @Failure      401     {object}  errorResponse
// @Router       /transactions/user/{userId} [get]
func (h *TransactionHandler) ListByUser(c echo.Context) error {
	txs, err := h.service.ListUserTransactions(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(txs))
}

// Create handles POST /api/transactions.
//
// @Summary      Create a transaction
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string                    false  "Idempotency key to prevent duplicate submissions"
// @Param        body             body      createTransactionRequest  true   "Transaction details"
// @Success      201              {object}  domain.Transaction
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Router       /transactions [post]
func (h *TransactionHandler) Create(c echo.Context) error {
	var req createTransactionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tx, err := h.service.CreateTransaction(c.Request().Context(), toCreateTransactionInput(req))
	if err != nil {
		return err
	}
	metrics.TransactionsCreatedTotal.Inc()
	return c.JSON(http.StatusCreated, tx)
}

// Get handles GET /api/transactions/:id.
//
// @Summary      Get a transaction
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Transaction id"
// @Success      200  {object}  domain.Transaction
// @Failure      404  {object}  errorResponse
// @Router       /transactions/{id} [get]
func (h *TransactionHandler) Get(c echo.Context) error {
	tx, err := h.service.GetTransaction(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tx)
}

// UpdateStatus handles PUT /api/transactions/:id/status.
//
// @Summary      Overwrite the status of a transaction
// @Description  Sets the status, stamps the last update and records the matching system message.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Transaction id"
// @Param        body  body      updateStatusRequest  true  "New status"
// @Success      200   {object}  domain.Transaction
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /transactions/{id}/status [put]
func (h *TransactionHandler) UpdateStatus(c echo.Context) error {
	var req updateStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tx, err := h.service.UpdateTransactionStatus(c.Request().Context(), ports.UpdateStatusInput{
		TransactionID: c.Param("id"),
		Status:        domain.TransactionStatus(req.Status),
		DisputeReason: req.DisputeReason,
	})
	return h.statusChanged(c, tx, err)
}

// Actions handles GET /api/transactions/:id/actions.
//
// @Summary      Actions available to the caller
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Transaction id"
// @Success      200  {object}  ports.ActionsView
// @Failure      404  {object}  errorResponse
// @Router       /transactions/{id}/actions [get]
func (h *TransactionHandler) Actions(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	view, err := h.service.AvailableActions(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// ApplyAction handles POST /api/transactions/:id/actions/:action.
//
// @Summary      Take a lifecycle action
// @Description  Checks the action against the caller's role and the current status, then updates the status.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      string              true   "Transaction id"
// @Param        action  path      string              true   "accept, pay, ship, confirm_delivery, approve, dispute or cancel"
// @Param        body    body      applyActionRequest  false  "Dispute reason"
// @Success      200     {object}  domain.Transaction
// @Failure      400     {object}  errorResponse
// @Failure      404     {object}  errorResponse
// @Router       /transactions/{id}/actions/{action} [post]
func (h *TransactionHandler) ApplyAction(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req applyActionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tx, err := h.service.ApplyAction(c.Request().Context(), ports.ApplyActionInput{
		TransactionID: c.Param("id"),
		UserID:        userID,
		Action:        domain.Action(c.Param("action")),
		Reason:        req.Reason,
	})
	return h.statusChanged(c, tx, err)
}

// UploadImage handles POST /api/transactions/:id/images.
//
// @Summary      Attach an image to a transaction
// @Tags         transactions
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true  "Transaction id"
// @Param        image  formData  file    true  "Image file"
// @Success      200    {object}  domain.Transaction
// @Failure      400    {object}  errorResponse
// @Failure      404    {object}  errorResponse
// @Failure      503    {object}  errorResponse
// @Router       /transactions/{id}/images [post]
func (h *TransactionHandler) UploadImage(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return domain.Validation("image file is required")
	}
	body, err := file.Open()
	if err != nil {
		return domain.Validation("image file is unreadable")
	}
	defer body.Close()

	tx, err := h.service.AttachImage(c.Request().Context(), ports.AttachImageInput{
		TransactionID: c.Param("id"),
		FileName:      file.Filename,
		ContentType:   file.Header.Get(echo.HeaderContentType),
		Size:          file.Size,
		Body:          body,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tx)
}

// statusChanged records the outcome of a status change and renders it.
func (h *TransactionHandler) statusChanged(c echo.Context, tx *domain.Transaction, err error) error {
	if err != nil {
		metrics.StatusChangeErrorsTotal.WithLabelValues(string(domain.KindOf(err))).Inc()
		return err
	}
	metrics.StatusChangesTotal.WithLabelValues(string(tx.Status)).Inc()
	return c.JSON(http.StatusOK, tx)
}

// nonNil renders empty results as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
