package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/securetransact/escrow-api/internal/api/metrics"
	"github.com/securetransact/escrow-api/internal/core/ports"
)

// StreamServer upgrades a request into a live message stream of one
// transaction.
type StreamServer interface {
	Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, transactionID string) error
}

// MessageHandler handles the chat channel of transactions.
type MessageHandler struct {
	service      ports.MessageService
	transactions ports.TransactionService
	stream       StreamServer
	log          zerolog.Logger
}

// NewMessageHandler creates a MessageHandler. stream may be nil, in which
// case the live stream route answers 503.
func NewMessageHandler(service ports.MessageService, transactions ports.TransactionService, stream StreamServer, log zerolog.Logger) *MessageHandler {
	return &MessageHandler{service: service, transactions: transactions, stream: stream, log: log}
}

// List handles GET /api/transactions/:id/messages.
//
// @Summary      List the messages of a transaction
// @Description  Oldest first; messages with equal timestamps keep insertion order.
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Transaction id"
// @Success      200  {array}   domain.Message
// @Failure      404  {object}  errorResponse
// @Router       /transactions/{id}/messages [get]
func (h *MessageHandler) List(c echo.Context) error {
	msgs, err := h.service.ListMessages(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(msgs))
}

// Send handles POST /api/messages.
//
// @Summary      Post a chat message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string              false  "Idempotency key to prevent duplicate submissions"
// @Param        body             body      sendMessageRequest  true   "Message"
// @Success      201              {object}  domain.Message
// @Failure      400              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Router       /messages [post]
func (h *MessageHandler) Send(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req sendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	m, err := h.service.SendMessage(c.Request().Context(), toSendMessageInput(req, userID))
	if err != nil {
		return err
	}
	metrics.MessagesSentTotal.WithLabelValues(string(m.Type)).Inc()
	return c.JSON(http.StatusCreated, m)
}

// Stream handles GET /api/transactions/:id/messages/stream.
//
// @Summary      Live message stream
// @Description  Websocket; every message appended to the transaction is pushed as JSON. The token may be passed as ?token=.
// @Tags         messages
// @Security     BearerAuth
// @Param        id     path   string  true   "Transaction id"
// @Param        token  query  string  false  "Bearer token for clients that cannot set headers"
// @Success      101
// @Failure      404  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /transactions/{id}/messages/stream [get]
func (h *MessageHandler) Stream(c echo.Context) error {
	if h.stream == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "live chat is disabled")
	}
	id := c.Param("id")
	if _, err := h.transactions.GetTransaction(c.Request().Context(), id); err != nil {
		return err
	}
	if err := h.stream.Serve(c.Request().Context(), c.Response(), c.Request(), id); err != nil {
		// The upgrader has already answered the client.
		h.log.Debug().Err(err).Str("transaction_id", id).Msg("chat stream upgrade failed")
	}
	return nil
}
