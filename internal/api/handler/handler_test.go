package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/securetransact/escrow-api/internal/api/middleware"
	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/ports"
	"github.com/securetransact/escrow-api/internal/core/service"
	"github.com/securetransact/escrow-api/internal/infrastructure/db/memory"
)

// newContext builds an Echo context for req with the API validator
// installed. params are name/value pairs; userID, when set, plays the role
// of the Auth middleware.
func newContext(method, target, body, userID string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	if userID != "" {
		c.Set(middleware.UserIDKey, userID)
	}
	return c, rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectKind(t *testing.T, err error, want domain.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := domain.KindOf(err); got != want {
		t.Fatalf("expected kind %s, got %s (%v)", want, got, err)
	}
}

func expectHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != code {
		t.Fatalf("expected HTTP %d error, got %v", code, err)
	}
}

type services struct {
	store        *memory.Store
	transactions *service.TransactionService
	messages     *service.MessageService
	users        *service.UserService
}

func newServices(opts ...service.TransactionOption) services {
	store := memory.NewStore()
	return services{
		store:        store,
		transactions: service.NewTransactionService(store.Transactions(), store.Messages(), zerolog.Nop(), opts...),
		messages:     service.NewMessageService(store.Transactions(), store.Messages(), nil, zerolog.Nop()),
		users:        service.NewUserService(store.Users(), zerolog.Nop()),
	}
}

func (s services) deal(t *testing.T) *domain.Transaction {
	t.Helper()
	tx, err := s.transactions.CreateTransaction(context.Background(), ports.CreateTransactionInput{
		Title:      "Vintage camera",
		Price:      decimal.NewFromInt(850),
		BuyerID:    "1",
		SellerID:   "2",
		BuyerName:  "Bea",
		SellerName: "Sam",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return tx
}
