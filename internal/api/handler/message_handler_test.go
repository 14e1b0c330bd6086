package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"github.com/securetransact/escrow-api/internal/core/domain"
)

type recordingStream struct {
	served []string
}

func (s *recordingStream) Serve(_ context.Context, w http.ResponseWriter, _ *http.Request, transactionID string) error {
	s.served = append(s.served, transactionID)
	w.WriteHeader(http.StatusSwitchingProtocols)
	return nil
}

func newMessageHandler(svc services, stream StreamServer) *MessageHandler {
	return NewMessageHandler(svc.messages, svc.transactions, stream, zerolog.Nop())
}

func TestMessageHandler_Send_DefaultsSenderToCaller(t *testing.T) {
	svc := newServices()
	tx := svc.deal(t)
	handler := newMessageHandler(svc, nil)

	c, rec := newContext(http.MethodPost, "/api/messages",
		`{"transactionId":"`+tx.ID+`","senderName":"Bea","message":"Is it still available?"}`, "1")
	if err := handler.Send(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	m := decode[domain.Message](t, rec)
	if m.SenderID != "1" || m.Type != domain.MessageText || m.ID == "" {
		t.Fatalf("unexpected message: %+v", m)
	}
}

func TestMessageHandler_Send_Errors(t *testing.T) {
	svc := newServices()
	tx := svc.deal(t)
	handler := newMessageHandler(svc, nil)

	c, _ := newContext(http.MethodPost, "/api/messages",
		`{"transactionId":"`+tx.ID+`","message":"Funds released","type":"system"}`, "1")
	expectKind(t, handler.Send(c), domain.KindValidationFailed)

	c, _ = newContext(http.MethodPost, "/api/messages", `{"transactionId":"nope","message":"hi"}`, "1")
	expectKind(t, handler.Send(c), domain.KindNotFound)

	c, _ = newContext(http.MethodPost, "/api/messages", `{"transactionId":"`+tx.ID+`","message":""}`, "1")
	expectKind(t, handler.Send(c), domain.KindValidationFailed)
}

func TestMessageHandler_List(t *testing.T) {
	svc := newServices()
	tx := svc.deal(t)
	handler := newMessageHandler(svc, nil)

	c, rec := newContext(http.MethodGet, "/api/transactions/"+tx.ID+"/messages", "", "1", "id", tx.ID)
	if err := handler.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	msgs := decode[[]domain.Message](t, rec)
	if len(msgs) != 1 || msgs[0].Message != domain.CreatedMessage || msgs[0].SenderName != domain.SystemSenderName {
		t.Fatalf("expected the opening system message, got %+v", msgs)
	}

	c, _ = newContext(http.MethodGet, "/api/transactions/missing/messages", "", "1", "id", "missing")
	expectKind(t, handler.List(c), domain.KindNotFound)
}

func TestMessageHandler_Stream(t *testing.T) {
	svc := newServices()
	tx := svc.deal(t)

	c, _ := newContext(http.MethodGet, "/", "", "1", "id", tx.ID)
	expectHTTPError(t, newMessageHandler(svc, nil).Stream(c), http.StatusServiceUnavailable)

	stream := &recordingStream{}
	handler := newMessageHandler(svc, stream)

	c, _ = newContext(http.MethodGet, "/", "", "1", "id", "missing")
	expectKind(t, handler.Stream(c), domain.KindNotFound)

	c, _ = newContext(http.MethodGet, "/", "", "1", "id", tx.ID)
	if err := handler.Stream(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(stream.served) != 1 || stream.served[0] != tx.ID {
		t.Fatalf("expected stream for %s, got %v", tx.ID, stream.served)
	}
}
