package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"commerce-chat-bot/internal/domain"
	"commerce-chat-bot/internal/domain/model"
)

type stubPipeline struct {
	err    error
	events []model.InboundEvent
}

func (s *stubPipeline) ProcessInbound(ctx context.Context, ev model.InboundEvent) error {
	s.events = append(s.events, ev)
	return s.err
}

func newTestServer(pipelineErr error) (*httptest.Server, *stubPipeline, *Verifier) {
	log := zerolog.Nop()
	v := NewVerifier("top-secret", 0)
	pipe := &stubPipeline{err: pipelineErr}
	srv := httptest.NewServer(NewServer(v, pipe, &log).Handler())
	return srv, pipe, v
}

func postEvent(t *testing.T, srv *httptest.Server, v *Verifier, body []byte, signed bool) *http.Response {
	t.Helper()
	req, err := http.NewRequest("POST", srv.URL+"/webhook/shop", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if signed {
		req.Header.Set(SignatureHeader, v.Sign(body))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func validBody(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(inboundPayload{EventID: "e1", CustomerID: "15550001111", Text: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestWebhookAcceptsValidEvent(t *testing.T) {
	srv, pipe, v := newTestServer(nil)
	defer srv.Close()

	resp := postEvent(t, srv, v, validBody(t), true)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(pipe.events) != 1 {
		t.Fatalf("pipeline got %d events", len(pipe.events))
	}
	ev := pipe.events[0]
	if ev.EventID != "shop-e1" {
		t.Errorf("event id = %q, want provider-prefixed", ev.EventID)
	}
	if ev.CustomerID != "15550001111" || ev.Text != "hi" {
		t.Errorf("event = %+v", ev)
	}
}

func TestWebhookRejectsUnsigned(t *testing.T) {
	srv, pipe, v := newTestServer(nil)
	defer srv.Close()

	resp := postEvent(t, srv, v, validBody(t), false)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if len(pipe.events) != 0 {
		t.Error("unsigned event reached the pipeline")
	}
}

func TestWebhookRejectsBadPayload(t *testing.T) {
	srv, _, v := newTestServer(nil)
	defer srv.Close()

	for _, body := range [][]byte{
		[]byte("not json"),
		[]byte(`{"customer_id":"1"}`), // missing event_id
		[]byte(`{"event_id":"e1"}`),   // missing customer_id
	} {
		resp := postEvent(t, srv, v, body, true)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestWebhookDuplicateStillAcks(t *testing.T) {
	srv, _, v := newTestServer(domain.ErrDuplicateEvent)
	defer srv.Close()

	resp := postEvent(t, srv, v, validBody(t), true)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 for duplicate", resp.StatusCode)
	}
}

func TestWebhookClaimStoreOutageIs503(t *testing.T) {
	srv, _, v := newTestServer(domain.ErrClaimStoreOffline)
	defer srv.Close()

	resp := postEvent(t, srv, v, validBody(t), true)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestWebhookBusyConversationIs503(t *testing.T) {
	srv, _, v := newTestServer(domain.ErrConversationBusy)
	defer srv.Close()

	// Busy means the event was never claimed, so the provider must be told
	// to redeliver rather than being acked.
	resp := postEvent(t, srv, v, validBody(t), true)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestWebhookAcksAfterClaimFailure(t *testing.T) {
	srv, _, v := newTestServer(context.DeadlineExceeded)
	defer srv.Close()

	resp := postEvent(t, srv, v, validBody(t), true)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 once claimed", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
