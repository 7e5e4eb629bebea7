package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func sseServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("expected text/event-stream accept header, got %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSSETransport_ReadsFramedEvents(t *testing.T) {
	body := "event: message\n" +
		"data: {\"type\":\"payment.updated\",\"sequence\":1,\"data\":{\"id\":\"pay_1\"}}\n" +
		"\n" +
		": keep-alive comment\n" +
		"\n" +
		"data: {\"type\":\"payment.updated\",\"sequence\":2}\n" +
		"\n"
	srv := sseServer(t, body, http.StatusOK)

	conn, err := NewSSETransport(srv.URL).Dial(context.Background())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	ev, err := conn.Read()
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	if ev.Type != EventPaymentUpdated || ev.Sequence != 1 {
		t.Errorf("got type=%s seq=%d", ev.Type, ev.Sequence)
	}

	ev, err = conn.Read()
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if ev.Sequence != 2 {
		t.Errorf("comment frames must be skipped; got sequence %d", ev.Sequence)
	}
}

func TestSSETransport_MultilineData(t *testing.T) {
	body := "data: {\"type\":\"payment.updated\",\n" +
		"data: \"sequence\":7}\n" +
		"\n"
	srv := sseServer(t, body, http.StatusOK)

	conn, err := NewSSETransport(srv.URL).Dial(context.Background())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	ev, err := conn.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Sequence != 7 {
		t.Errorf("data lines must concatenate, got sequence %d", ev.Sequence)
	}
}

func TestSSETransport_MalformedFrame(t *testing.T) {
	body := "data: not json at all\n\n"
	srv := sseServer(t, body, http.StatusOK)

	conn, err := NewSSETransport(srv.URL).Dial(context.Background())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Read(); !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("expected ErrMalformedEvent, got %v", err)
	}
}

func TestSSETransport_RejectsNon200(t *testing.T) {
	srv := sseServer(t, "", http.StatusServiceUnavailable)

	if _, err := NewSSETransport(srv.URL).Dial(context.Background()); err == nil {
		t.Fatalf("expected an error for a 503 response")
	}
}
