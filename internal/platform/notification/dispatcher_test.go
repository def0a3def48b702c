package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func TestDedupDispatcher_Sends(t *testing.T) {
	sender := &MockSender{}
	d := NewDedupDispatcher(sender, time.Minute, testLogger())

	res := d.Send(context.Background(), "+15550100", "your appointment is confirmed", "appt-1")
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.ReferenceID != "ref-mock" {
		t.Errorf("expected gateway reference, got %q", res.ReferenceID)
	}
	if len(sender.Calls()) != 1 {
		t.Errorf("expected 1 transport call, got %d", len(sender.Calls()))
	}
}

func TestDedupDispatcher_SuppressesWithinWindow(t *testing.T) {
	sender := &MockSender{}
	d := NewDedupDispatcher(sender, time.Minute, testLogger())

	d.Send(context.Background(), "+15550100", "reminder", "appt-1")
	res := d.Send(context.Background(), "+15550100", "reminder", "appt-1")

	if !res.Success {
		t.Errorf("suppressed send should report success, got %+v", res)
	}
	if len(sender.Calls()) != 1 {
		t.Errorf("expected duplicate to be suppressed, transport called %d times", len(sender.Calls()))
	}
}

func TestDedupDispatcher_DifferentMessagesNotSuppressed(t *testing.T) {
	sender := &MockSender{}
	d := NewDedupDispatcher(sender, time.Minute, testLogger())

	d.Send(context.Background(), "+15550100", "confirmed", "appt-1")
	d.Send(context.Background(), "+15550100", "cancelled", "appt-1")

	if len(sender.Calls()) != 2 {
		t.Errorf("distinct messages should both send, got %d calls", len(sender.Calls()))
	}
}

func TestDedupDispatcher_WindowExpires(t *testing.T) {
	sender := &MockSender{}
	d := NewDedupDispatcher(sender, time.Minute, testLogger())

	current := time.Now()
	d.now = func() time.Time { return current }

	d.Send(context.Background(), "+15550100", "reminder", "appt-1")
	current = current.Add(2 * time.Minute)
	d.Send(context.Background(), "+15550100", "reminder", "appt-1")

	if len(sender.Calls()) != 2 {
		t.Errorf("expected resend after window expiry, got %d calls", len(sender.Calls()))
	}
}

func TestDedupDispatcher_FailureNotCached(t *testing.T) {
	sender := &MockSender{ShouldFail: true, FailError: "gateway unreachable"}
	d := NewDedupDispatcher(sender, time.Minute, testLogger())

	res := d.Send(context.Background(), "+15550100", "reminder", "appt-1")
	if res.Success {
		t.Fatal("expected failure result")
	}
	if res.Message != "gateway unreachable" {
		t.Errorf("result should carry transport error, got %q", res.Message)
	}

	// A retry after the transport recovers must not be suppressed.
	sender.ShouldFail = false
	res = d.Send(context.Background(), "+15550100", "reminder", "appt-1")
	if !res.Success {
		t.Errorf("retry after failure should send, got %+v", res)
	}
	if len(sender.Calls()) != 2 {
		t.Errorf("expected 2 transport attempts, got %d", len(sender.Calls()))
	}
}

func TestSMSGatewayClient_Send(t *testing.T) {
	var gotAuth string
	var gotReq smsGatewayRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(smsGatewayResponse{Status: "success", Token: "ref-42"})
	}))
	defer srv.Close()

	client := NewSMSGatewayClient(srv.URL, "secret-key")
	ref, err := client.Send(context.Background(), "+15550100", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != "ref-42" {
		t.Errorf("expected reference ref-42, got %q", ref)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("unexpected auth header: %q", gotAuth)
	}
	if gotReq.Recipient != "+15550100" || gotReq.Message != "hello" {
		t.Errorf("unexpected request payload: %+v", gotReq)
	}
}

func TestSMSGatewayClient_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewSMSGatewayClient(srv.URL, "secret-key")
	if _, err := client.Send(context.Background(), "+15550100", "hello"); err == nil {
		t.Error("expected error for non-200 gateway response")
	}
}

func TestSMSGatewayClient_RejectedMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(smsGatewayResponse{Status: "error", Msg: "invalid recipient"})
	}))
	defer srv.Close()

	client := NewSMSGatewayClient(srv.URL, "secret-key")
	if _, err := client.Send(context.Background(), "bad", "hello"); err == nil {
		t.Error("expected error for rejected message")
	}
}
