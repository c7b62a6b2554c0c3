package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ashureev/research-wizard/internal/domain"
)

func testMessages() []domain.Message {
	return []domain.Message{
		{Role: domain.RoleSystem, Content: "You are a research teacher."},
		{Role: domain.RoleUser, Content: "I want to research money."},
	}
}

func newTestClient(url string) *Client {
	return NewClient(Config{BaseURL: url, APIKey: "test-key", Model: "test-model", Timeout: 2 * time.Second}, nil)
}

func TestCompleteReturnsFirstChoice(t *testing.T) {
	var gotAuth string
	var gotReq chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Great topic!"}}]}`))
	}))
	defer srv.Close()

	reply, err := newTestClient(srv.URL).Complete(context.Background(), testMessages())
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply != "Great topic!" {
		t.Errorf("expected reply %q, got %q", "Great topic!", reply)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer credential, got %q", gotAuth)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("expected model field in request, got %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != domain.RoleSystem {
		t.Errorf("unexpected outbound messages: %+v", gotReq.Messages)
	}
}

func TestCompleteMapsServerErrorToCompletionFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Complete(context.Background(), testMessages())
	if !errors.Is(err, ErrCompletionFailed) {
		t.Errorf("expected ErrCompletionFailed, got %v", err)
	}
}

func TestCompleteMapsMalformedBodyToCompletionFailed(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", "<html>gateway timeout</html>"},
		{"no choices", `{"choices":[]}`},
		{"empty content", `{"choices":[{"message":{"role":"assistant","content":""}}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Complete(context.Background(), testMessages())
			if !errors.Is(err, ErrCompletionFailed) {
				t.Errorf("expected ErrCompletionFailed, got %v", err)
			}
		})
	}
}

func TestCompleteMapsNetworkFailureToCompletionFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, err := newTestClient(srv.URL).Complete(context.Background(), testMessages())
	if !errors.Is(err, ErrCompletionFailed) {
		t.Errorf("expected ErrCompletionFailed, got %v", err)
	}
}

func TestCompleteHonorsContextCancellation(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := newTestClient(srv.URL).Complete(ctx, testMessages())
	if !errors.Is(err, ErrCompletionFailed) {
		t.Errorf("expected ErrCompletionFailed on cancellation, got %v", err)
	}
}
