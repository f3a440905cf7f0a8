package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPing_Success(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization = %q", got)
		}
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"pong"}}]}`))
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	text, err := Ping(ctx, srv.Client(), srv.URL, "sk-test", "")
	if err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
	if text != "pong" {
		t.Fatalf("Ping() = %q, want pong", text)
	}
	if gotModel != "gpt-4o-mini" {
		t.Fatalf("model = %q, want default gpt-4o-mini", gotModel)
	}
}

func TestPing_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	t.Cleanup(srv.Close)

	_, err := Ping(context.Background(), srv.Client(), srv.URL+"/v1", "sk-bad", "gpt-4o-mini")
	if err == nil || !strings.HasPrefix(err.Error(), "http_401") {
		t.Fatalf("Ping() error = %v, want http_401", err)
	}
}

func TestPing_EmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	t.Cleanup(srv.Close)

	if _, err := Ping(context.Background(), srv.Client(), srv.URL, "sk-test", "m"); err == nil {
		t.Fatalf("Ping() = nil error, want error for empty reply")
	}
}

func TestPing_MissingKey(t *testing.T) {
	if _, err := Ping(context.Background(), nil, "", " ", "m"); err == nil {
		t.Fatalf("Ping() = nil error, want missing key error")
	}
}
