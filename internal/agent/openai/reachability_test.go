package openai

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"
)

func TestCheckBaseURLReachable_OK(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	port := ln.Addr().(*net.TCPAddr).Port
	baseURL := fmt.Sprintf("http://127.0.0.1:%d/v1", port)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	addr, err := CheckBaseURLReachable(ctx, baseURL)
	if err != nil {
		t.Fatalf("CheckBaseURLReachable() error: %v", err)
	}
	if want := fmt.Sprintf("127.0.0.1:%d", port); addr != want {
		t.Fatalf("addr = %q, want %q", addr, want)
	}
}

func TestResolveEndpoint(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: "api.openai.com:443"},
		{in: "http://localhost:8080/v1", want: "localhost:8080"},
		{in: "https://proxy.example.com/openai", want: "proxy.example.com:443"},
		{in: "ftp://example.com", wantErr: true},
		{in: "://bad", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ResolveEndpoint(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ResolveEndpoint(%q) = %q, want error", tc.in, got)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("ResolveEndpoint(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
			}
		})
	}
}

func TestCheckBaseURLReachable_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	_ = ln.Close()

	baseURL := fmt.Sprintf("http://127.0.0.1:%d/v1", addr.Port)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if _, err := CheckBaseURLReachable(ctx, baseURL); err == nil {
		t.Skipf("port %d is reachable; skipping connection-refused assertion", addr.Port)
	}
}
