package openai

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ResolveEndpoint 返回 base_url 归一化后的 host:port，空值使用官方地址。
func ResolveEndpoint(baseURL string) (string, error) {
	raw := strings.TrimSpace(baseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	parsed, err := url.Parse(NormalizeBaseURL(raw))
	if err != nil || parsed == nil {
		return "", fmt.Errorf("invalid base_url %q: %w", baseURL, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	host := parsed.Hostname()
	if scheme == "" || host == "" {
		return "", fmt.Errorf("invalid base_url %q: scheme=%q host=%q", baseURL, parsed.Scheme, parsed.Host)
	}
	port := parsed.Port()
	if port == "" {
		switch scheme {
		case "http":
			port = "80"
		case "https":
			port = "443"
		default:
			return "", fmt.Errorf("unsupported base_url scheme %q (base_url=%q)", parsed.Scheme, baseURL)
		}
	}
	return net.JoinHostPort(host, port), nil
}

// CheckBaseURLReachable 只做 TCP 建连探测，不发送任何请求。
func CheckBaseURLReachable(ctx context.Context, baseURL string) (string, error) {
	addr, err := ResolveEndpoint(baseURL)
	if err != nil {
		return "", err
	}
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return addr, fmt.Errorf("cannot connect to %s (base_url=%q): %w", addr, baseURL, err)
	}
	_ = conn.Close()
	return addr, nil
}
