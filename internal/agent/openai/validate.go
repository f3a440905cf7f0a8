package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Ping 以最小的 chat completions 请求验证凭据、base_url 与模型是否可用，返回模型回复。
func Ping(ctx context.Context, httpClient *http.Client, baseURL string, apiKey string, model string) (string, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return "", errors.New("missing OPENAI_API_KEY")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	base := NormalizeBaseURL(baseURL)
	if strings.TrimSpace(base) == "" {
		base = DefaultBaseURL
	}
	endpoint := strings.TrimRight(base, "/") + "/chat/completions"

	reqBody := map[string]any{
		"model": strings.TrimSpace(model),
		"messages": []map[string]any{
			{"role": "system", "content": "Reply with the single word: pong"},
			{"role": "user", "content": "ping"},
		},
		"max_tokens": 5,
	}
	if strings.TrimSpace(model) == "" {
		reqBody["model"] = "gpt-4o-mini"
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", key))

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("http_%d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	text := strings.TrimSpace(gjson.GetBytes(body, "choices.0.message.content").String())
	if text == "" {
		return "", errors.New("chat completions returned no text")
	}
	return text, nil
}
