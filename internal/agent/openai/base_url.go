package openai

import (
	"net/url"
	"strings"
)

// endpointSuffixes 是用户常误填进 url 的具体接口路径，按长度从长到短匹配。
var endpointSuffixes = []string{
	"/chat/completions",
	"/completions",
	"/embeddings",
	"/responses",
	"/models",
}

// NormalizeBaseURL 把配置里的 url 规整为以 /v1 结尾的 API 根：
// 去掉误填的接口路径，补上缺失的 /v1，合并重复的 /v1。
// 聊天客户端、ping 与 embeddings 共用这一规则。
func NormalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil {
		return raw
	}
	parsed.Path = apiRoot(parsed.Path)
	return parsed.String()
}

func apiRoot(path string) string {
	path = strings.TrimRight(path, "/")
	for _, suffix := range endpointSuffixes {
		if strings.HasSuffix(path, suffix) {
			path = strings.TrimRight(strings.TrimSuffix(path, suffix), "/")
			break
		}
	}
	for strings.HasSuffix(path, "/v1/v1") {
		path = strings.TrimSuffix(path, "/v1")
	}
	path = strings.ReplaceAll(path, "/v1/v1/", "/v1/")
	if !strings.HasSuffix(path, "/v1") {
		path += "/v1"
	}
	return path
}
