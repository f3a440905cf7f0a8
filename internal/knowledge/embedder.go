package knowledge

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	openaimodel "finsight/internal/agent/openai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultEmbeddingModel 与建库时使用的模型保持一致，更换模型需要重新 ingest。
const DefaultEmbeddingModel = "text-embedding-ada-002"

// Embedder 把文本批量转换为向量，返回顺序与输入一致。
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

type OpenAIEmbedderOptions struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIEmbedder 调用 embeddings 接口。
type OpenAIEmbedder struct {
	api   *openai.Client
	model string
}

func NewOpenAIEmbedder(opts OpenAIEmbedderOptions) (*OpenAIEmbedder, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}
	cfg := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if base := openaimodel.NormalizeBaseURL(opts.BaseURL); base != "" {
		cfg = append(cfg, option.WithBaseURL(strings.TrimRight(base, "/")))
	}
	client := openai.NewClient(cfg...)
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIEmbedder{api: &client, model: model}, nil
}

func (e *OpenAIEmbedder) Name() string { return "openai:" + e.model }

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		idx := int(item.Index)
		if idx < 0 || idx >= len(out) {
			return nil, fmt.Errorf("embeddings: index %d out of range", idx)
		}
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		out[idx] = vec
	}
	return out, nil
}

// HashEmbedder 是离线的确定性嵌入：词项经 FNV 哈希投影到固定维度后归一化。
// 只保证相同输入得到相同向量、词项重叠越多相似度越高，用于无凭据环境与测试。
type HashEmbedder struct {
	Dims int
}

const defaultHashDims = 256

func (e HashEmbedder) Name() string { return fmt.Sprintf("hash:%d", e.dims()) }

func (e HashEmbedder) dims() int {
	if e.Dims <= 0 {
		return defaultHashDims
	}
	return e.Dims
}

func (e HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.embedOne(text)
	}
	return out, nil
}

func (e HashEmbedder) embedOne(text string) []float32 {
	dims := e.dims()
	vec := make([]float32, dims)
	for _, token := range tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum64()
		sign := float32(1)
		if sum&1 == 1 {
			sign = -1
		}
		vec[int((sum>>1)%uint64(dims))] += sign
	}
	normalize(vec)
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

// cosine 返回两个向量的余弦相似度；维度不一致或零向量返回 0。
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
