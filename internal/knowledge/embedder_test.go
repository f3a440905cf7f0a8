package knowledge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenAIEmbedderNormalizesBaseURLAndOrdersByIndex(t *testing.T) {
	var gotPath, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Model string `json:"model"`
		}
		_ = json.Unmarshal(body, &req)
		gotModel = req.Model
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-ada-002","data":[` +
			`{"object":"embedding","index":1,"embedding":[0,1]},` +
			`{"object":"embedding","index":0,"embedding":[1,0]}],` +
			`"usage":{"prompt_tokens":4,"total_tokens":4}}`))
	}))
	t.Cleanup(srv.Close)

	e, err := NewOpenAIEmbedder(OpenAIEmbedderOptions{APIKey: "sk-test", BaseURL: srv.URL + "/v1/embeddings"})
	require.NoError(t, err)
	require.Equal(t, "openai:"+DefaultEmbeddingModel, e.Name())

	vecs, err := e.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Equal(t, "/v1/embeddings", gotPath)
	require.Equal(t, DefaultEmbeddingModel, gotModel)
	require.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

func TestOpenAIEmbedderRequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIEmbedderOptions{})
	require.Error(t, err)
}
