package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memlinkio/memlink/pkg/config"
)

func TestNewOpenAIEmbedder(t *testing.T) {
	t.Run("NilConfig", func(t *testing.T) {
		_, err := NewOpenAIEmbedder(nil)
		assert.Error(t, err)
	})

	t.Run("MissingAPIKey", func(t *testing.T) {
		_, err := NewOpenAIEmbedder(&config.EmbedderConfig{Model: "text-embedding-3-small"})
		assert.Error(t, err)
	})

	t.Run("DefaultDimension", func(t *testing.T) {
		e, err := NewOpenAIEmbedder(&config.EmbedderConfig{
			APIKey: "sk-test",
			Model:  "text-embedding-3-small",
		})
		require.NoError(t, err)
		assert.Equal(t, 1536, e.GetDimension())
	})

	t.Run("LargeModelDimension", func(t *testing.T) {
		e, err := NewOpenAIEmbedder(&config.EmbedderConfig{
			APIKey: "sk-test",
			Model:  "text-embedding-3-large",
		})
		require.NoError(t, err)
		assert.Equal(t, 3072, e.GetDimension())
	})

	t.Run("ExplicitDimension", func(t *testing.T) {
		e, err := NewOpenAIEmbedder(&config.EmbedderConfig{
			APIKey:    "sk-test",
			Model:     "text-embedding-3-small",
			Dimension: 256,
		})
		require.NoError(t, err)
		assert.Equal(t, 256, e.GetDimension())
	})
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel = req.Model

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]interface{}{
			"object": "list",
			"data": []map[string]interface{}{
				{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2, 0.3}},
			},
			"model": req.Model,
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(&config.EmbedderConfig{
		APIKey:  "sk-test",
		Model:   "text-embedding-3-small",
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "I work at Google")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "text-embedding-3-small", gotModel)
}

func TestOpenAIEmbedder_EmbedEmptyText(t *testing.T) {
	e, err := NewOpenAIEmbedder(&config.EmbedderConfig{
		APIKey: "sk-test",
		Model:  "text-embedding-3-small",
	})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "")
	assert.Error(t, err)
}
