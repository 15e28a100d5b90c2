// Copyright 2026 The trip-planner Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-planner/pkg/errors"
)

func newFakeOpenAIServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}))
}

func TestGenerateWithContext(t *testing.T) {
	srv := newFakeOpenAIServer(t, `{"origin": "北京"}`, http.StatusOK)
	defer srv.Close()

	client := NewQwenClient("test-key", "qwen-plus", srv.URL)
	out, err := client.GenerateWithContext(context.Background(), "识别槽位", &GenerateOptions{ResponseJSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"origin": "北京"}`, out)
}

func TestGenerateWithoutAPIKey(t *testing.T) {
	client := NewQwenClient("", "", "")
	_, err := client.Generate("任意提示词", nil)
	assert.ErrorIs(t, err, errors.ErrLLMNotConfigured)
}

func TestNewClientDispatch(t *testing.T) {
	cases := []struct {
		provider string
		want     string
	}{
		{"openai", "openai"},
		{"qwen", "qwen"},
		{"claude", "claude"},
	}
	for _, tc := range cases {
		client, err := NewClient(tc.provider, "k", "", "")
		require.NoError(t, err, tc.provider)
		assert.Equal(t, tc.want, client.Provider())
	}

	_, err := NewClient("unknown", "k", "", "")
	assert.Error(t, err)
}

// stubClient 计数内层调用
type stubClient struct {
	OpenAIClient
	calls int
}

func (s *stubClient) GenerateWithContext(context.Context, string, *GenerateOptions) (string, error) {
	s.calls++
	return "ok", nil
}

func (s *stubClient) Provider() string { return "stub" }
func (s *stubClient) Model() string    { return "stub-model" }

func TestRateLimitedClientPassesThrough(t *testing.T) {
	inner := &stubClient{}
	limiter := NewLLMRateLimiter(LLMLimitConfig{RequestsPerSecond: 100, MaxConcurrent: 4})
	client := NewRateLimitedClient(inner, limiter)

	out, err := client.GenerateWithContext(context.Background(), "提示词", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 1, inner.calls)
	assert.Positive(t, limiter.GetStats().TotalTokens)
}
