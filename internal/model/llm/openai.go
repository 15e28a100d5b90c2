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
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"trip-planner/pkg/errors"
)

// OpenAIClient OpenAI 兼容客户端，同时服务 openai 与 qwen 两个提供商
type OpenAIClient struct {
	apiKey   string
	model    string
	baseURL  string
	provider string
	client   *resty.Client
}

// NewOpenAIClient 创建 OpenAI 客户端
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return newCompatibleClient(apiKey, model, baseURL, "openai")
}

// NewQwenClient 创建通义千问客户端（DashScope 的 OpenAI 兼容模式）
func NewQwenClient(apiKey, model, baseURL string) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	}
	if model == "" {
		model = "qwen-plus"
	}
	return newCompatibleClient(apiKey, model, baseURL, "qwen")
}

func newCompatibleClient(apiKey, model, baseURL, provider string) *OpenAIClient {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	return &OpenAIClient{
		apiKey:   apiKey,
		model:    model,
		baseURL:  baseURL,
		provider: provider,
		client:   client,
	}
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	TopP           float64         `json:"top_p,omitempty"`
	Stop           []string        `json:"stop,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate 单轮生成
func (c *OpenAIClient) Generate(prompt string, opts *GenerateOptions) (string, error) {
	return c.GenerateWithContext(context.Background(), prompt, opts)
}

// GenerateWithContext 带上下文的单轮生成
func (c *OpenAIClient) GenerateWithContext(ctx context.Context, prompt string, opts *GenerateOptions) (string, error) {
	messages := []Message{{Role: "user", Content: prompt}}
	return c.ChatWithContext(ctx, messages, opts)
}

// Chat 多轮对话
func (c *OpenAIClient) Chat(messages []Message, opts *GenerateOptions) (string, error) {
	return c.ChatWithContext(context.Background(), messages, opts)
}

// ChatWithContext 带上下文的多轮对话
func (c *OpenAIClient) ChatWithContext(ctx context.Context, messages []Message, opts *GenerateOptions) (string, error) {
	if c.apiKey == "" {
		return "", errors.ErrLLMNotConfigured
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	req := openAIRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		TopP:        opts.TopP,
		Stop:        opts.Stop,
	}
	if opts.ResponseJSON {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var result openAIResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&result).
		Post(c.baseURL + "/chat/completions")
	if err != nil {
		return "", errors.Wrapf(err, "%s request failed", c.provider)
	}

	if resp.IsError() {
		if result.Error != nil {
			return "", fmt.Errorf("%s api error: %s (%s)", c.provider, result.Error.Message, result.Error.Type)
		}
		return "", fmt.Errorf("%s api error: status %d: %s", c.provider, resp.StatusCode(), resp.String())
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%s api returned no choices", c.provider)
	}

	return result.Choices[0].Message.Content, nil
}

// Model 返回当前模型名
func (c *OpenAIClient) Model() string {
	return c.model
}

// Provider 返回提供商名称
func (c *OpenAIClient) Provider() string {
	return c.provider
}

// SetModel 切换模型
func (c *OpenAIClient) SetModel(model string) {
	c.model = model
}

// SetAPIKey 更新密钥
func (c *OpenAIClient) SetAPIKey(apiKey string) {
	c.apiKey = apiKey
}
