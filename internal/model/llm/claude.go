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

// ClaudeClient Anthropic Claude 客户端
type ClaudeClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *resty.Client
}

// NewClaudeClient 创建 Claude 客户端
func NewClaudeClient(apiKey, model, baseURL string) *ClaudeClient {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	client := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	return &ClaudeClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  client,
	}
}

type claudeRequest struct {
	Model         string    `json:"model"`
	Messages      []Message `json:"messages"`
	System        string    `json:"system,omitempty"`
	MaxTokens     int       `json:"max_tokens"`
	Temperature   float64   `json:"temperature,omitempty"`
	TopP          float64   `json:"top_p,omitempty"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate 单轮生成
func (c *ClaudeClient) Generate(prompt string, opts *GenerateOptions) (string, error) {
	return c.GenerateWithContext(context.Background(), prompt, opts)
}

// GenerateWithContext 带上下文的单轮生成
func (c *ClaudeClient) GenerateWithContext(ctx context.Context, prompt string, opts *GenerateOptions) (string, error) {
	messages := []Message{{Role: "user", Content: prompt}}
	return c.ChatWithContext(ctx, messages, opts)
}

// Chat 多轮对话
func (c *ClaudeClient) Chat(messages []Message, opts *GenerateOptions) (string, error) {
	return c.ChatWithContext(context.Background(), messages, opts)
}

// ChatWithContext 带上下文的多轮对话。Claude 的 system 提示不走 messages，
// 这里把首条 system 消息提升到请求体的 system 字段。
func (c *ClaudeClient) ChatWithContext(ctx context.Context, messages []Message, opts *GenerateOptions) (string, error) {
	if c.apiKey == "" {
		return "", errors.ErrLLMNotConfigured
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	var system string
	chatMessages := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" && system == "" {
			system = m.Content
			continue
		}
		chatMessages = append(chatMessages, m)
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	req := claudeRequest{
		Model:         c.model,
		Messages:      chatMessages,
		System:        system,
		MaxTokens:     maxTokens,
		Temperature:   opts.Temperature,
		TopP:          opts.TopP,
		StopSequences: opts.Stop,
	}

	var result claudeResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("x-api-key", c.apiKey).
		SetHeader("anthropic-version", "2023-06-01").
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&result).
		Post(c.baseURL + "/messages")
	if err != nil {
		return "", errors.Wrap(err, "claude request failed")
	}

	if resp.IsError() {
		if result.Error != nil {
			return "", fmt.Errorf("claude api error: %s (%s)", result.Error.Message, result.Error.Type)
		}
		return "", fmt.Errorf("claude api error: status %d: %s", resp.StatusCode(), resp.String())
	}

	for _, block := range result.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("claude api returned no text content")
}

// Model 返回当前模型名
func (c *ClaudeClient) Model() string {
	return c.model
}

// Provider 返回提供商名称
func (c *ClaudeClient) Provider() string {
	return "claude"
}

// SetModel 切换模型
func (c *ClaudeClient) SetModel(model string) {
	c.model = model
}

// SetAPIKey 更新密钥
func (c *ClaudeClient) SetAPIKey(apiKey string) {
	c.apiKey = apiKey
}
