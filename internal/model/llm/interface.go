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

// Package llm 封装大模型访问。规划与校验两个角色各持有一个 Client，
// 通过 RateLimitedClient 包装后对外提供限流与指标采集。
package llm

import (
	"context"
	"fmt"
)

// Client 大模型客户端接口
type Client interface {
	// Generate 单轮生成
	Generate(prompt string, opts *GenerateOptions) (string, error)

	// GenerateWithContext 带上下文的单轮生成
	GenerateWithContext(ctx context.Context, prompt string, opts *GenerateOptions) (string, error)

	// Chat 多轮对话
	Chat(messages []Message, opts *GenerateOptions) (string, error)

	// ChatWithContext 带上下文的多轮对话
	ChatWithContext(ctx context.Context, messages []Message, opts *GenerateOptions) (string, error)

	// Model 返回当前模型名
	Model() string

	// Provider 返回提供商名称
	Provider() string

	// SetModel 切换模型
	SetModel(model string)

	// SetAPIKey 更新密钥
	SetAPIKey(apiKey string)
}

// Message 对话消息
type Message struct {
	Role    string `json:"role"` // system / user / assistant
	Content string `json:"content"`
}

// GenerateOptions 生成参数
type GenerateOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	Stop        []string

	// ResponseJSON 要求模型输出严格 JSON（OpenAI 兼容接口的 response_format）
	ResponseJSON bool
}

// DefaultOptions 默认生成参数
func DefaultOptions() *GenerateOptions {
	return &GenerateOptions{
		Temperature: 0.3,
		MaxTokens:   2048,
	}
}

// NewClient 按提供商创建客户端。qwen 走 OpenAI 兼容接口，仅默认
// base URL 与模型名不同。
func NewClient(provider, apiKey, model, baseURL string) (Client, error) {
	switch provider {
	case "openai":
		return NewOpenAIClient(apiKey, model, baseURL), nil
	case "qwen":
		return NewQwenClient(apiKey, model, baseURL), nil
	case "claude":
		return NewClaudeClient(apiKey, model, baseURL), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
