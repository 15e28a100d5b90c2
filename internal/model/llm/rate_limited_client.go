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
	"time"

	"trip-planner/pkg/metrics"
)

// RateLimitedClient 在 Client 之上套一层限流，并把等待时间与 token
// 消耗上报到指标。
type RateLimitedClient struct {
	inner   Client
	limiter *LLMRateLimiter
}

// NewRateLimitedClient 包装一个客户端
func NewRateLimitedClient(inner Client, limiter *LLMRateLimiter) *RateLimitedClient {
	return &RateLimitedClient{inner: inner, limiter: limiter}
}

// estimateTokens 粗估请求 token 数：中英文混合按 4 字节一个 token，
// 再加上输出上限。
func estimateTokens(prompt string, opts *GenerateOptions) int {
	tokens := len(prompt) / 4
	if opts != nil && opts.MaxTokens > 0 {
		tokens += opts.MaxTokens
	} else {
		tokens += DefaultOptions().MaxTokens
	}
	return tokens
}

func (c *RateLimitedClient) acquire(ctx context.Context, estimated int) error {
	waited, err := c.limiter.Wait(ctx, estimated)
	if err != nil {
		return err
	}
	if waited > 100*time.Millisecond {
		metrics.LLMRateLimitWaitSeconds.WithLabelValues(c.inner.Provider()).Observe(waited.Seconds())
	}
	return nil
}

// Generate 单轮生成
func (c *RateLimitedClient) Generate(prompt string, opts *GenerateOptions) (string, error) {
	return c.GenerateWithContext(context.Background(), prompt, opts)
}

// GenerateWithContext 带上下文的单轮生成
func (c *RateLimitedClient) GenerateWithContext(ctx context.Context, prompt string, opts *GenerateOptions) (string, error) {
	estimated := estimateTokens(prompt, opts)
	if err := c.acquire(ctx, estimated); err != nil {
		return "", err
	}
	defer c.limiter.Release()

	result, err := c.inner.GenerateWithContext(ctx, prompt, opts)
	if err == nil {
		c.limiter.RecordTokenUsage(estimated)
		metrics.LLMTokensTotal.WithLabelValues(c.inner.Provider(), c.inner.Model()).Add(float64(estimated))
	}
	return result, err
}

// Chat 多轮对话
func (c *RateLimitedClient) Chat(messages []Message, opts *GenerateOptions) (string, error) {
	return c.ChatWithContext(context.Background(), messages, opts)
}

// ChatWithContext 带上下文的多轮对话
func (c *RateLimitedClient) ChatWithContext(ctx context.Context, messages []Message, opts *GenerateOptions) (string, error) {
	var promptLen int
	for _, m := range messages {
		promptLen += len(m.Content)
	}
	estimated := promptLen / 4
	if opts != nil && opts.MaxTokens > 0 {
		estimated += opts.MaxTokens
	} else {
		estimated += DefaultOptions().MaxTokens
	}

	if err := c.acquire(ctx, estimated); err != nil {
		return "", err
	}
	defer c.limiter.Release()

	result, err := c.inner.ChatWithContext(ctx, messages, opts)
	if err == nil {
		c.limiter.RecordTokenUsage(estimated)
		metrics.LLMTokensTotal.WithLabelValues(c.inner.Provider(), c.inner.Model()).Add(float64(estimated))
	}
	return result, err
}

// Model 返回当前模型名
func (c *RateLimitedClient) Model() string { return c.inner.Model() }

// Provider 返回提供商名称
func (c *RateLimitedClient) Provider() string { return c.inner.Provider() }

// SetModel 切换模型
func (c *RateLimitedClient) SetModel(model string) { c.inner.SetModel(model) }

// SetAPIKey 更新密钥
func (c *RateLimitedClient) SetAPIKey(apiKey string) { c.inner.SetAPIKey(apiKey) }
