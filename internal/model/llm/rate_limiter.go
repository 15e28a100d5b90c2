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
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LLMLimitConfig 限流配置
type LLMLimitConfig struct {
	// RequestsPerSecond 每秒请求数上限
	RequestsPerSecond float64

	// TokensPerMinute 每分钟 token 上限，0 表示不限
	TokensPerMinute int

	// MaxConcurrent 并发请求上限
	MaxConcurrent int
}

// DefaultLLMLimitConfig 默认限流配置
func DefaultLLMLimitConfig() LLMLimitConfig {
	return LLMLimitConfig{
		RequestsPerSecond: 5,
		TokensPerMinute:   100000,
		MaxConcurrent:     10,
	}
}

// LLMRateLimiter 面向单个提供商的限流器，同时控制请求速率、
// token 预算和并发数。
type LLMRateLimiter struct {
	requestLimiter *rate.Limiter
	tokenLimiter   *rate.Limiter
	semaphore      chan struct{}

	mu           sync.Mutex
	totalWaits   int64
	totalWaitDur time.Duration
	totalTokens  int64
}

// NewLLMRateLimiter 创建限流器
func NewLLMRateLimiter(cfg LLMLimitConfig) *LLMRateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultLLMLimitConfig().RequestsPerSecond
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultLLMLimitConfig().MaxConcurrent
	}

	l := &LLMRateLimiter{
		requestLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)+1),
		semaphore:      make(chan struct{}, cfg.MaxConcurrent),
	}
	if cfg.TokensPerMinute > 0 {
		perSecond := rate.Limit(float64(cfg.TokensPerMinute) / 60.0)
		l.tokenLimiter = rate.NewLimiter(perSecond, cfg.TokensPerMinute)
	}
	return l
}

// Wait 阻塞直到获得请求许可。estimatedTokens 为本次请求预计消耗的
// token 数，用于 token 预算限流。调用方拿到许可后必须调用 Release。
func (l *LLMRateLimiter) Wait(ctx context.Context, estimatedTokens int) (time.Duration, error) {
	start := time.Now()

	select {
	case l.semaphore <- struct{}{}:
	case <-ctx.Done():
		return time.Since(start), ctx.Err()
	}

	if err := l.requestLimiter.Wait(ctx); err != nil {
		<-l.semaphore
		return time.Since(start), err
	}

	if l.tokenLimiter != nil && estimatedTokens > 0 {
		burst := l.tokenLimiter.Burst()
		if estimatedTokens > burst {
			estimatedTokens = burst
		}
		if err := l.tokenLimiter.WaitN(ctx, estimatedTokens); err != nil {
			<-l.semaphore
			return time.Since(start), err
		}
	}

	waited := time.Since(start)
	l.mu.Lock()
	l.totalWaits++
	l.totalWaitDur += waited
	l.mu.Unlock()
	return waited, nil
}

// Release 归还并发许可
func (l *LLMRateLimiter) Release() {
	select {
	case <-l.semaphore:
	default:
	}
}

// Allow 非阻塞检查是否允许立即发起请求
func (l *LLMRateLimiter) Allow() bool {
	return l.requestLimiter.Allow()
}

// RecordTokenUsage 记录实际消耗的 token 数
func (l *LLMRateLimiter) RecordTokenUsage(tokens int) {
	l.mu.Lock()
	l.totalTokens += int64(tokens)
	l.mu.Unlock()
}

// LimiterStats 限流统计
type LimiterStats struct {
	TotalWaits    int64
	AvgWaitMillis float64
	TotalTokens   int64
}

// GetStats 返回累计统计
func (l *LLMRateLimiter) GetStats() LimiterStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := LimiterStats{
		TotalWaits:  l.totalWaits,
		TotalTokens: l.totalTokens,
	}
	if l.totalWaits > 0 {
		stats.AvgWaitMillis = float64(l.totalWaitDur.Milliseconds()) / float64(l.totalWaits)
	}
	return stats
}

// String 便于日志输出
func (s LimiterStats) String() string {
	return fmt.Sprintf("waits=%d avg_wait=%.1fms tokens=%d", s.TotalWaits, s.AvgWaitMillis, s.TotalTokens)
}
