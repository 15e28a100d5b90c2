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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	limiter := NewLLMRateLimiter(LLMLimitConfig{RequestsPerSecond: 2, MaxConcurrent: 4})

	allowed := 0
	for i := 0; i < 10; i++ {
		if limiter.Allow() {
			allowed++
		}
	}
	assert.GreaterOrEqual(t, allowed, 2)
	assert.Less(t, allowed, 10)
}

func TestRateLimiterConcurrencyCap(t *testing.T) {
	limiter := NewLLMRateLimiter(LLMLimitConfig{RequestsPerSecond: 100, MaxConcurrent: 1})

	_, err := limiter.Wait(context.Background(), 0)
	require.NoError(t, err)

	// 第二次获取应被并发上限阻塞直到超时
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = limiter.Wait(ctx, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	limiter.Release()
	_, err = limiter.Wait(context.Background(), 0)
	assert.NoError(t, err)
	limiter.Release()
}

func TestRateLimiterStats(t *testing.T) {
	limiter := NewLLMRateLimiter(LLMLimitConfig{RequestsPerSecond: 100, MaxConcurrent: 4})

	_, err := limiter.Wait(context.Background(), 100)
	require.NoError(t, err)
	limiter.Release()
	limiter.RecordTokenUsage(128)

	stats := limiter.GetStats()
	assert.Equal(t, int64(1), stats.TotalWaits)
	assert.Equal(t, int64(128), stats.TotalTokens)
}

func TestEstimateTokens(t *testing.T) {
	opts := &GenerateOptions{MaxTokens: 100}
	assert.Equal(t, 100+len("hello世界")/4, estimateTokens("hello世界", opts))

	// 未指定 MaxTokens 时计入默认输出上限
	assert.Equal(t, DefaultOptions().MaxTokens, estimateTokens("", nil))
}
