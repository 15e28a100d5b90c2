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

// Package app 统一初始化：配置、日志、密钥、会话存储、工具与模型客户端，
// 供 cmd/api 装配使用，避免在 cmd 内写业务逻辑。
package app

import (
	"context"
	"fmt"
	"time"

	"trip-planner/internal/graph"
	"trip-planner/internal/model/llm"
	"trip-planner/internal/session"
	"trip-planner/internal/timewindow"
	"trip-planner/internal/tool/mcp"
	"trip-planner/internal/tool/provider"
	"trip-planner/internal/tool/registry"
	"trip-planner/pkg/config"
	"trip-planner/pkg/log"
	"trip-planner/pkg/secrets"
)

// Bootstrap 进程级依赖集合
type Bootstrap struct {
	Config       *config.Config
	Logger       *log.Logger
	Secrets      secrets.Store
	SessionStore session.Store
	Tools        *registry.Registry
	Engine       *graph.Engine
}

// NewBootstrap 根据配置装配全部依赖
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	logCfg := &log.Config{}
	if cfg != nil {
		logCfg.Level = cfg.Log.Level
		logCfg.Format = cfg.Log.Format
		logCfg.File = cfg.Log.File
	}
	logger, err := log.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	secretStore, err := secrets.NewStore(secrets.Config{
		Provider: cfg.Secrets.Provider,
		Config:   cfg.Secrets.Config,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化密钥存储失败: %w", err)
	}

	sessionStore, err := session.NewStore(ctx, cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("初始化会话存储失败: %w", err)
	}

	tools := buildToolRegistry(ctx, cfg, secretStore, logger)

	plannerClient, err := buildLLMClient(ctx, cfg, secretStore, cfg.Model.Planner)
	if err != nil {
		return nil, fmt.Errorf("初始化规划模型失败: %w", err)
	}
	validatorName := cfg.Model.Validator
	if validatorName == "" {
		validatorName = cfg.Model.Planner
	}
	validatorClient := plannerClient
	if validatorName != cfg.Model.Planner {
		validatorClient, err = buildLLMClient(ctx, cfg, secretStore, validatorName)
		if err != nil {
			return nil, fmt.Errorf("初始化校验模型失败: %w", err)
		}
	}

	engine := graph.NewEngine(
		newCompleter(cfg, cfg.Model.Planner, plannerClient),
		newCompleter(cfg, validatorName, validatorClient),
		tools,
		sessionStore,
		logger,
		graph.Options{
			MaxRetry: cfg.Planner.MaxRetry,
			MaxSteps: cfg.Planner.MaxSteps,
			TimeWindow: timewindow.Options{
				DefaultTravelDuration:   cfg.Planner.DefaultTravelDuration,
				DefaultActivityDuration: cfg.Planner.ActivityDuration,
				ActivityBuffer:          cfg.Planner.BufferMinutes,
			},
		},
	)

	return &Bootstrap{
		Config:       cfg,
		Logger:       logger,
		Secrets:      secretStore,
		SessionStore: sessionStore,
		Tools:        tools,
		Engine:       engine,
	}, nil
}

// Close 释放底层连接
func (b *Bootstrap) Close() error {
	if b.SessionStore != nil {
		return b.SessionStore.Close()
	}
	return nil
}

// buildToolRegistry 装配三个查询工具。URL 未配置的工具也注册，
// 执行时返回内置模拟数据，便于无外部依赖联调。
func buildToolRegistry(ctx context.Context, cfg *config.Config, secretStore secrets.Store, logger *log.Logger) *registry.Registry {
	connectTimeout := parseDuration(cfg.Tools.ConnectTimeout, 0)
	newMCP := func(name string, ep config.ToolEndpointConfig) *mcp.Client {
		if ep.URL == "" {
			return nil
		}
		return mcp.NewClient(mcp.Config{
			ServerURL:      ep.URL,
			APIKey:         resolveSecret(ctx, secretStore, ep.APIKey, "tools/"+name+"/api_key"),
			InHeader:       ep.APIKeyInHeader,
			ConnectTimeout: connectTimeout,
			ReadTimeout:    parseDuration(ep.Timeout, 0),
		})
	}

	reg := registry.New()
	reg.Register(provider.NewTrainTool(newMCP("train", cfg.Tools.Train), logger))
	reg.Register(provider.NewMapTool(newMCP("map", cfg.Tools.Map), logger))
	reg.Register(provider.NewHotelTool(newMCP("hotel", cfg.Tools.Hotel), logger))
	return reg
}

// buildLLMClient 创建指定 provider 的客户端并套上限流
func buildLLMClient(ctx context.Context, cfg *config.Config, secretStore secrets.Store, name string) (llm.Client, error) {
	if name == "" {
		name = "qwen"
	}
	pc := cfg.Model.Providers[name]
	apiKey := resolveSecret(ctx, secretStore, pc.APIKey, "llm/"+name+"/api_key")

	client, err := llm.NewClient(name, apiKey, pc.Model, pc.BaseURL)
	if err != nil {
		return nil, err
	}

	limitCfg := llm.LLMLimitConfig{}
	if rl, ok := cfg.RateLimits.LLM[name]; ok {
		limitCfg.RequestsPerSecond = rl.RequestsPerSecond
		limitCfg.TokensPerMinute = rl.TokensPerMinute
		limitCfg.MaxConcurrent = rl.MaxConcurrent
	}
	return llm.NewRateLimitedClient(client, llm.NewLLMRateLimiter(limitCfg)), nil
}

// newCompleter 按 provider 配置组装生成参数
func newCompleter(cfg *config.Config, name string, client llm.Client) graph.Completer {
	opts := llm.DefaultOptions()
	if pc, ok := cfg.Model.Providers[name]; ok {
		if pc.Temperature > 0 {
			opts.Temperature = pc.Temperature
		}
		if pc.MaxTokens > 0 {
			opts.MaxTokens = pc.MaxTokens
		}
	}
	return graph.NewCompleter(client, opts)
}

// resolveSecret 配置里显式给出的值优先，否则从密钥存储按约定路径取
func resolveSecret(ctx context.Context, store secrets.Store, value, key string) string {
	if value != "" {
		return value
	}
	if store == nil {
		return ""
	}
	if v, err := store.Get(ctx, key); err == nil {
		return v
	}
	return ""
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
