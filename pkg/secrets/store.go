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

// Package secrets 提供 API 密钥等敏感配置的统一读取接口。
// 所有后端共用约定式路径，如 "llm/qwen/api_key"、"tools/train/api_key"。
package secrets

import (
	"context"
	"fmt"
)

// Store 密钥存储接口
type Store interface {
	// Get 按约定式路径读取密钥
	Get(ctx context.Context, key string) (string, error)

	// Set 写入密钥
	Set(ctx context.Context, key string, value string) error

	// Delete 删除密钥
	Delete(ctx context.Context, key string) error

	// List 列出指定前缀下的密钥
	List(ctx context.Context, prefix string) ([]string, error)
}

// Config 密钥存储配置
type Config struct {
	Provider string            `yaml:"provider"` // vault | file | env | memory
	Config   map[string]string `yaml:"config"`
}

// NewStore 按配置创建密钥存储
func NewStore(config Config) (Store, error) {
	switch config.Provider {
	case "", "memory":
		return NewMemoryStore(), nil
	case "env":
		return NewEnvStore(), nil
	case "vault":
		return NewVaultStore(VaultConfig{
			Address: config.Config["address"],
			Token:   config.Config["token"],
			Mount:   config.Config["mount"],
		})
	case "file":
		return NewFileStore(FileConfig{
			Dir: config.Config["dir"],
		})
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", config.Provider)
	}
}
