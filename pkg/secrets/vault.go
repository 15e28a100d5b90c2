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

package secrets

import (
	"context"
	"fmt"
	"strings"
	"sync"

	vault "github.com/hashicorp/vault/api"
)

// VaultConfig Vault 密钥存储配置
type VaultConfig struct {
	Address string `yaml:"address"` // Vault 地址，默认 http://localhost:8200
	Token   string `yaml:"token"`
	Mount   string `yaml:"mount"` // KV v2 挂载点，默认 "secret"
}

// vaultStore 按约定式路径读写 KV v2：
// "llm/qwen/api_key" 对应 <mount>/data/llm/qwen 下的 api_key 字段。
type vaultStore struct {
	client *vault.Client
	mount  string
	mu     sync.RWMutex
	cache  map[string]string // 本进程写入的值，避免写后读穿透
}

// NewVaultStore 创建 Vault 密钥存储
func NewVaultStore(config VaultConfig) (Store, error) {
	if config.Address == "" {
		config.Address = "http://localhost:8200"
	}

	cfg := vault.DefaultConfig()
	cfg.Address = config.Address

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Token != "" {
		client.SetToken(config.Token)
	}
	if _, err := client.Sys().Health(); err != nil {
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}

	mount := "secret"
	if config.Mount != "" {
		mount = config.Mount
	}

	return &vaultStore{
		client: client,
		mount:  mount,
		cache:  make(map[string]string),
	}, nil
}

// splitSecretKey 把 "llm/qwen/api_key" 拆成 secret 路径与字段名。
// 不含斜杠的 key 整体作为路径，字段名落到 "value"。
func splitSecretKey(key string) (path, field string) {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[:i], key[i+1:]
	}
	return key, "value"
}

func (v *vaultStore) dataPath(path string) string {
	return fmt.Sprintf("%s/data/%s", v.mount, path)
}

func (v *vaultStore) Get(ctx context.Context, key string) (string, error) {
	v.mu.RLock()
	if val, ok := v.cache[key]; ok {
		v.mu.RUnlock()
		return val, nil
	}
	v.mu.RUnlock()

	path, field := splitSecretKey(key)
	secret, err := v.client.Logical().ReadWithContext(ctx, v.dataPath(path))
	if err != nil {
		return "", fmt.Errorf("failed to read secret from vault: %w", err)
	}
	if secret == nil {
		return "", fmt.Errorf("secret not found: %s", key)
	}

	data := secret.Data
	// KV v2 把字段包在 data.data 里
	if inner, ok := data["data"].(map[string]any); ok {
		data = inner
	}
	if val, ok := data[field].(string); ok {
		return val, nil
	}
	if val, ok := data["value"].(string); ok {
		return val, nil
	}
	return "", fmt.Errorf("secret field not found: %s", key)
}

func (v *vaultStore) Set(ctx context.Context, key string, value string) error {
	path, field := splitSecretKey(key)
	payload := map[string]any{
		"data": map[string]any{field: value},
	}
	if _, err := v.client.Logical().WriteWithContext(ctx, v.dataPath(path), payload); err != nil {
		return fmt.Errorf("failed to write secret to vault: %w", err)
	}

	v.mu.Lock()
	v.cache[key] = value
	v.mu.Unlock()
	return nil
}

func (v *vaultStore) Delete(ctx context.Context, key string) error {
	path, _ := splitSecretKey(key)
	if _, err := v.client.Logical().DeleteWithContext(ctx, v.dataPath(path)); err != nil {
		return fmt.Errorf("failed to delete secret from vault: %w", err)
	}

	v.mu.Lock()
	delete(v.cache, key)
	v.mu.Unlock()
	return nil
}

func (v *vaultStore) List(ctx context.Context, prefix string) ([]string, error) {
	searchPath := fmt.Sprintf("%s/metadata", v.mount)
	if prefix != "" {
		searchPath = fmt.Sprintf("%s/metadata/%s", v.mount, strings.Trim(prefix, "/"))
	}

	secret, err := v.client.Logical().ListWithContext(ctx, searchPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list secrets from vault: %w", err)
	}
	if secret == nil {
		return nil, nil
	}

	names, ok := secret.Data["keys"].([]any)
	if !ok {
		return nil, nil
	}

	var result []string
	for _, n := range names {
		name, ok := n.(string)
		if !ok {
			continue
		}
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			name = strings.Trim(prefix, "/") + "/" + name
		}
		result = append(result, name)
	}
	return result, nil
}
