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
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileConfig 文件挂载密钥存储配置。适用于 Kubernetes / Docker
// 把 secret 挂载成文件的部署方式。
type FileConfig struct {
	// Dir 密钥挂载目录，默认 /etc/trip-planner/secrets。
	// "llm/qwen/api_key" 对应 <dir>/llm/qwen/api_key 文件的内容。
	Dir string `yaml:"dir"`
}

type fileStore struct {
	dir     string
	mu      sync.RWMutex
	overlay map[string]string // 挂载目录只读，运行期写入落在内存
}

// NewFileStore 创建文件挂载密钥存储
func NewFileStore(config FileConfig) (Store, error) {
	dir := "/etc/trip-planner/secrets"
	if config.Dir != "" {
		dir = config.Dir
	}
	if info, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("secrets dir not accessible: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("secrets dir is not a directory: %s", dir)
	}
	return &fileStore{dir: dir, overlay: make(map[string]string)}, nil
}

func (f *fileStore) keyPath(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid secret key: %s", key)
	}
	return filepath.Join(f.dir, cleaned), nil
}

func (f *fileStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.RLock()
	if val, ok := f.overlay[key]; ok {
		f.mu.RUnlock()
		return val, nil
	}
	f.mu.RUnlock()

	path, err := f.keyPath(key)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("secret not found: %s", key)
	}
	// 挂载的 secret 文件常带结尾换行
	return strings.TrimRight(string(data), "\r\n"), nil
}

func (f *fileStore) Set(ctx context.Context, key string, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overlay[key] = value
	return nil
}

func (f *fileStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.overlay, key)
	return nil
}

func (f *fileStore) List(ctx context.Context, prefix string) ([]string, error) {
	seen := map[string]bool{}
	var keys []string

	err := filepath.WalkDir(f.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		// 跳过挂载机制产生的隐藏文件（如 k8s 的 ..data 符号链接）
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(f.dir, path)
		if err != nil {
			return nil
		}
		key := filepath.ToSlash(rel)
		if prefix == "" || strings.HasPrefix(key, prefix) {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list secrets: %w", err)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for key := range f.overlay {
		if (prefix == "" || strings.HasPrefix(key, prefix)) && !seen[key] {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
