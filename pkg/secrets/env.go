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
	"os"
	"strings"
)

// envVarPrefix 约定式密钥路径映射到环境变量时的统一前缀
const envVarPrefix = "TRIP_"

type envStore struct{}

// NewEnvStore 创建环境变量密钥存储。
// 约定式路径（如 "llm/qwen/api_key"）映射为 TRIP_LLM_QWEN_API_KEY，
// 同时兼容直接按环境变量名查询。
func NewEnvStore() Store {
	return &envStore{}
}

// EnvVarName 把密钥路径转成环境变量名：大写，斜杠等非法字符折为下划线
func EnvVarName(key string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - ('a' - 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, key)
	return envVarPrefix + mapped
}

func (e *envStore) Get(ctx context.Context, key string) (string, error) {
	if value := os.Getenv(EnvVarName(key)); value != "" {
		return value, nil
	}
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("environment variable not set: %s", EnvVarName(key))
}

func (e *envStore) Set(ctx context.Context, key string, value string) error {
	return os.Setenv(EnvVarName(key), value)
}

func (e *envStore) Delete(ctx context.Context, key string) error {
	return os.Unsetenv(EnvVarName(key))
}

func (e *envStore) List(ctx context.Context, prefix string) ([]string, error) {
	want := envVarPrefix
	if prefix != "" {
		want = EnvVarName(prefix)
	}
	var keys []string
	for _, env := range os.Environ() {
		name, _, ok := strings.Cut(env, "=")
		if ok && strings.HasPrefix(name, want) {
			keys = append(keys, name)
		}
	}
	return keys, nil
}
