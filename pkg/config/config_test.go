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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
api:
  port: 9000
  host: "127.0.0.1"
log:
  level: "debug"
`
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port: got %d", cfg.API.Port)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host: got %q", cfg.API.Host)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level: got %q", cfg.Log.Level)
	}
}

func TestLoadConfig_ExpandsEnvSecrets(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "sk-llm")
	t.Setenv("TEST_TRAIN_KEY", "sk-train")
	t.Setenv("TEST_REDIS_PASS", "redis-pass")

	dir := t.TempDir()
	yaml := `
model:
  planner: "qwen"
  providers:
    qwen:
      api_key: "${TEST_LLM_KEY}"
session:
  password: "${TEST_REDIS_PASS}"
tools:
  train:
    api_key: "${TEST_TRAIN_KEY}"
    api_key_in_header: true
  hotel:
    api_key: "${UNSET_HOTEL_KEY}"
`
	path := filepath.Join(dir, "secrets.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got := cfg.Model.Providers["qwen"].APIKey; got != "sk-llm" {
		t.Errorf("provider api_key: got %q", got)
	}
	if cfg.Session.Password != "redis-pass" {
		t.Errorf("session password: got %q", cfg.Session.Password)
	}
	if cfg.Tools.Train.APIKey != "sk-train" {
		t.Errorf("train api_key: got %q", cfg.Tools.Train.APIKey)
	}
	if !cfg.Tools.Train.APIKeyInHeader {
		t.Error("train api_key_in_header should be true")
	}
	// 未设置的环境变量保持原样
	if cfg.Tools.Hotel.APIKey != "${UNSET_HOTEL_KEY}" {
		t.Errorf("hotel api_key: got %q", cfg.Tools.Hotel.APIKey)
	}
}
