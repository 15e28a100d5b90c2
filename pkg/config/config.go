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
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置结构体
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Model      ModelConfig      `mapstructure:"model"`
	Session    SessionConfig    `mapstructure:"session"`
	Tools      ToolsConfig      `mapstructure:"tools"`
	Planner    PlannerConfig    `mapstructure:"planner"`
	RateLimits RateLimitsConfig `mapstructure:"rate_limits"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port    int        `mapstructure:"port"`
	Host    string     `mapstructure:"host"`
	Timeout string     `mapstructure:"timeout"`
	CORS    CORSConfig `mapstructure:"cors"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// ModelConfig 模型配置。规划与校验为两个独立角色，可指向不同提供商，
// 校验角色缺省时复用规划角色。
type ModelConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Planner   string                    `mapstructure:"planner"`   // 规划角色使用的 provider 名
	Validator string                    `mapstructure:"validator"` // 校验角色使用的 provider 名，空则与 planner 相同
}

// ProviderConfig 模型提供商配置
type ProviderConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// SessionConfig 会话存储配置
type SessionConfig struct {
	Type     string `mapstructure:"type"` // memory | redis | postgres
	Addr     string `mapstructure:"addr"` // Redis 地址
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	DSN      string `mapstructure:"dsn"` // Postgres 连接串，type=postgres 时必填
	TTL      string `mapstructure:"ttl"` // 会话过期时间，如 "1h"，空则默认 1h
}

// ToolsConfig 外部工具服务配置
type ToolsConfig struct {
	ConnectTimeout string             `mapstructure:"connect_timeout"` // 建连超时，如 "10s"
	Train          ToolEndpointConfig `mapstructure:"train"`
	Map            ToolEndpointConfig `mapstructure:"map"`
	Hotel          ToolEndpointConfig `mapstructure:"hotel"`
}

// ToolEndpointConfig 单个工具服务的端点配置。URL 为空时使用内置模拟数据。
type ToolEndpointConfig struct {
	URL     string `mapstructure:"url"`
	Timeout string `mapstructure:"timeout"` // 读超时，如 "60s"
	// APIKey 服务凭证。APIKeyInHeader 为 true 时走 Authorization 头，
	// 否则作为 key 查询参数
	APIKey         string `mapstructure:"api_key"`
	APIKeyInHeader bool   `mapstructure:"api_key_in_header"`
}

// PlannerConfig 规划引擎配置
type PlannerConfig struct {
	MaxRetry              int `mapstructure:"max_retry"`               // 子任务最大重试次数，<=0 默认 3
	MaxSteps              int `mapstructure:"max_steps"`               // 单轮图执行步数上限，<=0 默认 100
	DefaultTravelDuration int `mapstructure:"default_travel_duration"` // 城际出行缺省时长（分钟），<=0 默认 120
	ActivityDuration      int `mapstructure:"activity_duration"`       // 活动缺省时长（分钟），<=0 默认 30
	BufferMinutes         int `mapstructure:"buffer_minutes"`          // 活动间缓冲（分钟），<=0 默认 15
}

// RateLimitsConfig LLM 限流配置，按 provider 名索引
type RateLimitsConfig struct {
	LLM map[string]LLMRateLimitConfig `mapstructure:"llm"`
}

// LLMRateLimitConfig 单个 LLM Provider 的限流配置
type LLMRateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	TokensPerMinute   int     `mapstructure:"tokens_per_minute"`
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// SecretsConfig 密钥后端配置
type SecretsConfig struct {
	Provider string            `mapstructure:"provider"` // vault | file | env | memory
	Config   map[string]string `mapstructure:"config"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(&config)
	return &config, nil
}

// LoadAPIConfig 加载 API 配置（configs/config.yaml）
func LoadAPIConfig() (*Config, error) {
	return LoadConfig("configs/config.yaml")
}

// replaceEnvVars 替换配置中 ${VAR} 形式的 API Key 与密码
func replaceEnvVars(config *Config) {
	for name, provider := range config.Model.Providers {
		if v, ok := expandEnv(provider.APIKey); ok {
			provider.APIKey = v
			config.Model.Providers[name] = provider
		}
	}
	if v, ok := expandEnv(config.Session.Password); ok {
		config.Session.Password = v
	}
	if v, ok := expandEnv(config.Session.DSN); ok {
		config.Session.DSN = v
	}
	for _, ep := range []*ToolEndpointConfig{&config.Tools.Train, &config.Tools.Map, &config.Tools.Hotel} {
		if v, ok := expandEnv(ep.APIKey); ok {
			ep.APIKey = v
		}
	}
}

func expandEnv(value string) (string, bool) {
	if !strings.HasPrefix(value, "$") {
		return "", false
	}
	envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
	if val := os.Getenv(envVar); val != "" {
		return val, true
	}
	return "", false
}
