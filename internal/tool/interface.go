// Package tool 定义查询工具接口。工具执行失败不返回 error，
// 而是编码在 Result.Status 中，由结果校验节点统一判定重试或纠偏。
package tool

import (
	"context"
	"fmt"
)

// Schema 表示工具的 JSON Schema（供 LLM 任务拆解使用）
type Schema struct {
	Type        string                    `json:"type,omitempty"`
	Description string                    `json:"description,omitempty"`
	Properties  map[string]SchemaProperty `json:"properties,omitempty"`
	Required    []string                  `json:"required,omitempty"`
}

// SchemaProperty 表示 Schema 中单个属性的描述
type SchemaProperty struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// Result 工具执行结果
type Result struct {
	Status       string `json:"status"` // success | error
	Data         any    `json:"data"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Succeeded 判断执行是否成功
func (r Result) Succeeded() bool {
	return r.Status == "success"
}

// Success 构造成功结果
func Success(data any) Result {
	return Result{Status: "success", Data: data}
}

// Errorf 构造失败结果
func Errorf(format string, args ...any) Result {
	return Result{Status: "error", ErrorMessage: fmt.Sprintf(format, args...)}
}

// Tool 查询工具接口
type Tool interface {
	Name() string
	Description() string
	Schema() Schema

	// ValidateParams 检查参数完整性，返回首个缺失或非法的原因
	ValidateParams(params map[string]any) error

	// Execute 执行查询。参数非法或下游失败均体现在 Result 中
	Execute(ctx context.Context, params map[string]any) Result
}
