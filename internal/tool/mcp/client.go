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

// Package mcp 实现 MCP 工具服务的 JSON-RPC 2.0 客户端。
// 服务端可能返回 application/json 或 text/event-stream 两种格式，
// 客户端统一解析为 tool.Result。
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"trip-planner/internal/tool"
)

// Config MCP 客户端配置
type Config struct {
	// ServerURL 服务基础地址，末尾的 /mcp 会被剥掉再拼回请求路径
	ServerURL string

	// APIKey 凭证。InHeader 为 true 时走 Authorization 头，
	// 否则作为 key 查询参数（高德风格）
	APIKey   string
	InHeader bool

	// ConnectTimeout 建连超时，零值默认 10s
	ConnectTimeout time.Duration

	// ReadTimeout 读超时。慢速服务（酒店检索）可配到数分钟，零值默认 30s
	ReadTimeout time.Duration
}

// Client MCP JSON-RPC 客户端
type Client struct {
	serverURL string
	apiKey    string
	inHeader  bool
	http      *resty.Client
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      int       `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewClient 创建 MCP 客户端
func NewClient(cfg Config) *Client {
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
	}

	httpClient := resty.New().
		SetTransport(transport).
		SetTimeout(readTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json, text/event-stream")

	return &Client{
		serverURL: strings.TrimSuffix(strings.TrimRight(cfg.ServerURL, "/"), "/mcp"),
		apiKey:    cfg.APIKey,
		inHeader:  cfg.InHeader,
		http:      httpClient,
	}
}

// Configured 返回客户端是否已配置服务地址
func (c *Client) Configured() bool {
	return c != nil && c.serverURL != ""
}

// CallTool 调用远端工具并解析结果
func (c *Client) CallTool(ctx context.Context, toolName string, params map[string]any) tool.Result {
	if !c.Configured() {
		return tool.Errorf("MCP服务器URL未配置")
	}

	payload := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  rpcParams{Name: toolName, Arguments: params},
	}

	req := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetDoNotParseResponse(true)

	if c.apiKey != "" {
		if c.inHeader {
			key := c.apiKey
			if !strings.HasPrefix(key, "Bearer ") {
				key = "Bearer " + key
			}
			req.SetHeader("Authorization", key)
		} else {
			req.SetQueryParam("key", strings.TrimPrefix(c.apiKey, "Bearer "))
		}
	}

	resp, err := req.Post(c.serverURL + "/mcp")
	if err != nil {
		return tool.Errorf("请求失败：%v", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return tool.Errorf("HTTP %d: %s", resp.StatusCode(), resp.Status())
	}

	contentType := strings.ToLower(resp.Header().Get("Content-Type"))
	var rpc rpcResponse
	if strings.Contains(contentType, "text/event-stream") {
		raw, perr := firstSSEData(bufio.NewScanner(body))
		if perr != nil {
			return tool.Errorf("SSE流解析失败: %v", perr)
		}
		if raw == nil {
			return tool.Errorf("SSE流中没有有效数据")
		}
		if uerr := json.Unmarshal(raw, &rpc); uerr != nil {
			return tool.Errorf("JSON解析失败: %v", uerr)
		}
	} else {
		if derr := json.NewDecoder(body).Decode(&rpc); derr != nil {
			return tool.Errorf("JSON解析失败: %v", derr)
		}
	}

	return decodeRPC(rpc)
}

// firstSSEData 扫描 SSE 流，返回第一条 data 行的内容
func firstSSEData(scanner *bufio.Scanner) (json.RawMessage, error) {
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			return json.RawMessage(line[len("data: "):]), nil
		}
	}
	return nil, scanner.Err()
}

// decodeRPC 把 JSON-RPC 响应展开为 tool.Result。result.content 常见形态
// 为 [{"type":"text","text":"<JSON字符串>"}]，text 能解析为 JSON 时取解析值。
func decodeRPC(rpc rpcResponse) tool.Result {
	if rpc.Error != nil {
		return tool.Errorf("MCP错误: %s", rpc.Error.Message)
	}
	if len(rpc.Result) == 0 {
		return tool.Errorf("无法从响应中提取有效数据")
	}

	var wrapper struct {
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(rpc.Result, &wrapper); err == nil && len(wrapper.Content) > 0 {
		var blocks []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(wrapper.Content, &blocks); err == nil && len(blocks) > 0 {
			text := blocks[0].Text
			var parsed any
			if jerr := json.Unmarshal([]byte(text), &parsed); jerr == nil {
				return tool.Success(parsed)
			}
			return tool.Success(text)
		}
		var generic any
		if err := json.Unmarshal(wrapper.Content, &generic); err == nil && generic != nil {
			return tool.Success(generic)
		}
	}

	// content 缺失时整个 result 即数据
	var result any
	if err := json.Unmarshal(rpc.Result, &result); err == nil && result != nil {
		return tool.Success(result)
	}
	return tool.Errorf("无法从响应中提取有效数据")
}
