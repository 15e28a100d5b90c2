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

// Package http 规划服务的 HTTP 接口层
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"

	"trip-planner/internal/graph"
	"trip-planner/internal/planner"
	"trip-planner/internal/session"
	"trip-planner/internal/tool/registry"
	"trip-planner/pkg/log"
	"trip-planner/pkg/metrics"
)

// Handler HTTP 处理器
type Handler struct {
	engine *graph.Engine
	store  session.Store
	tools  *registry.Registry
	logger *log.Logger
}

// NewHandler 创建 HTTP 处理器
func NewHandler(engine *graph.Engine, store session.Store, tools *registry.Registry, logger *log.Logger) *Handler {
	return &Handler{engine: engine, store: store, tools: tools, logger: logger}
}

// PlanRequest 规划请求体
type PlanRequest struct {
	SessionID string `json:"session_id"`
	UserInput string `json:"user_input"`
	// DynamicInstructions 按工具名追加/覆盖调用参数
	DynamicInstructions map[string]map[string]any `json:"dynamic_instructions,omitempty"`
}

// PlanResponse 规划响应体
type PlanResponse struct {
	SessionID string `json:"session_id"`
	// Status completed | clarify | violated
	Status        string   `json:"status"`
	Output        string   `json:"output"`
	SlotsComplete bool     `json:"is_slots_complete"`
	MissingSlots  []string `json:"missing_slots,omitempty"`
}

// HealthCheck 健康检查
// GET /api/health
func (h *Handler) HealthCheck(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"service":   "trip-planner-api",
		"version":   "0.1.0",
	})
}

// Plan 执行一轮规划对话
// POST /api/plan
func (h *Handler) Plan(c context.Context, ctx *app.RequestContext) {
	var req PlanRequest
	if err := json.Unmarshal(ctx.Request.Body(), &req); err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "请求体不是合法的 JSON"})
		return
	}
	if req.UserInput == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "user_input is required"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	state, err := h.store.LoadState(c, req.SessionID)
	if err != nil {
		h.logger.Error("加载会话状态失败", "session_id", req.SessionID, "error", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "加载会话状态失败"})
		return
	}
	if state == nil {
		state = planner.NewState(req.SessionID)
	}
	state.UserInput = req.UserInput
	if len(req.DynamicInstructions) > 0 {
		state.DynamicInstructions = req.DynamicInstructions
	}

	historyMark := len(state.DialogHistory)
	if err := h.engine.RunTurn(c, state); err != nil {
		h.logger.Error("规划执行失败", "session_id", req.SessionID, "error", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "规划执行失败"})
		return
	}
	h.appendTurnHistory(c, state, historyMark)

	status := "completed"
	switch {
	case state.ConstraintViolated:
		status = "violated"
	case !state.SlotsComplete:
		status = "clarify"
	}

	ctx.JSON(consts.StatusOK, PlanResponse{
		SessionID:     state.SessionID,
		Status:        status,
		Output:        state.FinalOutput,
		SlotsComplete: state.SlotsComplete,
		MissingSlots:  state.MissingSlots,
	})
}

// GetSession 查询会话状态
// GET /api/sessions/:id
func (h *Handler) GetSession(c context.Context, ctx *app.RequestContext) {
	id := ctx.Param("id")
	if id == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "session id is required"})
		return
	}
	state, err := h.store.LoadState(c, id)
	if err != nil {
		h.logger.Error("加载会话状态失败", "session_id", id, "error", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "加载会话状态失败"})
		return
	}
	if state == nil {
		ctx.JSON(consts.StatusNotFound, map[string]string{"error": "会话不存在"})
		return
	}
	ctx.JSON(consts.StatusOK, state)
}

// SessionHistory 查询对话历史
// GET /api/sessions/:id/history?limit=N
func (h *Handler) SessionHistory(c context.Context, ctx *app.RequestContext) {
	id := ctx.Param("id")
	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "limit 必须是非负整数"})
			return
		}
		limit = n
	}

	messages, err := h.store.History(c, id, limit)
	if err != nil {
		h.logger.Error("加载对话历史失败", "session_id", id, "error", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "加载对话历史失败"})
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{
		"session_id": id,
		"messages":   messages,
		"total":      len(messages),
	})
}

// DeleteSession 删除会话状态与历史
// DELETE /api/sessions/:id
func (h *Handler) DeleteSession(c context.Context, ctx *app.RequestContext) {
	id := ctx.Param("id")
	if err := h.store.DeleteState(c, id); err != nil {
		h.logger.Error("删除会话失败", "session_id", id, "error", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "删除会话失败"})
		return
	}
	if err := h.store.ClearHistory(c, id); err != nil {
		h.logger.Warn("清空对话历史失败", "session_id", id, "error", err)
	}
	ctx.JSON(consts.StatusOK, map[string]string{"status": "deleted", "session_id": id})
}

// SystemStatus 系统状态
// GET /api/system/status
func (h *Handler) SystemStatus(_ context.Context, ctx *app.RequestContext) {
	var tools []string
	if h.tools != nil {
		tools = h.tools.Names()
	}
	ctx.JSON(consts.StatusOK, map[string]any{
		"status":    "running",
		"timestamp": time.Now().Unix(),
		"tools":     tools,
	})
}

// SystemMetrics 导出 Prometheus 指标
// GET /api/system/metrics
func (h *Handler) SystemMetrics(_ context.Context, ctx *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "采集指标失败"})
		return
	}
	ctx.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}

// appendTurnHistory 将本轮新增的对话写入历史存储
func (h *Handler) appendTurnHistory(c context.Context, state *planner.State, mark int) {
	if mark > len(state.DialogHistory) {
		return
	}
	for _, msg := range state.DialogHistory[mark:] {
		if err := h.store.AppendHistory(c, state.SessionID, msg); err != nil {
			h.logger.Warn("写入对话历史失败", "session_id", state.SessionID, "error", err)
			return
		}
	}
}
