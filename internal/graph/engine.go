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

// Package graph 实现行程规划的编排状态机：节点集合是封闭的，
// 每轮从 initial_input 推进到 end，状态经由 planner.State 在节点间流转。
package graph

import (
	"context"
	"fmt"
	"time"

	"trip-planner/internal/model/llm"
	"trip-planner/internal/planner"
	"trip-planner/internal/session"
	"trip-planner/internal/timewindow"
	"trip-planner/internal/tool/registry"
	"trip-planner/pkg/errors"
	"trip-planner/pkg/log"
	"trip-planner/pkg/metrics"
	"trip-planner/pkg/tracing"
)

// Node 状态机节点标识
type Node string

const (
	NodeInitialInput        Node = "initial_input"
	NodeIntentDecompose     Node = "intent_decompose"
	NodeSlotValidation      Node = "slot_validation"
	NodeTimeConstraint      Node = "time_constraint"
	NodePreferenceScoring   Node = "preference_scoring"
	NodeUserRefinement      Node = "user_refinement"
	NodeTaskDecomposition   Node = "task_decomposition"
	NodeToolExecution       Node = "tool_execution"
	NodeResultValidation    Node = "result_validation"
	NodeTaskScheduler       Node = "task_scheduler"
	NodeParameterCorrection Node = "parameter_correction"
	NodeTransportPlanning   Node = "transport_planning"
	NodeFinalIntegration    Node = "final_integration"
	NodeEnd                 Node = "end"
)

// Completer 节点对模型的最小依赖：一段提示词换一段文本
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type clientCompleter struct {
	client llm.Client
	opts   *llm.GenerateOptions
}

// NewCompleter 将 llm.Client 适配为 Completer，opts 为 nil 时用默认参数
func NewCompleter(client llm.Client, opts *llm.GenerateOptions) Completer {
	if opts == nil {
		opts = llm.DefaultOptions()
	}
	return &clientCompleter{client: client, opts: opts}
}

func (c *clientCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return c.client.GenerateWithContext(ctx, prompt, c.opts)
}

// Options 引擎行为参数
type Options struct {
	// MaxRetry 单个子任务校验失败后的最大重试次数
	MaxRetry int
	// MaxSteps 单轮允许经过的节点数上限，防止调度回路失控
	MaxSteps int
	// TimeWindow 时间约束引擎参数，零值由 timewindow 包补齐
	TimeWindow timewindow.Options
}

// DefaultOptions 引擎默认参数
func DefaultOptions() Options {
	opts := Options{MaxRetry: 3, MaxSteps: 100}
	return opts
}

func (o Options) withFallback() Options {
	d := DefaultOptions()
	if o.MaxRetry <= 0 {
		o.MaxRetry = d.MaxRetry
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = d.MaxSteps
	}
	return o
}

// Engine 规划编排引擎。planner 承担意图分解、任务分解、参数修正与最终整合，
// validator 承担槽位校验与结果校验，两者可指向同一个模型。
type Engine struct {
	planner   Completer
	validator Completer
	tools     *registry.Registry
	store     session.Store
	logger    *log.Logger
	opts      Options

	// now 可注入，日期修正与提示词里的"今天"都从这里取
	now func() time.Time
}

// NewEngine 创建引擎。store 可为 nil，此时状态只在内存中流转不持久化。
func NewEngine(plannerLLM, validatorLLM Completer, tools *registry.Registry, store session.Store, logger *log.Logger, opts Options) *Engine {
	return &Engine{
		planner:   plannerLLM,
		validator: validatorLLM,
		tools:     tools,
		store:     store,
		logger:    logger,
		opts:      opts.withFallback(),
		now:       time.Now,
	}
}

// RunTurn 执行一轮完整的规划对话。state.UserInput 为本轮用户输入，
// 返回时 state.FinalOutput 为本轮应答（规划方案、澄清提示或违规说明）。
func (e *Engine) RunTurn(ctx context.Context, state *planner.State) error {
	ctx, span := tracing.StartTurnSpan(ctx, state.SessionID)
	defer span.End()
	start := time.Now()

	node := NodeInitialInput
	terminal := node
	for steps := 0; node != NodeEnd; steps++ {
		if steps >= e.opts.MaxSteps {
			metrics.TurnTotal.WithLabelValues("failed").Inc()
			e.logger.Error("节点步数超限", "session_id", state.SessionID, "steps", steps)
			return errors.ErrMaxStepsExceeded
		}
		terminal = node
		node = e.runNode(ctx, node, state)
		e.persist(ctx, state)
	}

	status := e.turnStatus(state)
	metrics.TurnTotal.WithLabelValues(status).Inc()
	metrics.TurnDuration.WithLabelValues(string(terminal)).Observe(time.Since(start).Seconds())
	e.logger.Info("规划轮次结束",
		"session_id", state.SessionID,
		"terminal_node", string(terminal),
		"status", status,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// runNode 执行单个节点并返回下一个节点
func (e *Engine) runNode(ctx context.Context, node Node, state *planner.State) Node {
	nctx, span := tracing.StartNodeSpan(ctx, string(node))
	defer span.End()
	start := time.Now()

	err := e.execNode(nctx, node, state)
	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		e.logger.Error("节点执行失败", "node", string(node), "session_id", state.SessionID, "error", err)
	}
	metrics.NodeTotal.WithLabelValues(string(node), status).Inc()
	metrics.NodeDuration.WithLabelValues(string(node)).Observe(time.Since(start).Seconds())

	return e.route(node, state)
}

func (e *Engine) execNode(ctx context.Context, node Node, state *planner.State) error {
	switch node {
	case NodeInitialInput:
		return e.initialInput(ctx, state)
	case NodeIntentDecompose:
		return e.intentDecompose(ctx, state)
	case NodeSlotValidation:
		return e.slotValidation(ctx, state)
	case NodeTimeConstraint:
		return e.timeConstraint(ctx, state)
	case NodePreferenceScoring:
		return e.preferenceScoring(ctx, state)
	case NodeUserRefinement:
		return e.userRefinement(ctx, state)
	case NodeTaskDecomposition:
		return e.taskDecomposition(ctx, state)
	case NodeToolExecution:
		return e.toolExecution(ctx, state)
	case NodeResultValidation:
		return e.resultValidation(ctx, state)
	case NodeTaskScheduler:
		return e.taskScheduler(ctx, state)
	case NodeParameterCorrection:
		return e.parameterCorrection(ctx, state)
	case NodeTransportPlanning:
		return e.transportPlanning(ctx, state)
	case NodeFinalIntegration:
		return e.finalIntegration(ctx, state)
	default:
		return fmt.Errorf("未知节点: %s", node)
	}
}

// route 读取节点执行后的状态决定下一跳
func (e *Engine) route(node Node, state *planner.State) Node {
	switch node {
	case NodeInitialInput:
		return NodeIntentDecompose
	case NodeIntentDecompose:
		return NodeSlotValidation
	case NodeSlotValidation:
		if state.SlotsComplete {
			return NodeTimeConstraint
		}
		return NodeUserRefinement
	case NodeTimeConstraint:
		if state.ConstraintViolated {
			metrics.ConstraintViolationTotal.Inc()
			return NodeEnd
		}
		return NodePreferenceScoring
	case NodePreferenceScoring:
		return NodeTaskDecomposition
	case NodeUserRefinement:
		return NodeEnd
	case NodeTaskDecomposition:
		if len(state.Subtasks) == 0 {
			return NodeTransportPlanning
		}
		return NodeToolExecution
	case NodeToolExecution:
		return NodeResultValidation
	case NodeResultValidation:
		return NodeTaskScheduler
	case NodeTaskScheduler:
		if state.NeedsCorrection {
			return NodeParameterCorrection
		}
		if !state.AllSubtasksDone() {
			return NodeToolExecution
		}
		return NodeTransportPlanning
	case NodeParameterCorrection:
		return NodeToolExecution
	case NodeTransportPlanning:
		return NodeFinalIntegration
	case NodeFinalIntegration:
		return NodeEnd
	}
	return NodeEnd
}

func (e *Engine) turnStatus(state *planner.State) string {
	switch {
	case state.ConstraintViolated:
		return "violated"
	case !state.SlotsComplete:
		return "clarify"
	case state.LastError != "":
		return "failed"
	default:
		return "completed"
	}
}

func (e *Engine) persist(ctx context.Context, state *planner.State) {
	if e.store == nil {
		return
	}
	state.UpdatedAt = e.now()
	if err := e.store.SaveState(ctx, state.SessionID, state); err != nil {
		e.logger.Warn("状态持久化失败", "session_id", state.SessionID, "error", err)
	}
}
