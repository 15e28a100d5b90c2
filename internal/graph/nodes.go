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

package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trip-planner/internal/commute"
	"trip-planner/internal/extract"
	"trip-planner/internal/planner"
	"trip-planner/internal/timewindow"
	"trip-planner/internal/transport"
	"trip-planner/pkg/metrics"
	"trip-planner/pkg/tracing"
)

// initialInput 接收用户输入：追加对话历史，解析时间约束与地点候选
func (e *Engine) initialInput(_ context.Context, state *planner.State) error {
	if state.UserInput == "" {
		e.logger.Warn("用户输入为空", "session_id", state.SessionID)
		return nil
	}
	state.AppendDialog("user", state.UserInput)

	parsedHard, parsedSoft := extract.ParseTimeConstraints(state.UserInput)
	if len(parsedHard) > 0 {
		state.HardConstraints = extract.MergeConstraints(state.HardConstraints, parsedHard)
		e.logger.Info("解析到硬性时间约束", "session_id", state.SessionID, "count", len(parsedHard))
	}
	if len(parsedSoft) > 0 {
		state.SoftPreferences = extract.MergePreferences(state.SoftPreferences, parsedSoft)
		e.logger.Info("解析到软性时间偏好", "session_id", state.SessionID, "count", len(parsedSoft))
	}

	candidates := extract.ExtractLocationCandidates(state.UserInput)
	if len(candidates) == 0 {
		return nil
	}

	if state.LocationCandidates == nil {
		state.LocationCandidates = make(map[string][]*planner.LocationCandidate)
	}
	for key, values := range candidates {
		existing := state.LocationCandidates[key]
		index := make(map[string]*planner.LocationCandidate, len(existing))
		for _, item := range existing {
			index[item.Text] = item
		}
		for _, candidate := range values {
			if prev, ok := index[candidate.Text]; ok {
				if candidate.Confidence > prev.Confidence {
					*prev = *candidate
				}
				continue
			}
			existing = append(existing, candidate)
			index[candidate.Text] = candidate
		}
		state.LocationCandidates[key] = existing
	}

	if state.ResolvedLocations == nil {
		state.ResolvedLocations = make(map[string]*planner.LocationCandidate)
	}
	if _, ok := state.ResolvedLocations["origin"]; !ok {
		if best := extract.SelectPrimaryLocation(state.LocationCandidates, "other"); best != nil {
			state.ResolvedLocations["origin"] = best
		}
	}
	if _, ok := state.ResolvedLocations["destination"]; !ok {
		dests := map[string][]*planner.LocationCandidate{
			"destination": state.LocationCandidates["destination"],
		}
		if best := extract.SelectPrimaryLocation(dests, "origin"); best != nil {
			state.ResolvedLocations["destination"] = best
		}
	}

	if len(candidates["destination"]) > 1 {
		names := candidateNames(candidates["destination"], 4)
		e.addAmbiguity(state, fmt.Sprintf("检测到多个目的地候选（%s），请明确要前往的具体地点。", names))
	}
	if len(candidates["origin"]) > 1 {
		names := candidateNames(candidates["origin"], 4)
		e.addAmbiguity(state, fmt.Sprintf("检测到多个出发地候选（%s），请确认实际出发地。", names))
	}
	for _, question := range extract.DetectRelativeTimeAmbiguity(state.UserInput) {
		e.addAmbiguity(state, question)
	}
	return nil
}

// intentDecompose 用规划模型抽取并合并槽位
func (e *Engine) intentDecompose(ctx context.Context, state *planner.State) error {
	prompt := intentDecomposePrompt(state.Slots, state.DialogHistory, state.UserInput, e.now())

	response, err := e.planner.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("意图分解失败: %w", err)
	}
	var update map[string]any
	if err := decodeJSONResponse(response, &update); err != nil {
		return fmt.Errorf("意图分解失败: %w", err)
	}

	if state.Slots == nil {
		state.Slots = make(map[string]any)
	}
	for key, value := range update {
		state.Slots[key] = value
	}
	e.logger.Info("槽位已更新", "session_id", state.SessionID, "slot_count", len(state.Slots))
	return nil
}

// slotValidation 用校验模型判定槽位完整性。出错时保守地标记为不完整。
func (e *Engine) slotValidation(ctx context.Context, state *planner.State) error {
	prompt := slotValidationPrompt(state.Slots, e.now())

	fail := func(err error) error {
		state.SlotsComplete = false
		state.MissingSlots = []string{"validation_error"}
		state.MissingSlotsByLevel = extract.ClassifyMissingSlots(state.MissingSlots)
		return fmt.Errorf("槽位校验失败: %w", err)
	}

	response, err := e.validator.Complete(ctx, prompt)
	if err != nil {
		return fail(err)
	}
	var result struct {
		IsValid       bool     `json:"is_valid"`
		MissingFields []string `json:"missing_fields"`
		Reason        string   `json:"reason"`
	}
	if err := decodeJSONResponse(response, &result); err != nil {
		return fail(err)
	}

	state.SlotsComplete = result.IsValid
	state.MissingSlots = result.MissingFields
	state.MissingSlotsByLevel = extract.ClassifyMissingSlots(result.MissingFields)
	state.LastValidation = &planner.ValidationResult{IsAcceptable: result.IsValid, Reason: result.Reason}

	e.logger.Info("槽位校验完成",
		"session_id", state.SessionID,
		"is_complete", state.SlotsComplete,
		"missing", strings.Join(state.MissingSlots, ","))
	return nil
}

// timeConstraint 归一化硬性约束并做可行性检查，同时生成通勤估算与缓冲建议
func (e *Engine) timeConstraint(_ context.Context, state *planner.State) error {
	if len(state.HardConstraints) == 0 {
		state.NormalizedConstraints = nil
		state.ConstraintViolated = false
		state.ViolationMessage = ""
		state.ConstraintSummary = "尚未收集到硬性时间约束。"
		return nil
	}

	if state.Risk == nil {
		state.Risk = transport.BuildRiskProfile(state.Slots)
	}

	importance := 0.5
	if state.PreferenceScore != nil {
		importance = *state.PreferenceScore
	}
	var plans []*planner.CommutePlan
	if origin, dest := state.ResolvedLocations["origin"], state.ResolvedLocations["destination"]; origin != nil || dest != nil {
		plans = append(plans, commute.BuildPlan(origin, dest, importance, nil, *state.Risk))
		state.CommutePlans = plans

		summaries := make([]string, 0, len(plans))
		for _, plan := range plans {
			summaries = append(summaries, commute.Summarize(plan))
		}
		state.CommuteSummary = strings.Join(summaries, "\n")
		state.Buffer = transport.BuildBufferPlan(plans, state.Risk)
	} else if state.CommuteSummary == "" {
		state.CommuteSummary = "尚未生成通勤估算。"
	}

	stats := timewindow.ExtractTimingStats(state.ToolResults)
	if stats.AvgDuration == nil && len(plans) > 0 {
		total := 0.0
		for _, plan := range plans {
			total += recommendedMinutes(plan)
		}
		avg := int(total / float64(len(plans)))
		stats.AvgDuration = &avg
	}

	opts := e.opts.TimeWindow
	normalized, violations := timewindow.Normalize(state.HardConstraints, opts)
	violations = append(violations, timewindow.Propagate(normalized, stats, opts)...)
	state.NormalizedConstraints = normalized
	state.ConstraintSummary = timewindow.Summarize(normalized)

	if len(violations) > 0 {
		message := timewindow.SummarizeViolations(violations)
		state.ConstraintViolated = true
		state.ViolationMessage = message
		state.FinalOutput = message
		state.LastValidation = &planner.ValidationResult{IsAcceptable: false, Reason: message}
		e.logger.Warn("时间约束不可行", "session_id", state.SessionID, "message", message)
		return nil
	}

	state.ConstraintViolated = false
	state.ViolationMessage = ""
	return nil
}

// preferenceScoring 软约束偏好评分
func (e *Engine) preferenceScoring(_ context.Context, state *planner.State) error {
	if state.ConstraintViolated {
		state.PreferenceDetails = nil
		state.PreferenceScore = nil
		state.PreferenceSummary = ""
		return nil
	}
	breakdown, aggregate := timewindow.EvaluatePreferences(state.SoftPreferences, state.NormalizedConstraints)
	state.PreferenceDetails = breakdown
	state.PreferenceScore = aggregate
	state.PreferenceSummary = timewindow.SummarizePreferences(breakdown, aggregate)
	return nil
}

// userRefinement 生成澄清提示。模型不可用时退化为缺失槽位的直白罗列。
func (e *Engine) userRefinement(ctx context.Context, state *planner.State) error {
	levels := state.MissingSlotsByLevel
	prompt := userRefinementPrompt(levels["L1"], levels["L3"], levels["others"], state.AmbiguityQuestions)

	message, err := e.planner.Complete(ctx, prompt)
	if err != nil || message == "" {
		message = "请提供以下信息：" + strings.Join(state.MissingSlots, "、")
	}

	state.AppendDialog("assistant", message)
	state.FinalOutput = message
	state.ClarifyMessage = message
	e.logger.Info("用户交互提示已生成", "session_id", state.SessionID)
	if err != nil {
		return fmt.Errorf("生成用户交互提示失败: %w", err)
	}
	return nil
}

// taskDecomposition 按完整槽位生成子任务列表
func (e *Engine) taskDecomposition(ctx context.Context, state *planner.State) error {
	prompt := taskDecompositionPrompt(state.Slots)

	fail := func(err error) error {
		state.Subtasks = nil
		return fmt.Errorf("任务分解失败: %w", err)
	}

	response, err := e.planner.Complete(ctx, prompt)
	if err != nil {
		return fail(err)
	}
	var result struct {
		Subtasks []struct {
			Task       string         `json:"task"`
			ToolName   string         `json:"tool_name"`
			Parameters map[string]any `json:"parameters"`
		} `json:"subtasks"`
	}
	if err := decodeJSONResponse(response, &result); err != nil {
		return fail(err)
	}

	subtasks := make([]*planner.Subtask, 0, len(result.Subtasks))
	for i, item := range result.Subtasks {
		params := item.Parameters
		if params == nil {
			params = make(map[string]any)
		}
		subtasks = append(subtasks, &planner.Subtask{
			ID:          fmt.Sprintf("task_%d", i),
			Description: item.Task,
			Tool:        item.ToolName,
			Parameters:  params,
			Status:      planner.StatusPending,
		})
	}
	state.Subtasks = subtasks
	state.SubtaskIndex = 0
	state.ToolResults = make(map[string]*planner.ToolExecution)

	e.logger.Info("任务已分解", "session_id", state.SessionID, "subtask_count", len(subtasks))
	return nil
}

// toolExecution 执行当前子任务对应的工具，失败信息编码在结果里
func (e *Engine) toolExecution(ctx context.Context, state *planner.State) error {
	task := state.CurrentSubtask()
	if task == nil {
		e.logger.Warn("所有任务已完成", "session_id", state.SessionID)
		return nil
	}
	if state.ToolResults == nil {
		state.ToolResults = make(map[string]*planner.ToolExecution)
	}

	task.Status = planner.StatusRunning
	e.logger.Info("执行任务", "session_id", state.SessionID, "task_id", task.ID, "tool", task.Tool)

	instance, ok := e.tools.Get(task.Tool)
	if !ok {
		errMsg := fmt.Sprintf("工具 %s 未注册", task.Tool)
		e.logger.Error(errMsg, "task_id", task.ID)
		state.ToolResults[task.ID] = &planner.ToolExecution{Status: "error", ErrorMessage: errMsg}
		task.Status = planner.StatusFailed
		metrics.ToolFailTotal.WithLabelValues(task.Tool).Inc()
		return nil
	}

	params := correctDateParams(task.Parameters, task.Tool, e.now())
	if overrides, ok := state.DynamicInstructions[task.Tool]; ok {
		merged := make(map[string]any, len(params)+len(overrides))
		for k, v := range params {
			merged[k] = v
		}
		for k, v := range overrides {
			merged[k] = v
		}
		params = merged
	}

	tctx, span := tracing.StartToolSpan(ctx, task.Tool, task.ID)
	start := time.Now()
	result := instance.Execute(tctx, params)
	metrics.ToolDuration.WithLabelValues(task.Tool).Observe(time.Since(start).Seconds())
	span.End()

	state.ToolResults[task.ID] = &planner.ToolExecution{
		Status:       result.Status,
		Data:         result.Data,
		ErrorMessage: result.ErrorMessage,
	}
	if result.Succeeded() {
		task.Status = planner.StatusSuccess
	} else {
		task.Status = planner.StatusFailed
		metrics.ToolFailTotal.WithLabelValues(task.Tool).Inc()
	}

	e.logger.Info("任务执行完成",
		"session_id", state.SessionID,
		"task_id", task.ID,
		"tool", task.Tool,
		"status", string(task.Status))
	return nil
}

// resultValidation 用校验模型判断工具结果是否可用
func (e *Engine) resultValidation(ctx context.Context, state *planner.State) error {
	task := state.CurrentSubtask()
	if task == nil {
		return nil
	}

	var raw any
	if result := state.ToolResults[task.ID]; result != nil {
		raw = result.Data
	}
	prompt := resultValidationPrompt(task.Description, raw)

	fail := func(err error) error {
		state.LastValidation = &planner.ValidationResult{
			IsAcceptable: false,
			Reason:       fmt.Sprintf("校验过程出错：%v", err),
		}
		return fmt.Errorf("结果校验失败: %w", err)
	}

	response, err := e.validator.Complete(ctx, prompt)
	if err != nil {
		return fail(err)
	}
	var result planner.ValidationResult
	if err := decodeJSONResponse(response, &result); err != nil {
		return fail(err)
	}
	state.LastValidation = &result

	e.logger.Info("结果校验完成",
		"session_id", state.SessionID,
		"task_id", task.ID,
		"is_acceptable", result.IsAcceptable)
	return nil
}

// taskScheduler 根据校验结论推进、重试或触发参数修正。
// 参数修正对每个子任务只允许触发一次，其后失败走常规重试。
func (e *Engine) taskScheduler(_ context.Context, state *planner.State) error {
	task := state.CurrentSubtask()
	if task == nil {
		e.logger.Info("所有任务已完成，进入最终整合", "session_id", state.SessionID)
		return nil
	}

	acceptable := state.LastValidation != nil && state.LastValidation.IsAcceptable
	if acceptable {
		task.Status = planner.StatusSuccess
		state.SubtaskIndex++
		if state.AllSubtasksDone() {
			e.logger.Info("所有任务执行成功，进入最终整合", "session_id", state.SessionID)
		} else {
			e.logger.Info("任务成功，继续执行下一个任务", "session_id", state.SessionID, "next_index", state.SubtaskIndex)
		}
		return nil
	}

	var data any
	var errMsg string
	if result := state.ToolResults[task.ID]; result != nil {
		data = result.Data
		errMsg = result.ErrorMessage
	}

	switch {
	case isParameterError(data, errMsg) && task.RetryCount == 0 && !task.CorrectionApplied:
		state.NeedsCorrection = true
		e.logger.Info("检测到参数错误，需要修正参数", "session_id", state.SessionID, "task_id", task.ID)
	case task.RetryCount < e.opts.MaxRetry:
		task.RetryCount++
		task.Status = planner.StatusPending
		e.logger.Info("任务校验失败，准备重试",
			"session_id", state.SessionID,
			"task_id", task.ID,
			"retry", fmt.Sprintf("%d/%d", task.RetryCount, e.opts.MaxRetry))
	default:
		task.Status = planner.StatusFailed
		state.SubtaskIndex++
		e.logger.Warn("任务超过最大重试次数，标记为失败",
			"session_id", state.SessionID,
			"task_id", task.ID)
	}
	return nil
}

// parameterCorrection 用规划模型修正失败任务的参数
func (e *Engine) parameterCorrection(ctx context.Context, state *planner.State) error {
	state.NeedsCorrection = false
	task := state.CurrentSubtask()
	if task == nil {
		return nil
	}
	task.CorrectionApplied = true

	var data any
	var errMsg string
	if result := state.ToolResults[task.ID]; result != nil {
		data = result.Data
		errMsg = result.ErrorMessage
	}
	if !isParameterError(data, errMsg) {
		return nil
	}

	errText := errMsg
	if errText == "" {
		if data != nil {
			errText = fmt.Sprintf("%v", data)
		} else {
			errText = "未知错误"
		}
	}

	prompt := parameterCorrectionPrompt(task.Description, task.Parameters, errText, e.now())
	response, err := e.planner.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("参数修正失败: %w", err)
	}
	var result struct {
		CorrectedParameters map[string]any `json:"corrected_parameters"`
		CorrectionReason    string         `json:"correction_reason"`
	}
	if err := decodeJSONResponse(response, &result); err != nil {
		return fmt.Errorf("参数修正失败: %w", err)
	}

	if len(result.CorrectedParameters) == 0 {
		e.logger.Warn("参数修正未获得有效修正", "session_id", state.SessionID, "task_id", task.ID)
		return nil
	}
	if task.Parameters == nil {
		task.Parameters = make(map[string]any)
	}
	for key, value := range result.CorrectedParameters {
		task.Parameters[key] = value
	}
	e.logger.Info("参数修正完成",
		"session_id", state.SessionID,
		"task_id", task.ID,
		"reason", result.CorrectionReason)
	return nil
}

// transportPlanning 从工具结果提炼交通方案并评分排序
func (e *Engine) transportPlanning(_ context.Context, state *planner.State) error {
	if state.ConstraintViolated {
		state.TransportCandidates = nil
		state.TransportSummary = "由于硬性时间约束不可行，交通方案被跳过。"
		return nil
	}

	toolNames := make(map[string]string, len(state.Subtasks))
	for _, task := range state.Subtasks {
		toolNames[task.ID] = task.Tool
	}
	candidates := transport.ExtractCandidates(state.ToolResults, toolNames)
	if len(candidates) == 0 {
		state.TransportCandidates = nil
		state.TransportSummary = "工具结果中没有识别出可评估的交通方案。"
		return nil
	}

	feasible, infeasible := transport.Evaluate(candidates, state.NormalizedConstraints, state.CommutePlans, state.Slots)
	state.TransportCandidates = feasible
	state.TransportSummary = transport.SummarizePlans(feasible, infeasible)

	var best *planner.TransportCandidate
	if len(feasible) > 0 {
		best = feasible[0]
	}
	state.TransferSegments = transport.BuildTransferSegments(best, state.ResolvedLocations)
	state.TransferSummary = transport.SummarizeTransfers(state.TransferSegments)
	state.PlanVariants = transport.BuildVariants(feasible)
	return nil
}

// finalIntegration 汇总所有结果生成最终方案
func (e *Engine) finalIntegration(ctx context.Context, state *planner.State) error {
	prompt := finalIntegrationPrompt(state, transport.SummarizeVariants(state.PlanVariants))

	output, err := e.planner.Complete(ctx, prompt)
	if err != nil {
		message := fmt.Sprintf("生成规划方案时出错：%v", err)
		state.FinalOutput = message
		state.LastError = message
		return fmt.Errorf("最终整合失败: %w", err)
	}

	state.FinalOutput = output
	state.AppendDialog("assistant", output)
	e.logger.Info("最终规划方案已生成", "session_id", state.SessionID)
	return nil
}

func (e *Engine) addAmbiguity(state *planner.State, question string) {
	for _, existing := range state.AmbiguityQuestions {
		if existing == question {
			return
		}
	}
	state.AmbiguityQuestions = append(state.AmbiguityQuestions, question)
}

func candidateNames(candidates []*planner.LocationCandidate, limit int) string {
	names := make([]string, 0, limit)
	for i, c := range candidates {
		if i >= limit {
			break
		}
		names = append(names, c.Text)
	}
	return strings.Join(names, ", ")
}

// recommendedMinutes 取推荐方式的耗时，缺失时退回首个方式
func recommendedMinutes(plan *planner.CommutePlan) float64 {
	for _, mode := range plan.Modes {
		if mode.Mode == plan.Recommended {
			return mode.Minutes
		}
	}
	if len(plan.Modes) > 0 {
		return plan.Modes[0].Minutes
	}
	return 0
}
