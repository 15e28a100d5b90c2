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
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"trip-planner/internal/planner"
)

// intentDecomposePrompt 意图分解与槽位填充
func intentDecomposePrompt(slots map[string]any, history []planner.DialogMessage, userInput string, today time.Time) string {
	var historyText strings.Builder
	start := 0
	if len(history) > 10 {
		start = len(history) - 10
	}
	for _, msg := range history[start:] {
		fmt.Fprintf(&historyText, "%s: %s\n", msg.Role, msg.Content)
	}
	historyBlock := historyText.String()
	if historyBlock == "" {
		historyBlock = "（暂无历史对话）"
	}

	return fmt.Sprintf(`你是一个专业的出行规划助手。根据用户最新的输入和完整的对话历史，请识别并提取旅行规划所需的关键信息（出发地、目的地、日期、人数、偏好等）。

**重要提示：**
- 今天是 %s
- 日期必须是今天或未来的日期，不能是过去的日期
- 如果用户说"下周三"、"明天"等相对日期，请根据今天计算准确的日期

**当前已填充的槽位：**
%s

**对话历史：**
%s

**用户最新输入：**
%s

**任务要求：**
1. 仔细分析用户输入和对话历史，提取或更新槽位信息
2. 如果信息缺失，请在对应键上输出空字符串 ""
3. 日期格式必须为 YYYY-MM-DD，且必须是今天或未来的日期
4. 人数必须是正整数
5. 只输出一个完整的 JSON 对象，不要包含任何其他文字

**输出格式（JSON）：**
{
    "origin": "出发地城市名称",
    "destination": "目的地城市名称",
    "start_date": "YYYY-MM-DD",
    "end_date": "YYYY-MM-DD",
    "num_travelers": 1,
    "transportation_preference": "高铁/飞机/自驾/无偏好",
    "accommodation_preference": "经济型/五星级/民宿/无偏好"
}

请直接输出JSON对象，不要包含markdown代码块标记：`,
		today.Format("2006-01-02"), formatSlots(slots), historyBlock, userInput)
}

// slotValidationPrompt 槽位完整性校验
func slotValidationPrompt(slots map[string]any, today time.Time) string {
	return fmt.Sprintf(`你的任务是严格校验以下提供的槽位数据是否完整且合理。旅行规划的核心槽位（出发地、目的地、开始日期）必须完整。

**重要提示：**
- 今天是 %s
- 日期必须是今天或未来的日期，不能是过去的日期

**当前槽位数据：**
%s

**校验规则：**
1. 核心槽位（origin、destination、start_date）必须非空
2. 日期格式必须为 YYYY-MM-DD
3. 日期必须合理（必须是今天或未来的日期，不能是过去的日期）
4. end_date 如果存在，必须晚于 start_date
5. num_travelers 必须是正整数
6. 城市名称必须合理（不能是空字符串或明显错误）

**输出格式（JSON）：**
如果校验通过：
{
    "is_valid": true,
    "missing_fields": [],
    "reason": "所有核心槽位已填充且合理。"
}

如果校验不通过：
{
    "is_valid": false,
    "missing_fields": ["字段名1", "字段名2"],
    "reason": "详细的校验失败原因"
}

请直接输出JSON对象，不要包含markdown代码块标记：`,
		today.Format("2006-01-02"), formatSlots(slots))
}

// resultValidationPrompt 工具结果有效性校验
func resultValidationPrompt(subtaskDescription string, toolRawOutput any) string {
	outputText := fmt.Sprintf("%v", toolRawOutput)
	if data, err := json.MarshalIndent(toolRawOutput, "", "  "); err == nil {
		outputText = string(data)
	}

	return fmt.Sprintf(`请判断以下工具返回的原始数据是否有效，是否包含规划所需的关键信息。

**子任务描述：**
%s

**工具返回的原始数据：**
%s

**校验标准：**
1. 查询结果不能为空（至少包含一条有效数据）
2. 数据不能明显异常（例如，价格为0或负数、日期错误、距离为0等）
3. 必须包含完成任务所需的关键字段
4. 如果status为"error"，则校验不通过

**输出格式（JSON）：**
如果结果有效：
{
    "is_acceptable": true,
    "reason": "结果有效，包含X条可选信息。"
}

如果结果无效：
{
    "is_acceptable": false,
    "reason": "详细的失败原因，例如：查询结果为空，没有找到任何车票。"
}

请直接输出JSON对象，不要包含markdown代码块标记：`,
		subtaskDescription, outputText)
}

// taskDecompositionPrompt 按槽位生成子任务列表
func taskDecompositionPrompt(slots map[string]any) string {
	return fmt.Sprintf(`根据用户完整的出行需求，将任务分解为多个可执行的子任务。

**用户需求（槽位信息）：**
%s

**可用工具：**
1. train_query - 查询12306火车票信息
2. map_query - 查询高德地图路线规划、POI信息
3. hotel_query - 查询携程酒店信息

**任务分解要求：**
1. 根据用户需求，确定需要调用哪些工具
2. 为每个工具调用生成一个子任务
3. 每个子任务需要包含：task（任务描述）、tool_name（工具名称）、parameters（工具参数）
4. 任务应该按照逻辑顺序排列（例如：先查交通，再查住宿）

**输出格式（JSON）：**
{
    "subtasks": [
        {
            "task": "查询从北京到上海的火车票",
            "tool_name": "train_query",
            "parameters": {
                "origin": "北京",
                "destination": "上海",
                "date": "2024-01-15"
            }
        },
        {
            "task": "查询上海的酒店信息",
            "tool_name": "hotel_query",
            "parameters": {
                "city": "上海",
                "check_in": "2024-01-15",
                "check_out": "2024-01-17"
            }
        }
    ]
}

请直接输出JSON对象，不要包含markdown代码块标记：`, formatSlots(slots))
}

// finalIntegrationPrompt 汇总工具结果与各项评估生成最终方案
func finalIntegrationPrompt(state *planner.State, multiPlanSummary string) string {
	return fmt.Sprintf(`你是一个专业的出行规划助手。请根据用户需求和所有工具查询结果，生成一份完整、专业、结构化的出行规划方案。

**用户需求：**
%s

**工具查询结果：**
%s

**时间可行性分析：**
%s

**软约束偏好评分：**
%s

**通勤估算：**
%s

**交通方案评分：**
%s

**换乘与接驳计划：**
%s

**缓冲建议：**
%s

**多方案对比：**
%s

**输出要求：**
1. 生成一份完整的出行规划方案，包括：
   - 行程概览
   - 交通方案（车次、时间、价格等）
   - 住宿推荐（酒店、价格、位置等）
   - 其他建议（如路线规划、注意事项等）
2. 如果某些查询失败，请在方案中说明原因，并给出替代建议
3. 使用清晰的结构和友好的语言
4. 突出关键信息（时间、价格、地点等）

**输出格式：**
直接输出规划方案文本，不需要JSON格式。`,
		formatSlots(state.Slots),
		formatToolResults(state.ToolResults),
		orDefault(state.ConstraintSummary, "暂无约束数据"),
		orDefault(state.PreferenceSummary, "暂无偏好信息"),
		orDefault(state.CommuteSummary, "尚未生成通勤估算"),
		orDefault(state.TransportSummary, "暂无交通方案评估"),
		orDefault(state.TransferSummary, "暂无换乘信息"),
		formatBufferPlan(state.Buffer),
		orDefault(multiPlanSummary, "暂无多方案对比。"))
}

// parameterCorrectionPrompt 根据错误信息修正工具参数
func parameterCorrectionPrompt(taskDescription string, originalParameters map[string]any, errorMessage string, today time.Time) string {
	paramsJSON, err := json.MarshalIndent(originalParameters, "", "  ")
	if err != nil {
		paramsJSON = []byte("{}")
	}

	return fmt.Sprintf(`工具调用失败，需要根据错误信息修正参数。

**重要提示：**
- 今天是 %s
- 日期必须是今天或未来的日期，不能是过去的日期

**任务描述：**
%s

**原始参数：**
%s

**错误信息：**
%s

**任务要求：**
1. 仔细分析错误信息，找出参数中的问题
2. 如果是日期错误（例如"日期不能早于今天"），请将日期修正为今天或未来的日期
3. 如果是其他参数错误，请根据错误信息进行相应修正
4. 只修正有问题的参数，保留其他正确的参数
5. 如果无法确定如何修正，请保持原参数不变

**输出格式（JSON）：**
{
    "corrected_parameters": {
        "参数名1": "修正后的值1",
        "参数名2": "修正后的值2"
    },
    "correction_reason": "修正原因说明"
}

请直接输出JSON对象，不要包含markdown代码块标记：`,
		today.Format("2006-01-02"), taskDescription, paramsJSON, errorMessage)
}

// userRefinementPrompt 生成分级澄清提示
func userRefinementPrompt(criticalSlots, optionalSlots, otherSlots, ambiguityQuestions []string) string {
	joinOrNone := func(items []string) string {
		if len(items) == 0 {
			return "（无）"
		}
		return strings.Join(items, "、")
	}
	ambiguityText := "（无歧义问题）"
	if len(ambiguityQuestions) > 0 {
		lines := make([]string, 0, len(ambiguityQuestions))
		for _, item := range ambiguityQuestions {
			lines = append(lines, "- "+item)
		}
		ambiguityText = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(`请根据以下分级信息，为用户生成一个友好、清晰的提示，引导其补充必要信息和澄清歧义。优先询问 L1 关键槽位，然后再询问可选槽位；若存在歧义问题，也请单独提出澄清。

**L1 必填槽位：**
%s

**可选槽位：**
%s

**其他槽位：**
%s

**歧义问题：**
%s

**要求：**
1. 使用友好、自然的语言，逐条说明需要用户提供的信息。
2. 先处理 L1，再处理可选槽位，最后提及歧义澄清。
3. 对歧义问题给出示例，例如"请确认会议在北京哪个区或地标附近？"。
4. 保持简洁，不要过于冗长。

**输出格式：**
直接输出中文提示文本，不需要JSON格式。`,
		joinOrNone(criticalSlots), joinOrNone(optionalSlots), joinOrNone(otherSlots), ambiguityText)
}

// formatSlots 槽位转为可读文本，跳过空值
func formatSlots(slots map[string]any) string {
	keys := make([]string, 0, len(slots))
	for key := range slots {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var lines []string
	for _, key := range keys {
		value := slots[key]
		if value == nil {
			continue
		}
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("  - %s: %v", key, value))
	}
	if len(lines) == 0 {
		return "  （暂无槽位信息）"
	}
	return strings.Join(lines, "\n")
}

// formatToolResults 按任务 ID 排序输出工具结果
func formatToolResults(results map[string]*planner.ToolExecution) string {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		result := results[id]
		if result == nil {
			continue
		}
		fmt.Fprintf(&b, "\n任务ID: %s\n", id)
		fmt.Fprintf(&b, "状态: %s\n", result.Status)
		if result.Succeeded() && result.Data != nil {
			if data, err := json.MarshalIndent(result.Data, "", "  "); err == nil {
				fmt.Fprintf(&b, "数据: %s\n", data)
			}
		} else if result.ErrorMessage != "" {
			fmt.Fprintf(&b, "错误: %s\n", result.ErrorMessage)
		}
		b.WriteString(strings.Repeat("-", 50) + "\n")
	}
	return b.String()
}

func formatBufferPlan(plan *planner.BufferPlan) string {
	if plan == nil {
		return "暂无缓冲建议。"
	}
	var parts []string
	if plan.MinBuffer > 0 || plan.MaxBuffer > 0 {
		parts = append(parts, fmt.Sprintf("推荐缓冲区间：%.1f-%.1f 分钟。", plan.MinBuffer, plan.MaxBuffer))
	}
	if plan.Suggestion != "" {
		parts = append(parts, plan.Suggestion)
	}
	if len(parts) == 0 {
		return "暂无缓冲建议。"
	}
	return strings.Join(parts, " ")
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
