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

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"trip-planner/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}
	cmd := os.Args[1]
	args := os.Args[2:]
	switch cmd {
	case "version":
		fmt.Println("trip-planner cli 0.1.0")
	case "health":
		fmt.Println("ok")
	case "config":
		runConfig()
	case "server":
		if len(args) > 0 && args[0] == "start" {
			runServerStart()
		} else {
			fmt.Fprintf(os.Stderr, "Usage: trip server start\n")
			os.Exit(1)
		}
	case "chat":
		runChat(args, os.Stdin, os.Stdout)
	case "session":
		if len(args) < 1 {
			fmt.Fprintf(os.Stderr, "Usage: trip session <session_id>\n")
			os.Exit(1)
		}
		runSession(args[0])
	case "history":
		if len(args) < 1 {
			fmt.Fprintf(os.Stderr, "Usage: trip history <session_id> [limit]\n")
			os.Exit(1)
		}
		runHistory(args)
	case "delete":
		if len(args) < 1 {
			fmt.Fprintf(os.Stderr, "Usage: trip delete <session_id>\n")
			os.Exit(1)
		}
		runDelete(args[0])
	case "status":
		runStatus()
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: trip <command> [args]")
	fmt.Println("  version               - 显示版本")
	fmt.Println("  health                - 健康检查")
	fmt.Println("  config                - 显示配置概要")
	fmt.Println("  server start          - 启动 API 服务（go run ./cmd/api）")
	fmt.Println("  chat [session_id]     - 交互式行程规划（未传时创建新会话）")
	fmt.Println("  session <session_id>  - 输出会话状态")
	fmt.Println("  history <session_id> [limit] - 输出对话历史")
	fmt.Println("  delete <session_id>   - 删除会话")
	fmt.Println("  status                - 输出服务状态与已注册工具")
}

func runConfig() {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("api.port=%d\n", cfg.API.Port)
	fmt.Printf("api.host=%s\n", cfg.API.Host)
	fmt.Printf("model.planner=%s\n", cfg.Model.Planner)
	fmt.Printf("session.type=%s\n", cfg.Session.Type)
}

func runServerStart() {
	c := exec.Command("go", "run", "./cmd/api")
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Dir = "."
	if err := c.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "server start: %v\n", err)
		os.Exit(1)
	}
}

// runChat 在同一会话中持续对话。服务返回 clarify 时继续补充信息，
// 返回 completed 或 violated 后仍可继续调整行程。
func runChat(args []string, in io.Reader, out io.Writer) {
	sessionID := os.Getenv("TRIP_SESSION_ID")
	if len(args) > 0 {
		sessionID = args[0]
	}
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		msg := strings.TrimSpace(line)
		if msg == "" {
			continue
		}
		if msg == "exit" || msg == "quit" {
			break
		}
		resp, err := postPlan(sessionID, msg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "发送失败: %v\n", err)
			continue
		}
		if sessionID == "" {
			sessionID = resp.SessionID
			fmt.Fprintf(out, "会话: %s\n", sessionID)
		}
		fmt.Fprintln(out, renderTurn(resp))
	}
}

// renderTurn 渲染单轮应答
func renderTurn(resp *planResponse) string {
	var b strings.Builder
	switch resp.Status {
	case "clarify":
		b.WriteString("[需补充信息]\n")
	case "violated":
		b.WriteString("[时间约束不可行]\n")
	case "failed":
		b.WriteString("[执行失败]\n")
	}
	b.WriteString(resp.Output)
	if len(resp.MissingSlots) > 0 {
		b.WriteString("\n缺失槽位: " + strings.Join(resp.MissingSlots, ", "))
	}
	return b.String()
}

func runSession(sessionID string) {
	state, err := getSession(sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取会话失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(state))
}

func runHistory(args []string) {
	limit := 0
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "limit 必须是整数: %v\n", err)
			os.Exit(1)
		}
		limit = n
	}
	history, err := getHistory(args[0], limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取历史失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(history))
}

func runDelete(sessionID string) {
	out, err := deleteSession(sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "删除失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(out))
}

func runStatus() {
	status, err := getSystemStatus()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取状态失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(status))
}
