// Copyright 2026 fanjia1024
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

package builtin

import (
	"context"
	"fmt"

	"agent-chat/internal/tool"
	"agent-chat/internal/tool/shell"
	"agent-chat/pkg/errors"
)

// RunCommandName run_command 工具名
const RunCommandName = "run_command"

// RunCommandTool 实现 run_command：把模型给出的命令原样交给 shell 执行，返回 stdout。
// 没有结构性的安全检查；是否执行危险命令只由系统提示词约束（见 shell 包说明）
type RunCommandTool struct {
	exec shell.Executor
}

// NewRunCommandTool 创建 run_command 工具
func NewRunCommandTool(exec shell.Executor) *RunCommandTool {
	return &RunCommandTool{exec: exec}
}

// Name 实现 tool.Tool
func (t *RunCommandTool) Name() string { return RunCommandName }

// Description 实现 tool.Tool
func (t *RunCommandTool) Description() string { return "Run a command" }

// Schema 实现 tool.Tool
func (t *RunCommandTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"command": {Type: "string", Description: "shell command to execute"},
		},
		Required: []string{"command"},
	}
}

// Execute 实现 tool.Tool。参数不合法写入 ToolResult.Err（交还模型修正，不计为执行失败）；
// 命令失败返回 ErrToolExecution 分类的错误
func (t *RunCommandTool) Execute(ctx context.Context, input map[string]any) (tool.ToolResult, error) {
	raw, ok := input["command"]
	if !ok {
		return tool.ToolResult{Err: fmt.Sprintf("missing required argument %q", "command")}, nil
	}
	command, ok := raw.(string)
	if !ok {
		return tool.ToolResult{Err: fmt.Sprintf("argument %q must be a string, got %T", "command", raw)}, nil
	}
	out, err := t.exec.Run(ctx, command)
	if err != nil {
		return tool.ToolResult{}, errors.Mark(err, errors.ErrToolExecution)
	}
	return tool.ToolResult{Content: out}, nil
}
