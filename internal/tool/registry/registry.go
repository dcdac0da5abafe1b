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

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"agent-chat/internal/tool"
)

// Registry 工具注册表：按名称解析模型请求的工具。启动时注册，之后只读
type Registry struct {
	mu    sync.RWMutex
	tools map[string]tool.Tool
	order []string
}

// New 创建新的 ToolRegistry
func New() *Registry {
	return &Registry{
		tools: make(map[string]tool.Tool),
	}
}

// Register 注册工具；同名重复注册返回错误
func (r *Registry) Register(t tool.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())
	return nil
}

// Get 按名称获取工具
func (r *Registry) Get(name string) (tool.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List 按注册顺序返回所有工具
func (r *Registry) List() []tool.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tool.Tool, 0, len(r.order))
	for _, name := range r.order {
		list = append(list, r.tools[name])
	}
	return list
}

// Names 按注册顺序返回工具名
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// ToolSchemaForLLM 单个工具供 LLM 使用的描述（name, description, parameters）
type ToolSchemaForLLM struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  tool.Schema `json:"parameters"`
}

// SchemasForLLM 返回所有工具的 Schema 列表（JSON）
func (r *Registry) SchemasForLLM() ([]byte, error) {
	list := make([]ToolSchemaForLLM, 0)
	for _, t := range r.List() {
		list = append(list, ToolSchemaForLLM{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return json.Marshal(list)
}

// UnknownToolResult 未注册工具的调用结果（作为 tool 消息回传给模型，不中断循环）
func (r *Registry) UnknownToolResult(_ context.Context, name, _ string) (string, error) {
	return ErrorContent(fmt.Errorf("tool %q is not registered; available tools: %v", name, r.Names())), nil
}

// ErrorContent 工具失败时 tool 消息的内容格式
func ErrorContent(err error) string {
	return "Error: " + err.Error()
}
