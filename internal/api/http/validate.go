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

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"agent-chat/internal/runtime/eino"
	"agent-chat/pkg/errors"
)

// Issue 单条校验问题；Path 为从请求体根到出错字段的路径（字段名或数组下标）
type Issue struct {
	Code     string `json:"code"`
	Expected string `json:"expected,omitempty"`
	Received string `json:"received,omitempty"`
	Path     []any  `json:"path"`
	Message  string `json:"message"`
}

// ValidationError 请求体不符合 ChatRequest 结构，包含全部问题而非第一个
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", formatPath(is.Path), is.Message))
	}
	return "invalid request format: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return errors.ErrValidation }

// ChatRequest POST /api/chat 请求体
type ChatRequest struct {
	Content string             `json:"content"`
	History []eino.HistoryItem `json:"history"`
}

// ParseChatRequest 解析并校验请求体：content 为字符串，history 为 {role, content} 字符串对象数组。
// 未知字段忽略；空请求体按 {} 处理。
func ParseChatRequest(body []byte) (*ChatRequest, error) {
	var raw any = map[string]any{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, &ValidationError{Issues: []Issue{{
				Code:    "invalid_json",
				Path:    []any{},
				Message: "Malformed JSON: " + err.Error(),
			}}}
		}
	}

	v := &validator{}
	obj, ok := v.object(raw, nil)
	if !ok {
		return nil, v.err()
	}
	req := &ChatRequest{}
	req.Content, _ = v.str(field(obj, "content"), []any{"content"})

	if items, ok := v.array(field(obj, "history"), []any{"history"}); ok {
		req.History = make([]eino.HistoryItem, 0, len(items))
		for i, item := range items {
			path := []any{"history", i}
			m, ok := v.object(item, path)
			if !ok {
				continue
			}
			role, _ := v.str(field(m, "role"), appendPath(path, "role"))
			content, _ := v.str(field(m, "content"), appendPath(path, "content"))
			req.History = append(req.History, eino.HistoryItem{Role: role, Content: content})
		}
	}

	if len(v.issues) > 0 {
		return nil, v.err()
	}
	return req, nil
}

type validator struct {
	issues []Issue
}

func (v *validator) err() error {
	return &ValidationError{Issues: v.issues}
}

func (v *validator) typeIssue(expected string, got any, path []any) {
	received := typeName(got)
	msg := fmt.Sprintf("Expected %s, received %s", expected, received)
	if received == "undefined" {
		msg = "Required"
	}
	if path == nil {
		path = []any{}
	}
	v.issues = append(v.issues, Issue{
		Code:     "invalid_type",
		Expected: expected,
		Received: received,
		Path:     path,
		Message:  msg,
	})
}

func (v *validator) object(x any, path []any) (map[string]any, bool) {
	m, ok := x.(map[string]any)
	if !ok {
		v.typeIssue("object", x, path)
	}
	return m, ok
}

func (v *validator) array(x any, path []any) ([]any, bool) {
	a, ok := x.([]any)
	if !ok {
		v.typeIssue("array", x, path)
	}
	return a, ok
}

func (v *validator) str(x any, path []any) (string, bool) {
	s, ok := x.(string)
	if !ok {
		v.typeIssue("string", x, path)
	}
	return s, ok
}

// missing 字段不存在（区别于显式 null）
type missing struct{}

func field(m map[string]any, key string) any {
	x, ok := m[key]
	if !ok {
		return missing{}
	}
	return x
}

// typeName 缺失字段为 undefined，与前端按 received 判断的约定一致
func typeName(x any) string {
	switch x.(type) {
	case missing:
		return "undefined"
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", x)
	}
}

func appendPath(path []any, elem any) []any {
	out := make([]any, 0, len(path)+1)
	out = append(out, path...)
	return append(out, elem)
}

func formatPath(path []any) string {
	if len(path) == 0 {
		return "(root)"
	}
	parts := make([]string, 0, len(path))
	for _, p := range path {
		parts = append(parts, fmt.Sprint(p))
	}
	return strings.Join(parts, ".")
}
