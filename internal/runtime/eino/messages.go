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

package eino

import (
	"github.com/cloudwego/eino/schema"
)

// HistoryItem 客户端回传的一条历史消息
type HistoryItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildMessages 组装初始消息序列：system prompt、历史（原序）、本轮 user 消息
//
// 系统提示只在这里出现一次，Agent 不会再次注入。systemPrompt 为空时省略。
func BuildMessages(systemPrompt string, history []HistoryItem, content string) []*schema.Message {
	out := make([]*schema.Message, 0, len(history)+2)
	if systemPrompt != "" {
		out = append(out, schema.SystemMessage(systemPrompt))
	}
	for _, h := range history {
		out = append(out, &schema.Message{Role: historyRoleToSchema(h.Role), Content: h.Content})
	}
	out = append(out, schema.UserMessage(content))
	return out
}

// historyRoleToSchema 已知角色映射为 schema 角色，其他字符串原样透传，顺序是否合法交给模型提供方判断
func historyRoleToSchema(role string) schema.RoleType {
	switch role {
	case "user":
		return schema.User
	case "assistant":
		return schema.Assistant
	case "system":
		return schema.System
	case "tool":
		return schema.Tool
	default:
		return schema.RoleType(role)
	}
}
