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
package redaction

import "strings"

// Mode 脱敏模式
type Mode string

const (
	ModePlain  Mode = "plain"  // 原样保留
	ModeRedact Mode = "redact" // 替换为 "***REDACTED***"
	ModeHash   Mode = "hash"   // 替换为 SHA256 hash
	ModeRemove Mode = "remove" // 完全移除字段
)

// ParseMode 解析配置中的模式；空串与未知值返回 false
func ParseMode(s string) (Mode, bool) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModePlain, ModeRedact, ModeHash, ModeRemove:
		return m, true
	}
	return "", false
}

// FieldMask 字段掩码
type FieldMask struct {
	Path string // 点分路径，如 "content"、"meta.arguments"
	Mode Mode
	Salt string // hash 模式可选
}

// Policy 脱敏策略：按类别（消息角色）的规则加全局规则
type Policy struct {
	Rules  map[string][]FieldMask
	Global []FieldMask
}

// Config 转写日志脱敏配置
type Config struct {
	Content string            `mapstructure:"content"` // 全部消息内容的默认模式；空则不记录内容
	Roles   map[string]string `mapstructure:"roles"`   // 按角色覆盖，如 tool: hash
	Salt    string            `mapstructure:"salt"`
}

// Fields 记录内容时受策略控制的字段
var Fields = []string{"content", "arguments"}

// PolicyFromConfig 由配置构建策略；未开启内容记录时返回 nil
func PolicyFromConfig(cfg Config) *Policy {
	def, hasDefault := ParseMode(cfg.Content)
	if !hasDefault && len(cfg.Roles) == 0 {
		return nil
	}
	p := &Policy{Rules: make(map[string][]FieldMask)}
	if !hasDefault {
		def = ModeRemove
	}
	p.Global = masks(def, cfg.Salt)
	for role, s := range cfg.Roles {
		if m, ok := ParseMode(s); ok {
			p.Rules[strings.ToLower(role)] = masks(m, cfg.Salt)
		}
	}
	return p
}

func masks(m Mode, salt string) []FieldMask {
	out := make([]FieldMask, 0, len(Fields))
	for _, f := range Fields {
		out = append(out, FieldMask{Path: f, Mode: m, Salt: salt})
	}
	return out
}
