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

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// RedactedValue redact 模式的替换值
const RedactedValue = "***REDACTED***"

// Engine 脱敏引擎
type Engine struct {
	policy *Policy
}

// NewEngine 创建脱敏引擎；policy 为 nil 时返回 nil
func NewEngine(policy *Policy) *Engine {
	if policy == nil {
		return nil
	}
	return &Engine{policy: policy}
}

// rules 类别规则优先，同一路径不再应用全局规则
func (e *Engine) rules(kind string) []FieldMask {
	specific := e.policy.Rules[strings.ToLower(kind)]
	seen := make(map[string]bool, len(specific))
	out := make([]FieldMask, 0, len(specific)+len(e.policy.Global))
	for _, r := range specific {
		seen[r.Path] = true
		out = append(out, r)
	}
	for _, r := range e.policy.Global {
		if !seen[r.Path] {
			out = append(out, r)
		}
	}
	return out
}

// Apply 对对象原地应用 kind 对应的规则
func (e *Engine) Apply(kind string, obj map[string]any) {
	if e == nil || obj == nil {
		return
	}
	for _, rule := range e.rules(kind) {
		applyFieldMask(obj, rule)
	}
}

// RedactData 对 JSON 对象应用脱敏策略
func (e *Engine) RedactData(kind string, data []byte) ([]byte, error) {
	if e == nil || len(data) == 0 {
		return data, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return data, err
	}
	e.Apply(kind, obj)
	return json.Marshal(obj)
}

func applyFieldMask(obj map[string]any, mask FieldMask) {
	parts := strings.Split(mask.Path, ".")
	current := obj
	for _, p := range parts[:len(parts)-1] {
		next, ok := current[p].(map[string]any)
		if !ok {
			return
		}
		current = next
	}
	last := parts[len(parts)-1]
	value, exists := current[last]
	if !exists {
		return
	}
	switch mask.Mode {
	case ModeRedact:
		current[last] = RedactedValue
	case ModeHash:
		current[last] = hashValue(fmt.Sprintf("%v", value), mask.Salt)
	case ModeRemove:
		delete(current, last)
	}
}

func hashValue(value, salt string) string {
	h := sha256.New()
	h.Write([]byte(value))
	if salt != "" {
		h.Write([]byte(salt))
	}
	return "hash:" + hex.EncodeToString(h.Sum(nil))
}
