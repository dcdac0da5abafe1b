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
	"slices"

	"github.com/cloudwego/eino/schema"
)

// Transcript 单次对话的消息记录，只追加不修改
//
// Append 返回新值，已交出的 Transcript 及其 Messages 切片不会被后续追加改写。
type Transcript struct {
	msgs []*schema.Message
}

// NewTranscript 以初始消息创建 Transcript
func NewTranscript(msgs ...*schema.Message) Transcript {
	return Transcript{}.Append(msgs...)
}

// Append 追加消息，返回新的 Transcript
func (t Transcript) Append(msgs ...*schema.Message) Transcript {
	if len(msgs) == 0 {
		return t
	}
	next := make([]*schema.Message, 0, len(t.msgs)+len(msgs))
	next = append(next, t.msgs...)
	for _, m := range msgs {
		if m != nil {
			next = append(next, m)
		}
	}
	return Transcript{msgs: next}
}

// Messages 返回消息序列的副本
func (t Transcript) Messages() []*schema.Message {
	return slices.Clone(t.msgs)
}

// Len 消息条数
func (t Transcript) Len() int {
	return len(t.msgs)
}

// Last 最后一条消息；空记录返回 nil
func (t Transcript) Last() *schema.Message {
	if len(t.msgs) == 0 {
		return nil
	}
	return t.msgs[len(t.msgs)-1]
}
