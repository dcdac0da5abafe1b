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
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"agent-chat/pkg/errors"
	"agent-chat/pkg/metrics"
	"agent-chat/pkg/tracing"
)

// instrumentedModel 为模型调用加上单次超时、耗时指标与 span，错误标记为 ErrProvider
type instrumentedModel struct {
	inner   model.ToolCallingChatModel
	timeout time.Duration
}

var _ model.ToolCallingChatModel = (*instrumentedModel)(nil)

// InstrumentModel 包装 ChatModel；timeout<=0 表示不限制单次调用
func InstrumentModel(m model.ToolCallingChatModel, timeout time.Duration) model.ToolCallingChatModel {
	if im, ok := m.(*instrumentedModel); ok {
		return &instrumentedModel{inner: im.inner, timeout: timeout}
	}
	return &instrumentedModel{inner: m, timeout: timeout}
}

func (m *instrumentedModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	ctx, span := tracing.StartModelSpan(ctx, len(input))
	start := time.Now()
	out, err := m.inner.Generate(ctx, input, opts...)
	m.observe(start, err)
	if err != nil {
		err = errors.Mark(err, errors.ErrProvider)
	}
	tracing.EndSpan(span, err)
	return out, err
}

// Stream 不施加单次超时：超时 context 必须覆盖整个读取过程，由调用方控制
func (m *instrumentedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	ctx, span := tracing.StartModelSpan(ctx, len(input))
	start := time.Now()
	out, err := m.inner.Stream(ctx, input, opts...)
	m.observe(start, err)
	if err != nil {
		err = errors.Mark(err, errors.ErrProvider)
	}
	tracing.EndSpan(span, err)
	return out, err
}

func (m *instrumentedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	bound, err := m.inner.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return &instrumentedModel{inner: bound, timeout: m.timeout}, nil
}

func (m *instrumentedModel) observe(start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ModelDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
}
