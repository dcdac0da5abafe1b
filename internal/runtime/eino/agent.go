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
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"agent-chat/internal/tool/registry"
	"agent-chat/pkg/errors"
	"agent-chat/pkg/log"
	"agent-chat/pkg/metrics"
)

const (
	// GraphName 编译后图的名称，Eino Dev 中按此名称展示
	GraphName = "chat_agent"

	nodeModel  = "model"
	nodeTools  = "tools"
	nodeFinish = "finish"

	// DefaultMaxTurns 未配置时单次请求允许的模型调用次数上限
	DefaultMaxTurns = 25
)

// LoopState Agent 循环阶段
type LoopState string

const (
	StateModel LoopState = "MODEL"
	StateTools LoopState = "TOOLS"
	StateDone  LoopState = "DONE"
)

// NextState 模型回复后的转移：带工具调用进入 TOOLS，否则 DONE。TOOLS 之后总是回到 MODEL。
func NextState(reply *schema.Message) LoopState {
	if reply != nil && len(reply.ToolCalls) > 0 {
		return StateTools
	}
	return StateDone
}

// AgentConfig Agent 配置
type AgentConfig struct {
	Model        model.ToolCallingChatModel
	Tools        *registry.Registry
	MaxTurns     int
	ModelTimeout time.Duration
	Logger       *log.Logger
}

// Result 一次运行的最终 Transcript；Messages 最后一条即最终回复
type Result struct {
	Messages []*schema.Message
	Turns    int
}

// Reply 最终回复文本
func (r *Result) Reply() string {
	if r == nil || len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Content
}

// loopState 图本地状态，每次 Invoke 独立
type loopState struct {
	Transcript Transcript
	Turns      int
}

// Agent MODEL ⇄ TOOLS 循环，编译一次，可被多个请求并发调用
type Agent struct {
	runnable compose.Runnable[[]*schema.Message, *Result]
	maxTurns int
	logger   *log.Logger
}

// NewAgent 构建并编译 Agent 图
func NewAgent(ctx context.Context, cfg *AgentConfig) (*Agent, error) {
	if cfg == nil || cfg.Model == nil {
		return nil, errors.Wrap(errors.ErrInvalidArg, "agent requires a chat model")
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	reg := cfg.Tools
	if reg == nil {
		reg = registry.New()
	}

	graph, err := buildGraph(ctx, cfg.Model, reg, cfg.ModelTimeout, maxTurns, logger)
	if err != nil {
		return nil, err
	}
	runnable, err := graph.Compile(ctx,
		compose.WithGraphName(GraphName),
		compose.WithNodeTriggerMode(compose.AnyPredecessor),
		compose.WithMaxRunSteps(2*maxTurns+2),
	)
	if err != nil {
		return nil, fmt.Errorf("compile agent graph failed: %w", err)
	}
	return &Agent{runnable: runnable, maxTurns: maxTurns, logger: logger}, nil
}

func buildGraph(ctx context.Context, chatModel model.ToolCallingChatModel, reg *registry.Registry, timeout time.Duration, maxTurns int, logger *log.Logger) (*compose.Graph[[]*schema.Message, *Result], error) {
	bound := InstrumentModel(chatModel, timeout)
	if infos := reg.ToolInfos(); len(infos) > 0 {
		var err error
		bound, err = bound.WithTools(infos)
		if err != nil {
			return nil, fmt.Errorf("bind tools to chat model failed: %w", err)
		}
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               reg.EinoTools(logger),
		UnknownToolsHandler: reg.UnknownToolResult,
		ExecuteSequentially: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create tools node failed: %w", err)
	}

	g := compose.NewGraph[[]*schema.Message, *Result](
		compose.WithGenLocalState(func(ctx context.Context) *loopState {
			return &loopState{}
		}),
	)

	modelPre := func(ctx context.Context, in []*schema.Message, st *loopState) ([]*schema.Message, error) {
		if st.Turns == 0 {
			st.Transcript = NewTranscript(in...)
		}
		if st.Turns >= maxTurns {
			return nil, fmt.Errorf("%w (%d)", errors.ErrMaxTurns, maxTurns)
		}
		st.Turns++
		logger.Debug("agent 调用模型", "turn", st.Turns, "messages", st.Transcript.Len())
		return st.Transcript.Messages(), nil
	}
	modelPost := func(ctx context.Context, out *schema.Message, st *loopState) (*schema.Message, error) {
		if out == nil {
			return nil, errors.Mark(errors.New("model returned no message"), errors.ErrProvider)
		}
		st.Transcript = st.Transcript.Append(out)
		return out, nil
	}
	toolsPost := func(ctx context.Context, out []*schema.Message, st *loopState) ([]*schema.Message, error) {
		st.Transcript = st.Transcript.Append(out...)
		return out, nil
	}

	if err := g.AddChatModelNode(nodeModel, bound,
		compose.WithStatePreHandler(modelPre),
		compose.WithStatePostHandler(modelPost),
		compose.WithNodeName("ChatModel"),
	); err != nil {
		return nil, err
	}
	if err := g.AddToolsNode(nodeTools, toolsNode,
		compose.WithStatePostHandler(toolsPost),
		compose.WithNodeName("Tools"),
	); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(nodeFinish, compose.InvokableLambda(finish), compose.WithNodeName("Finish")); err != nil {
		return nil, err
	}

	if err := g.AddEdge(compose.START, nodeModel); err != nil {
		return nil, err
	}
	branch := compose.NewGraphBranch(routeAfterModel, map[string]bool{nodeTools: true, nodeFinish: true})
	if err := g.AddBranch(nodeModel, branch); err != nil {
		return nil, err
	}
	if err := g.AddEdge(nodeTools, nodeModel); err != nil {
		return nil, err
	}
	if err := g.AddEdge(nodeFinish, compose.END); err != nil {
		return nil, err
	}
	return g, nil
}

func routeAfterModel(_ context.Context, reply *schema.Message) (string, error) {
	if NextState(reply) == StateTools {
		return nodeTools, nil
	}
	return nodeFinish, nil
}

func finish(ctx context.Context, _ *schema.Message) (*Result, error) {
	var res *Result
	err := compose.ProcessState(ctx, func(_ context.Context, st *loopState) error {
		res = &Result{Messages: st.Transcript.Messages(), Turns: st.Turns}
		return nil
	})
	return res, err
}

// Run 执行循环直到模型给出不含工具调用的回复
//
// 调用方构造 messages（含 system prompt），Agent 不再追加系统消息。
func (a *Agent) Run(ctx context.Context, messages []*schema.Message) (*Result, error) {
	if len(messages) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidArg, "agent run requires at least one message")
	}
	res, err := a.runnable.Invoke(ctx, messages)
	if err != nil {
		return nil, a.classify(ctx, err)
	}
	metrics.AgentTurns.Observe(float64(res.Turns))
	return res, nil
}

// MaxTurns 单次运行的模型调用上限
func (a *Agent) MaxTurns() int {
	return a.maxTurns
}

// classify 去掉图框架的包装，按故障类型返回
func (a *Agent) classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, errors.ErrMaxTurns),
		errors.Is(err, compose.ErrExceedMaxSteps),
		strings.Contains(err.Error(), errors.ErrMaxTurns.Error()):
		return fmt.Errorf("%w (%d)", errors.ErrMaxTurns, a.maxTurns)
	case ctx.Err() != nil:
		return errors.Mark(err, ctx.Err())
	case errors.Is(err, errors.ErrProvider):
		return errors.Mark(errors.Origin(err, errors.ErrProvider), errors.ErrProvider)
	default:
		return errors.Mark(err, errors.ErrProvider)
	}
}
