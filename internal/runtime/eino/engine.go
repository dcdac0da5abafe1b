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

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"agent-chat/internal/tool/builtin"
	"agent-chat/internal/tool/registry"
	"agent-chat/pkg/config"
	"agent-chat/pkg/log"
	"agent-chat/pkg/secrets"
)

// Engine eino 引擎实例：持有 ChatModel、工具注册表与编译好的 Agent
type Engine struct {
	config    *config.Config
	logger    *log.Logger
	secrets   secrets.Store
	tools     *registry.Registry
	chatModel model.ToolCallingChatModel
	agent     *Agent
}

// EngineOption 引擎可选项
type EngineOption func(*Engine)

// WithChatModel 使用给定 ChatModel，不再按配置创建（测试、Eino Dev 使用）
func WithChatModel(m model.ToolCallingChatModel) EngineOption {
	return func(e *Engine) { e.chatModel = m }
}

// WithSecrets provider api_key 为空时从该 Secret Store 读取
func WithSecrets(s secrets.Store) EngineOption {
	return func(e *Engine) { e.secrets = s }
}

// WithToolRegistry 使用给定工具注册表，不再按配置注册内置工具
func WithToolRegistry(reg *registry.Registry) EngineOption {
	return func(e *Engine) { e.tools = reg }
}

// NewEngine 创建新的 eino 引擎实例
func NewEngine(ctx context.Context, cfg *config.Config, logger *log.Logger, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	engine := &Engine{config: cfg, logger: logger}
	for _, opt := range opts {
		opt(engine)
	}

	if engine.chatModel == nil {
		cm, err := engine.createChatModel(ctx)
		if err != nil {
			return nil, err
		}
		engine.chatModel = cm
	}
	if engine.tools == nil {
		engine.tools = registry.New()
		if err := builtin.RegisterBuiltin(engine.tools, cfg.Tools.RunCommand); err != nil {
			return nil, fmt.Errorf("注册内置工具 failed: %w", err)
		}
	}

	agent, err := NewAgent(ctx, &AgentConfig{
		Model:        engine.chatModel,
		Tools:        engine.tools,
		MaxTurns:     cfg.Agent.MaxTurnsOrDefault(),
		ModelTimeout: config.ParseDuration(cfg.Agent.ModelTimeout, 0),
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("启动 eino 引擎 failed: %w", err)
	}
	engine.agent = agent

	logger.Info("eino 引擎初始化成功", "tools", engine.tools.Names(), "max_turns", agent.MaxTurns())
	return engine, nil
}

// Chat 以 system prompt + 历史 + 本轮内容运行 Agent
func (e *Engine) Chat(ctx context.Context, history []HistoryItem, content string) (*Result, error) {
	return e.agent.Run(ctx, BuildMessages(e.SystemPrompt(), history, content))
}

// SystemPrompt 当前系统提示词
func (e *Engine) SystemPrompt() string {
	return e.config.Agent.SystemPrompt
}

// Agent 编译好的 Agent
func (e *Engine) Agent() *Agent {
	return e.agent
}

// Tools 工具注册表
func (e *Engine) Tools() *registry.Registry {
	return e.tools
}

// createChatModel 创建 OpenAI ChatModel（根据 config.Model.Defaults.LLM 解析 provider.model_key）
func (e *Engine) createChatModel(ctx context.Context) (model.ToolCallingChatModel, error) {
	provider, modelKey, err := parseDefaultKey(e.config.Model.Defaults.LLM)
	if err != nil {
		return nil, err
	}
	pc, ok := e.config.Model.LLM.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("LLM provider %q not configured", provider)
	}
	mi, ok := pc.Models[modelKey]
	if !ok {
		return nil, fmt.Errorf("LLM model %q not configured in provider %q", modelKey, provider)
	}
	apiKey, err := e.resolveAPIKey(ctx, provider, pc.APIKey)
	if err != nil {
		return nil, err
	}

	cfg := &openai.ChatModelConfig{
		Model:   mi.Name,
		APIKey:  apiKey,
		BaseURL: pc.BaseURL,
	}
	if mi.Temperature > 0 {
		t := float32(mi.Temperature)
		cfg.Temperature = &t
	}
	if mi.MaxTokens > 0 {
		n := mi.MaxTokens
		cfg.MaxTokens = &n
	}
	chatModel, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("创建 OpenAI ChatModel failed: %w", err)
	}
	return chatModel, nil
}

// resolveAPIKey 配置中的 api_key 优先，为空时按 secrets.api_key_ref 从 Secret Store 读取
func (e *Engine) resolveAPIKey(ctx context.Context, provider, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	ref := e.config.Secrets.APIKeyRef
	if e.secrets != nil && ref != "" {
		key, err := e.secrets.Get(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("LLM provider %q api_key: %w", provider, err)
		}
		if key != "" {
			return key, nil
		}
	}
	return "", fmt.Errorf("LLM provider %q api_key not configured", provider)
}

func parseDefaultKey(key string) (provider, modelKey string, err error) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("default key 格式应为 provider.model_key，如 openai.gpt_4o_mini，当前: %q", key)
	}
	return parts[0], parts[1], nil
}
