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

// devops 启动 Eino Dev 调试服务并编译 chat_agent 图，供 IDE 插件（Eino Dev）连接后进行可视化调试。
// 使用：go run ./cmd/devops；在 IDE 中配置连接地址 127.0.0.1:52538 后选择 chat_agent 进行 Test Run。
// 未配置模型 API Key 时使用本地脚本模型：以 "$ " 开头的消息会触发一次 run_command。
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cloudwego/eino-ext/devops"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"agent-chat/internal/app"
	"agent-chat/internal/runtime/eino"
	"agent-chat/pkg/config"
)

// devModel 离线脚本模型，便于在无网络/无 Key 时观察 MODEL ⇄ TOOLS 循环
type devModel struct{}

func (devModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if len(in) == 0 {
		return schema.AssistantMessage("", nil), nil
	}
	last := in[len(in)-1]
	switch {
	case last.Role == schema.Tool:
		return schema.AssistantMessage("Output: "+strings.TrimSpace(last.Content), nil), nil
	case strings.HasPrefix(last.Content, "$ "):
		args, err := json.Marshal(map[string]string{"command": strings.TrimPrefix(last.Content, "$ ")})
		if err != nil {
			return nil, err
		}
		return schema.AssistantMessage("", []schema.ToolCall{{
			ID:       "dev_call_1",
			Type:     "function",
			Function: schema.FunctionCall{Name: "run_command", Arguments: string(args)},
		}}), nil
	default:
		return schema.AssistantMessage("echo: "+last.Content, nil), nil
	}
}

func (m devModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

func (m devModel) WithTools([]*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func main() {
	ctx := context.Background()

	// 1. 先初始化 Eino Dev 调试服务（必须在任何 Compile 之前调用）
	if err := devops.Init(ctx); err != nil {
		log.Fatalf("[eino dev] init failed: %v", err)
	}

	cfg, err := config.LoadAPIConfigWithModel()
	if err != nil {
		log.Fatalf("[eino dev] load config: %v", err)
	}
	bootstrap, err := app.NewBootstrap(cfg)
	if err != nil {
		log.Fatalf("[eino dev] bootstrap: %v", err)
	}

	// 2. 编译 chat_agent 图，插件会通过已编译的 artifact 列表展示
	engine, err := eino.NewEngine(ctx, cfg, bootstrap.Logger, eino.WithSecrets(bootstrap.Secrets))
	if err != nil {
		log.Printf("[eino dev] 使用配置的模型失败（%v），改用离线脚本模型", err)
		engine, err = eino.NewEngine(ctx, cfg, bootstrap.Logger, eino.WithChatModel(devModel{}))
		if err != nil {
			log.Fatalf("[eino dev] compile %s: %v", eino.GraphName, err)
		}
	}
	if schemas, err := engine.Tools().SchemasForLLM(); err == nil {
		log.Printf("[eino dev] %s 绑定的工具: %s", eino.GraphName, schemas)
	}

	log.Println("[eino dev] server listening on 127.0.0.1:52538; open Eino Dev in IDE and configure this address to debug")
	log.Println("[eino dev] press Ctrl+C to exit")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Println("[eino dev] shutting down")
}
