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

package app

import (
	"fmt"

	"agent-chat/pkg/config"
	"agent-chat/pkg/log"
	"agent-chat/pkg/secrets"
)

// Bootstrap 统一初始化：配置、日志与 Secret Store，避免在 cmd 内写装配逻辑
type Bootstrap struct {
	Config  *config.Config
	Logger  *log.Logger
	Secrets secrets.Store
}

// NewBootstrap 根据配置创建 Bootstrap；cfg 为 nil 时使用默认配置
func NewBootstrap(cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志 failed: %w", err)
	}

	store, err := secrets.NewStore(secrets.Config{
		Provider: cfg.Secrets.Provider,
		Vault: secrets.VaultConfig{
			Address:    cfg.Secrets.Vault.Address,
			Token:      cfg.Secrets.Vault.Token,
			PathPrefix: cfg.Secrets.Vault.PathPrefix,
			Field:      cfg.Secrets.Vault.Field,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 Secret Store failed: %w", err)
	}

	return &Bootstrap{
		Config:  cfg,
		Logger:  logger,
		Secrets: store,
	}, nil
}
