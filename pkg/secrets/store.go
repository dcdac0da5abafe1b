// Copyright 2026 fanjia1024
// Secret management abstraction

package secrets

import (
	"context"
	"fmt"
	"strings"
)

// Store Secret 读取接口（模型 API Key 等）
type Store interface {
	// Get 获取 secret 值
	Get(ctx context.Context, key string) (string, error)
}

// Config Secret Store 配置
type Config struct {
	Provider string      // vault | env | memory
	Vault    VaultConfig // provider=vault 时使用
}

// NewStore 创建 Secret Store
func NewStore(config Config) (Store, error) {
	switch config.Provider {
	case "", "env":
		return NewEnvStore(), nil
	case "memory":
		return NewMemoryStore(nil), nil
	case "vault":
		return NewVaultStore(config.Vault)
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", config.Provider)
	}
}

// normalizeKey 统一为环境变量风格：大写，'.'、'-'、'/' 换成 '_'
func normalizeKey(key string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_")
	return strings.ToUpper(r.Replace(strings.TrimSpace(key)))
}
