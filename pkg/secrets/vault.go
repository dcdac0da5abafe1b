// Copyright 2026 fanjia1024
// HashiCorp Vault secret store

package secrets

import (
	"context"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"

	"agent-chat/pkg/errors"
)

// VaultConfig Vault 配置
type VaultConfig struct {
	Address    string // Vault server address (e.g., http://vault:8200)
	Token      string // Vault token
	PathPrefix string // Secret path prefix (e.g., "secret/data" for KV v2)
	Field      string // 取值字段，默认 "value"
}

type vaultStore struct {
	client     *vault.Client
	pathPrefix string
	field      string
}

// NewVaultStore 创建 Vault secret store
func NewVaultStore(config VaultConfig) (Store, error) {
	if config.Address == "" {
		config.Address = "http://localhost:8200"
	}

	cfg := vault.DefaultConfig()
	cfg.Address = config.Address

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	if config.Token != "" {
		client.SetToken(config.Token)
	}

	if _, err := client.Sys().Health(); err != nil {
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}

	prefix := "secret"
	if config.PathPrefix != "" {
		prefix = config.PathPrefix
	}

	field := config.Field
	if field == "" {
		field = "value"
	}

	return &vaultStore{
		client:     client,
		pathPrefix: strings.TrimSuffix(prefix, "/"),
		field:      field,
	}, nil
}

// Get 读取 <prefix>/<key>；兼容 KV v1 与 KV v2（data.data）。配置字段缺失时，只有一个字符串字段也可接受
func (v *vaultStore) Get(ctx context.Context, key string) (string, error) {
	secret, err := v.client.Logical().ReadWithContext(ctx, v.pathPrefix+"/"+strings.TrimPrefix(key, "/"))
	if err != nil {
		return "", fmt.Errorf("failed to read secret from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", errors.Wrapf(errors.ErrNotFound, "vault secret %s", key)
	}

	data := secret.Data
	if nested, ok := data["data"].(map[string]any); ok {
		data = nested
	}
	if value, ok := data[v.field].(string); ok {
		return value, nil
	}

	var only string
	count := 0
	for _, val := range data {
		if str, ok := val.(string); ok {
			only = str
			count++
		}
	}
	if count == 1 {
		return only, nil
	}
	return "", errors.Wrapf(errors.ErrNotFound, "vault secret %s field %q", key, v.field)
}
