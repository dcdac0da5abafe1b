// Copyright 2026 fanjia1024
// Environment variable based secret store

package secrets

import (
	"context"
	"os"

	"agent-chat/pkg/errors"
)

// EnvPrefix 进程专属前缀，优先于裸变量名
const EnvPrefix = "AGENT_CHAT_"

type envStore struct {
	prefix string
}

// NewEnvStore 创建环境变量 secret store：先查 AGENT_CHAT_<KEY>，再查 <KEY>
func NewEnvStore() Store {
	return &envStore{prefix: EnvPrefix}
}

func (e *envStore) Get(_ context.Context, key string) (string, error) {
	name := normalizeKey(key)
	for _, candidate := range []string{e.prefix + name, name} {
		if v, ok := os.LookupEnv(candidate); ok && v != "" {
			return v, nil
		}
	}
	return "", errors.Wrapf(errors.ErrNotFound, "environment variable %s", name)
}
