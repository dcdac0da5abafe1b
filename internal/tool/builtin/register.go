package builtin

import (
	"agent-chat/internal/tool/registry"
	"agent-chat/internal/tool/shell"
	"agent-chat/pkg/config"
)

// RegisterBuiltin 按配置注册内置工具；run_command 关闭时注册表为空，模型不会看到任何工具
func RegisterBuiltin(reg *registry.Registry, cfg config.RunCommandConfig) error {
	if !cfg.Enabled {
		return nil
	}
	exec := shell.NewShellExec(shell.Config{
		Shell:           cfg.Shell,
		WorkingDir:      cfg.WorkingDir,
		Timeout:         config.ParseDuration(cfg.Timeout, 0),
		AllowedPrefixes: cfg.AllowedPrefixes,
		DeniedPatterns:  cfg.DeniedPatterns,
		MaxOutputBytes:  cfg.MaxOutputBytes,
	})
	return reg.Register(NewRunCommandTool(exec))
}
