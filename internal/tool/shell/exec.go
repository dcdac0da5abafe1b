// Package shell 提供 run_command 背后的命令执行能力。
//
// 默认配置不做任何隔离：无白名单、无超时、无沙箱，命令以服务进程的身份执行，
// 唯一约束是系统提示词中的自然语言指令。AllowedPrefixes / DeniedPatterns / Timeout
// 是可选加固项，生产部署应至少开启白名单或在沙箱中运行服务进程。
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrEmptyCommand 命令为空
	ErrEmptyCommand = errors.New("command is empty")
	// ErrCommandDenied 命令被策略拒绝
	ErrCommandDenied = errors.New("command blocked by policy")
	// ErrTimeout 命令超时
	ErrTimeout = errors.New("command timed out")
)

// Executor 执行一条 shell 命令，返回 stdout；非零退出或无法启动时返回 error
type Executor interface {
	Run(ctx context.Context, command string) (string, error)
}

// Config 执行器配置
type Config struct {
	Shell           string        // 默认 sh
	WorkingDir      string        // 空则继承进程工作目录
	Timeout         time.Duration // 0 表示不限制
	AllowedPrefixes []string      // 空表示允许所有命令
	DeniedPatterns  []string      // 子串匹配（忽略大小写）
	MaxOutputBytes  int           // 0 表示不截断
}

// CommandError 命令非零退出
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command failed: %s: exit status %d", e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += "\n" + s
	}
	return msg
}

// ShellExec 基于 sh -c 的执行器
type ShellExec struct {
	cfg Config
}

// NewShellExec 创建执行器
func NewShellExec(cfg Config) *ShellExec {
	if cfg.Shell == "" {
		cfg.Shell = "sh"
	}
	return &ShellExec{cfg: cfg}
}

// Check 按配置的白名单/黑名单校验命令
func (s *ShellExec) Check(command string) error {
	if strings.TrimSpace(command) == "" {
		return ErrEmptyCommand
	}
	lower := strings.ToLower(command)
	for _, denied := range s.cfg.DeniedPatterns {
		if denied != "" && strings.Contains(lower, strings.ToLower(denied)) {
			return fmt.Errorf("%w: matches denied pattern %q", ErrCommandDenied, denied)
		}
	}
	if len(s.cfg.AllowedPrefixes) == 0 {
		return nil
	}
	trimmed := strings.TrimSpace(command)
	for _, prefix := range s.cfg.AllowedPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return nil
		}
	}
	return fmt.Errorf("%w: not in allowlist", ErrCommandDenied)
}

// Run 实现 Executor
func (s *ShellExec) Run(ctx context.Context, command string) (string, error) {
	if err := s.Check(command); err != nil {
		return "", err
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, s.cfg.Shell, "-c", command)
	if s.cfg.WorkingDir != "" {
		cmd.Dir = s.cfg.WorkingDir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// 进程被杀后不再无限等待子进程持有的输出管道
	cmd.WaitDelay = 500 * time.Millisecond

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) && s.cfg.Timeout > 0 {
			return "", fmt.Errorf("%w after %s: %s", ErrTimeout, s.cfg.Timeout, command)
		}
		return "", ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &CommandError{
				Command:  command,
				ExitCode: exitErr.ExitCode(),
				Stderr:   truncate(stderr.String(), s.cfg.MaxOutputBytes),
			}
		}
		return "", fmt.Errorf("command could not be started: %w", err)
	}
	return truncate(stdout.String(), s.cfg.MaxOutputBytes), nil
}

func truncate(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n[... output truncated ...]"
}
