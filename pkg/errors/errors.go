// Package errors 提供统一错误辅助与故障分类，不依赖 internal
package errors

import (
	"errors"
	"fmt"
)

// 常用哨兵错误（可按需扩展错误码）
var (
	ErrNotFound   = errors.New("not found")
	ErrInvalidArg = errors.New("invalid argument")
)

// 对话请求的故障分类：Validation 在进入 Agent 前拦截；ToolExecution 只在循环内以 tool 消息回传；
// Provider 与 MaxTurns 终止本次请求并由网关报告为内部错误
var (
	ErrValidation    = errors.New("invalid request format")
	ErrToolExecution = errors.New("tool execution failed")
	ErrProvider      = errors.New("model provider failed")
	ErrMaxTurns      = errors.New("agent exceeded max turns")
)

// Wrap 包装错误并附加消息
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 带格式的 Wrap
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Mark 将 err 归入 kind 分类，保留原始错误文本；err 为 nil 时返回 nil
func Mark(err error, kind error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return &marked{err: err, kind: kind}
}

type marked struct {
	err  error
	kind error
}

func (m *marked) Error() string { return m.err.Error() }

func (m *marked) Unwrap() []error { return []error{m.err, m.kind} }

// Origin 返回链上被 Mark 为 kind 的原始错误，用于剥离框架包装后的对外错误文本；未找到时返回 err
func Origin(err error, kind error) error {
	var m *marked
	if errors.As(err, &m) && errors.Is(m.kind, kind) {
		return m.err
	}
	return err
}

// Is 同标准库 errors.Is
func Is(err, target error) bool { return errors.Is(err, target) }

// As 同标准库 errors.As
func As(err error, target any) bool { return errors.As(err, target) }

// New 同标准库 errors.New
func New(text string) error { return errors.New(text) }
