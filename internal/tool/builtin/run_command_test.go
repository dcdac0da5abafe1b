package builtin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-chat/internal/tool/registry"
	"agent-chat/pkg/config"
	apperrors "agent-chat/pkg/errors"
)

type fakeExec struct {
	out      string
	err      error
	commands []string
}

func (f *fakeExec) Run(_ context.Context, command string) (string, error) {
	f.commands = append(f.commands, command)
	return f.out, f.err
}

func TestRunCommandTool_Metadata(t *testing.T) {
	tl := NewRunCommandTool(&fakeExec{})
	assert.Equal(t, "run_command", tl.Name())
	assert.Equal(t, "Run a command", tl.Description())
	s := tl.Schema()
	assert.Equal(t, "object", s.Type)
	assert.Contains(t, s.Properties, "command")
	assert.Equal(t, []string{"command"}, s.Required)
}

func TestRunCommandTool_Execute(t *testing.T) {
	exec := &fakeExec{out: "hi\n"}
	res, err := NewRunCommandTool(exec).Execute(context.Background(), map[string]any{"command": "echo hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi\n", res.Content)
	assert.Equal(t, []string{"echo hi"}, exec.commands)
}

func TestRunCommandTool_ExecFailure(t *testing.T) {
	exec := &fakeExec{err: errors.New("command failed: false: exit status 1")}
	_, err := NewRunCommandTool(exec).Execute(context.Background(), map[string]any{"command": "false"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrToolExecution))
	assert.Contains(t, err.Error(), "exit status 1")
}

func TestRunCommandTool_BadArguments(t *testing.T) {
	tl := NewRunCommandTool(&fakeExec{})

	res, err := tl.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, `missing required argument "command"`, res.Err)
	assert.Empty(t, res.Content)

	res, err = tl.Execute(context.Background(), map[string]any{"command": 42.0})
	require.NoError(t, err)
	assert.Contains(t, res.Err, "must be a string")
}

func TestRegisterBuiltin(t *testing.T) {
	reg := registry.New()
	require.NoError(t, RegisterBuiltin(reg, config.RunCommandConfig{Enabled: true}))
	assert.Equal(t, []string{"run_command"}, reg.Names())

	// 重复注册报错
	assert.Error(t, RegisterBuiltin(reg, config.RunCommandConfig{Enabled: true}))

	disabled := registry.New()
	require.NoError(t, RegisterBuiltin(disabled, config.RunCommandConfig{Enabled: false}))
	assert.Empty(t, disabled.Names())
}

func TestRegisterBuiltin_RealShell(t *testing.T) {
	reg := registry.New()
	require.NoError(t, RegisterBuiltin(reg, config.RunCommandConfig{Enabled: true, AllowedPrefixes: []string{"echo"}}))
	tl, ok := reg.Get(RunCommandName)
	require.True(t, ok)

	res, err := tl.Execute(context.Background(), map[string]any{"command": "echo hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi\n", res.Content)

	_, err = tl.Execute(context.Background(), map[string]any{"command": "whoami"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in allowlist")
}
