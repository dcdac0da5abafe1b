package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-chat/internal/tool"
)

type mockTool struct {
	name   string
	result tool.ToolResult
	err    error
	inputs []map[string]any
}

func (m *mockTool) Name() string        { return m.name }
func (m *mockTool) Description() string { return "desc of " + m.name }
func (m *mockTool) Schema() tool.Schema {
	return tool.Schema{
		Type: "object",
		Properties: map[string]tool.SchemaProperty{
			"command": {Type: "string", Description: "cmd"},
			"verbose": {Type: "boolean"},
		},
		Required: []string{"command"},
	}
}
func (m *mockTool) Execute(_ context.Context, input map[string]any) (tool.ToolResult, error) {
	m.inputs = append(m.inputs, input)
	return m.result, m.err
}

func TestRegistry_Register_Get_List(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&mockTool{name: "b"}))
	require.NoError(t, r.Register(&mockTool{name: "a"}))
	assert.Error(t, r.Register(&mockTool{name: "a"}))

	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.Name())
	_, ok = r.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"b", "a"}, r.Names())
	assert.Len(t, r.List(), 2)

	raw, err := r.SchemasForLLM()
	require.NoError(t, err)
	var schemas []ToolSchemaForLLM
	require.NoError(t, json.Unmarshal(raw, &schemas))
	assert.Equal(t, "b", schemas[0].Name)
}

func TestRegistry_UnknownToolResult(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&mockTool{name: "run_command"}))
	out, err := r.UnknownToolResult(context.Background(), "delete_everything", `{}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Error:")
	assert.Contains(t, out, `"delete_everything" is not registered`)
	assert.Contains(t, out, "run_command")
}

func TestToolInfo(t *testing.T) {
	info := ToolInfo(&mockTool{name: "run_command"})
	assert.Equal(t, "run_command", info.Name)
	assert.Equal(t, "desc of run_command", info.Desc)

	js, err := info.ParamsOneOf.ToJSONSchema()
	require.NoError(t, err)
	raw, err := json.Marshal(js)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"command"`)
	assert.Contains(t, string(raw), `"required":["command"]`)
}

func TestEinoTool_Success(t *testing.T) {
	m := &mockTool{name: "run_command", result: tool.ToolResult{Content: "hi\n"}}
	out, err := NewEinoTool(m, nil).InvokableRun(context.Background(), `{"command":"echo hi"}`)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", out)
	assert.Equal(t, "echo hi", m.inputs[0]["command"])
}

func TestEinoTool_FaultsBecomeContent(t *testing.T) {
	tests := []struct {
		name string
		tool *mockTool
		args string
		want string
	}{
		{"execute error", &mockTool{name: "t", err: errors.New("exit status 1")}, `{"command":"false"}`, "Error: exit status 1"},
		{"result error", &mockTool{name: "t", result: tool.ToolResult{Err: "denied"}}, `{"command":"x"}`, "Error: denied"},
		{"invalid json", &mockTool{name: "t"}, `{not json`, "Error: invalid arguments for t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewEinoTool(tt.tool, nil).InvokableRun(context.Background(), tt.args)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestEinoTool_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &mockTool{name: "t", err: context.Canceled}
	_, err := NewEinoTool(m, nil).InvokableRun(ctx, `{"command":"sleep 1"}`)
	assert.ErrorIs(t, err, context.Canceled)
}
