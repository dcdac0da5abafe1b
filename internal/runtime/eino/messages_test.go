package eino

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRoleToSchema(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want schema.RoleType
	}{
		{name: "user", in: "user", want: schema.User},
		{name: "assistant", in: "assistant", want: schema.Assistant},
		{name: "system", in: "system", want: schema.System},
		{name: "tool", in: "tool", want: schema.Tool},
		{name: "custom", in: "narrator", want: schema.RoleType("narrator")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := historyRoleToSchema(tt.in)
			if got != tt.want {
				t.Fatalf("historyRoleToSchema(%q)=%q, want=%q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuildMessages(t *testing.T) {
	history := []HistoryItem{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}
	msgs := BuildMessages("be brief", history, "What is 2+2?")
	require.Len(t, msgs, 4)

	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, "be brief", msgs[0].Content)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, "hi", msgs[1].Content)
	assert.Equal(t, schema.Assistant, msgs[2].Role)
	assert.Equal(t, "hello", msgs[2].Content)
	assert.Equal(t, schema.User, msgs[3].Role)
	assert.Equal(t, "What is 2+2?", msgs[3].Content)
}

func TestBuildMessages_EmptyHistory(t *testing.T) {
	msgs := BuildMessages("sys", nil, "")
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, "", msgs[1].Content)
}

func TestBuildMessages_NoSystemPrompt(t *testing.T) {
	msgs := BuildMessages("", []HistoryItem{{Role: "user", Content: "a"}}, "b")
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].Content)
	assert.Equal(t, "b", msgs[1].Content)
}
