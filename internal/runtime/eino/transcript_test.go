package eino

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscript_AppendDoesNotMutate(t *testing.T) {
	base := NewTranscript(schema.SystemMessage("sys"), schema.UserMessage("q"))
	before := base.Messages()

	next := base.Append(schema.AssistantMessage("a", nil))

	assert.Equal(t, 2, base.Len())
	assert.Equal(t, 3, next.Len())
	assert.Equal(t, before, base.Messages())
	assert.Equal(t, before, next.Messages()[:2])
	assert.Equal(t, "a", next.Last().Content)
}

func TestTranscript_BranchesAreIndependent(t *testing.T) {
	base := NewTranscript(schema.UserMessage("q"))
	left := base.Append(schema.AssistantMessage("left", nil))
	right := base.Append(schema.AssistantMessage("right", nil))

	assert.Equal(t, "left", left.Last().Content)
	assert.Equal(t, "right", right.Last().Content)
	assert.Equal(t, 1, base.Len())
}

func TestTranscript_MessagesIsACopy(t *testing.T) {
	tr := NewTranscript(schema.UserMessage("q"))
	msgs := tr.Messages()
	msgs[0] = schema.UserMessage("changed")

	require.Equal(t, 1, tr.Len())
	assert.Equal(t, "q", tr.Last().Content)
}

func TestTranscript_Empty(t *testing.T) {
	var tr Transcript
	assert.Equal(t, 0, tr.Len())
	assert.Nil(t, tr.Last())
	assert.Empty(t, tr.Messages())

	same := tr.Append()
	assert.Equal(t, 0, same.Len())

	skipNil := tr.Append(nil, schema.UserMessage("x"))
	assert.Equal(t, 1, skipNil.Len())
}
