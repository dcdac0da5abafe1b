package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatServer 记录收到的请求，按 content 返回预设响应
type fakeChatServer struct {
	mu       sync.Mutex
	requests []chatRequest
}

func (f *fakeChatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/health":
		_, _ = w.Write([]byte(`{"status":"ok","service":"agent-chat"}`))
		return
	case "/api/chat":
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error":"Invalid request format","details":[{"path":[],"message":"bad json"}]}`))
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	switch req.Content {
	case "boom":
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"model provider failed"}`))
	case "invalid":
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error":"Invalid request format","details":[{"path":["history",0,"role"],"message":"Required"}]}`))
	default:
		_, _ = w.Write([]byte(`{"success":true,"result":"re: ` + req.Content + `"}`))
	}
}

func newTestClientServer(t *testing.T) (*fakeChatServer, *httptest.Server) {
	t.Helper()
	fake := &fakeChatServer{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv
}

func TestPostChat(t *testing.T) {
	fake, srv := newTestClientServer(t)
	c := newClient(srv.URL)

	reply, err := postChat(c, nil, "What is 2+2?")
	require.NoError(t, err)
	assert.Equal(t, "re: What is 2+2?", reply)

	require.Len(t, fake.requests, 1)
	assert.NotNil(t, fake.requests[0].History, "history must be sent as [] rather than null")
}

func TestPostChat_Errors(t *testing.T) {
	_, srv := newTestClientServer(t)
	c := newClient(srv.URL)

	_, err := postChat(c, nil, "boom")
	require.Error(t, err)
	assert.Equal(t, "model provider failed", err.Error())

	_, err = postChat(c, nil, "invalid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid request format")
	assert.Contains(t, err.Error(), "Required")
}

func TestGetHealth(t *testing.T) {
	_, srv := newTestClientServer(t)
	h, err := getHealth(newClient(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "ok", h["status"])
}

func TestRunAsk(t *testing.T) {
	_, srv := newTestClientServer(t)
	var stdout, stderr bytes.Buffer

	code := runAsk(newClient(srv.URL), "hello", &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Equal(t, "re: hello\n", stdout.String())

	stdout.Reset()
	code = runAsk(newClient(srv.URL), "boom", &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "model provider failed")
}

func TestRunChat_KeepsHistory(t *testing.T) {
	fake, srv := newTestClientServer(t)
	in := strings.NewReader("first\n\nboom\nsecond\nexit\nignored\n")
	var stdout, stderr bytes.Buffer

	code := runChat(newClient(srv.URL), in, &stdout, &stderr)
	assert.Equal(t, 0, code)

	require.Len(t, fake.requests, 3)
	assert.Empty(t, fake.requests[0].History)
	// 失败的一轮不进入历史
	assert.Len(t, fake.requests[1].History, 2)
	assert.Equal(t, []historyItem{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "re: first"},
	}, fake.requests[2].History)

	assert.Contains(t, stdout.String(), "re: second")
	assert.Contains(t, stderr.String(), "model provider failed")
}

func TestRunChat_EOFWithoutNewline(t *testing.T) {
	fake, srv := newTestClientServer(t)
	var stdout, stderr bytes.Buffer

	code := runChat(newClient(srv.URL), strings.NewReader("last line"), &stdout, &stderr)
	assert.Equal(t, 0, code)
	require.Len(t, fake.requests, 1)
	assert.Equal(t, "last line", fake.requests[0].Content)
}

func TestRunConfig(t *testing.T) {
	t.Setenv("AGENT_CHAT_CONFIG", t.TempDir()+"/missing.yaml")
	t.Setenv("PORT", "4000")
	var stdout, stderr bytes.Buffer

	code := runConfig(&stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "api.addr=:4000")
	assert.Contains(t, stdout.String(), "agent.max_turns=25")
}
