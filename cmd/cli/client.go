// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

func apiBaseURL() string {
	if u := os.Getenv("AGENT_CHAT_API_URL"); u != "" {
		return u
	}
	return "http://localhost:3000"
}

func newClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Minute).
		SetHeader("Content-Type", "application/json")
}

type historyItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Content string        `json:"content"`
	History []historyItem `json:"history"`
}

type chatEnvelope struct {
	Success bool   `json:"success"`
	Result  string `json:"result"`
	Error   string `json:"error"`
	Details []struct {
		Path    []any  `json:"path"`
		Message string `json:"message"`
	} `json:"details"`
}

// postChat 发送一轮对话；history 为空时发送 []
func postChat(c *resty.Client, history []historyItem, content string) (string, error) {
	if history == nil {
		history = []historyItem{}
	}
	var out chatEnvelope
	resp, err := c.R().
		SetBody(chatRequest{Content: content, History: history}).
		SetResult(&out).
		SetError(&out).
		Post("/api/chat")
	if err != nil {
		return "", err
	}
	if resp.StatusCode() == http.StatusOK && out.Success {
		return out.Result, nil
	}
	if out.Error == "" {
		return "", fmt.Errorf("POST /api/chat: %d %s", resp.StatusCode(), resp.String())
	}
	if len(out.Details) > 0 {
		parts := make([]string, 0, len(out.Details))
		for _, d := range out.Details {
			parts = append(parts, fmt.Sprintf("%v: %s", d.Path, d.Message))
		}
		return "", fmt.Errorf("%s (%s)", out.Error, strings.Join(parts, "; "))
	}
	return "", fmt.Errorf("%s", out.Error)
}

func getHealth(c *resty.Client) (map[string]interface{}, error) {
	var out map[string]interface{}
	resp, err := c.R().
		SetResult(&out).
		Get("/api/health")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET /api/health: %s", resp.String())
	}
	return out, nil
}

func prettyJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
