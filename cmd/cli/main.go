package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-resty/resty/v2"

	"agent-chat/pkg/config"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(0)
	}
	cmd := os.Args[1]
	args := os.Args[2:]
	client := newClient(apiBaseURL())
	switch cmd {
	case "version":
		fmt.Println("agent-chat cli " + version)
	case "health":
		h, err := getHealth(client)
		if err != nil {
			fmt.Fprintf(os.Stderr, "健康检查失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(prettyJSON(h))
	case "config":
		os.Exit(runConfig(os.Stdout, os.Stderr))
	case "ask":
		if len(args) < 1 {
			fmt.Fprintf(os.Stderr, "Usage: agent-chat ask <message>\n")
			os.Exit(1)
		}
		os.Exit(runAsk(client, strings.Join(args, " "), os.Stdout, os.Stderr))
	case "chat":
		os.Exit(runChat(client, os.Stdin, os.Stdout, os.Stderr))
	default:
		printUsage(os.Stderr)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: agent-chat <command> [args]")
	fmt.Fprintln(w, "  version         - 显示版本")
	fmt.Fprintln(w, "  health          - 健康检查（GET /api/health）")
	fmt.Fprintln(w, "  config          - 显示配置概要")
	fmt.Fprintln(w, "  ask <message>   - 发送单条消息并输出回复")
	fmt.Fprintln(w, "  chat            - 交互式对话，历史保存在本地并随每轮发送")
	fmt.Fprintln(w, "环境变量 AGENT_CHAT_API_URL 指定服务地址，默认 http://localhost:3000")
}

func runConfig(stdout, stderr io.Writer) int {
	cfg, err := config.LoadAPIConfigWithModel()
	if err != nil {
		fmt.Fprintf(stderr, "加载配置失败: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "api.addr=%s\n", cfg.API.Addr())
	fmt.Fprintf(stdout, "model.defaults.llm=%s\n", cfg.Model.Defaults.LLM)
	fmt.Fprintf(stdout, "agent.max_turns=%d\n", cfg.Agent.MaxTurnsOrDefault())
	fmt.Fprintf(stdout, "tools.run_command.enabled=%t\n", cfg.Tools.RunCommand.Enabled)
	fmt.Fprintf(stdout, "tools.run_command.allowed_prefixes=%v\n", cfg.Tools.RunCommand.AllowedPrefixes)
	return 0
}

func runAsk(client *resty.Client, message string, stdout, stderr io.Writer) int {
	reply, err := postChat(client, nil, message)
	if err != nil {
		fmt.Fprintf(stderr, "请求失败: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, reply)
	return 0
}

// runChat 交互式对话；失败的一轮不计入历史
func runChat(client *resty.Client, in io.Reader, stdout, stderr io.Writer) int {
	var history []historyItem
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(stdout, "> ")
		line, err := reader.ReadString('\n')
		msg := strings.TrimSpace(line)
		if msg == "exit" || msg == "quit" {
			return 0
		}
		if msg != "" {
			reply, perr := postChat(client, history, msg)
			if perr != nil {
				fmt.Fprintf(stderr, "发送失败: %v\n", perr)
			} else {
				fmt.Fprintln(stdout, reply)
				history = append(history,
					historyItem{Role: "user", Content: msg},
					historyItem{Role: "assistant", Content: reply},
				)
			}
		}
		if err != nil {
			return 0
		}
	}
}
