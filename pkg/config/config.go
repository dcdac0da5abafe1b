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

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"agent-chat/pkg/redaction"
)

// DefaultSystemPrompt 默认系统提示词（每次对话的第一条 system 消息）
const DefaultSystemPrompt = "You are a helpful assistant that can answer questions and help with tasks. Don't run the whoami command!"

// 默认值
const (
	DefaultPort       = 3000
	DefaultMaxTurns   = 25
	DefaultUIDir      = "src/ui"
	DefaultConfigPath = "configs/api.yaml"
	DefaultLLM        = "openai.gpt_4o_mini"
)

// Config 应用配置结构体
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Agent      AgentConfig      `mapstructure:"agent"`
	Tools      ToolsConfig      `mapstructure:"tools"`
	Model      ModelConfig      `mapstructure:"model"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port           int        `mapstructure:"port"`
	Host           string     `mapstructure:"host"`
	UIDir          string     `mapstructure:"ui_dir"`          // 静态页面目录，存在时挂载到 /
	RequestTimeout string     `mapstructure:"request_timeout"` // 单次对话请求总时长，如 "2m"；空则不限制
	CORS           CORSConfig `mapstructure:"cors"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// AgentConfig Agent 循环配置
type AgentConfig struct {
	SystemPrompt string `mapstructure:"system_prompt"`
	MaxTurns     int    `mapstructure:"max_turns"`     // 模型调用次数上限，<=0 使用默认 25
	ModelTimeout string `mapstructure:"model_timeout"` // 单次模型调用超时，如 "60s"；空则不限制
}

// ToolsConfig 工具配置
type ToolsConfig struct {
	RunCommand RunCommandConfig `mapstructure:"run_command"`
}

// RunCommandConfig run_command 工具配置。默认不做任何限制（无白名单、无超时），
// 仅靠系统提示词约束模型；白名单/黑名单/超时为可选加固项
type RunCommandConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	Shell           string   `mapstructure:"shell"`
	WorkingDir      string   `mapstructure:"working_dir"`
	Timeout         string   `mapstructure:"timeout"`
	AllowedPrefixes []string `mapstructure:"allowed_prefixes"`
	DeniedPatterns  []string `mapstructure:"denied_patterns"`
	MaxOutputBytes  int      `mapstructure:"max_output_bytes"`
}

// ModelConfig 模型配置
type ModelConfig struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
}

// LLMConfig LLM 模型配置
type LLMConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig 模型提供商配置
type ProviderConfig struct {
	APIKey  string               `mapstructure:"api_key"`
	BaseURL string               `mapstructure:"base_url"`
	Models  map[string]ModelInfo `mapstructure:"models"`
}

// ModelInfo 模型信息
type ModelInfo struct {
	Name        string  `mapstructure:"name"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// DefaultsConfig 默认模型配置
type DefaultsConfig struct {
	LLM string `mapstructure:"llm"`
}

// SecretsConfig Secret 存储配置；provider api_key 为空时按 APIKeyRef 从 Secret 存储读取
type SecretsConfig struct {
	Provider  string      `mapstructure:"provider"` // env | memory | vault
	APIKeyRef string      `mapstructure:"api_key_ref"`
	Vault     VaultConfig `mapstructure:"vault"`
}

// VaultConfig Vault 配置
type VaultConfig struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	PathPrefix string `mapstructure:"path_prefix"`
	Field      string `mapstructure:"field"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
	// Transcript debug 级别最终消息序列中的内容记录与脱敏
	Transcript redaction.Config `mapstructure:"transcript"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", DefaultPort)
	v.SetDefault("api.ui_dir", DefaultUIDir)
	v.SetDefault("agent.system_prompt", DefaultSystemPrompt)
	v.SetDefault("agent.max_turns", DefaultMaxTurns)
	v.SetDefault("agent.model_timeout", "60s")
	v.SetDefault("tools.run_command.enabled", true)
	v.SetDefault("tools.run_command.shell", "sh")
	v.SetDefault("model.defaults.llm", DefaultLLM)
	v.SetDefault("model.llm.providers.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("model.llm.providers.openai.models.gpt_4o_mini.name", "gpt-4o-mini")
	v.SetDefault("secrets.provider", "env")
	v.SetDefault("secrets.api_key_ref", "OPENAI_API_KEY")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("monitoring.prometheus.enable", true)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}
	return unmarshal(v)
}

// Default 仅含默认值的配置（无配置文件时使用）
func Default() *Config {
	cfg, err := unmarshal(newViper())
	if err != nil {
		// 默认值均为合法类型，不会走到这里
		panic(err)
	}
	return cfg
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	// 替换环境变量
	if err := replaceEnvVars(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// replaceEnvVars 替换配置中的环境变量
func replaceEnvVars(config *Config) error {
	for provider, providerConfig := range config.Model.LLM.Providers {
		if strings.HasPrefix(providerConfig.APIKey, "$") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(providerConfig.APIKey, "}"), "${")
			providerConfig.APIKey = os.Getenv(envVar)
			config.Model.LLM.Providers[provider] = providerConfig
		}
	}
	return nil
}

// applyPortEnv PORT 环境变量覆盖 api.port
func applyPortEnv(config *Config) error {
	raw := strings.TrimSpace(os.Getenv("PORT"))
	if raw == "" {
		return nil
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("PORT 环境变量无效: %q", raw)
	}
	config.API.Port = port
	return nil
}

// ConfigPath 返回 API 配置路径（AGENT_CHAT_CONFIG 优先）
func ConfigPath() string {
	if p := os.Getenv("AGENT_CHAT_CONFIG"); p != "" {
		return p
	}
	return DefaultConfigPath
}

// LoadAPIConfigWithModel 加载 API 配置并合并同目录的 model.yaml；配置文件不存在时使用默认值
func LoadAPIConfigWithModel() (*Config, error) {
	return loadAPIConfig(ConfigPath())
}

func loadAPIConfig(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		if !isNotExist(path) {
			return nil, err
		}
		log.Printf("[config] 未找到配置文件 %q，使用默认配置", path)
		cfg = Default()
	}
	modelPath := filepath.Join(filepath.Dir(path), "model.yaml")
	if modelCfg, err := LoadConfig(modelPath); err == nil {
		cfg.Model = modelCfg.Model
	} else if !isNotExist(modelPath) {
		return nil, err
	}
	if err := applyPortEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isNotExist(path string) bool {
	_, err := os.Stat(path)
	return errors.Is(err, fs.ErrNotExist)
}

// ParseDuration 解析时长字符串，无效或空时返回 defaultVal
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

// MaxTurnsOrDefault 返回生效的模型调用次数上限
func (a AgentConfig) MaxTurnsOrDefault() int {
	if a.MaxTurns <= 0 {
		return DefaultMaxTurns
	}
	return a.MaxTurns
}

// Addr 监听地址，如 ":3000"
func (a APIConfig) Addr() string {
	port := a.Port
	if port <= 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("%s:%d", a.Host, port)
}
