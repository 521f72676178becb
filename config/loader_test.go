// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	// 不指定配置文件，应该返回默认值
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "deepseek-ai/DeepSeek-R1-Distill-Qwen-7B", cfg.Model.Name)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	// 创建临时配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  http_port: 8888
  read_timeout: 60s

retrieval:
  top_k: 3
  min_score: 0.5

search:
  gugudata:
    enabled: true
    api_key: "gg-key"
    timeout: 10s

model:
  name: "Qwen/Qwen2.5-7B-Instruct"
  timeout: 45s
  temperature: 0.3

answer:
  max_sources: 2
  history_turns: 5

log:
  level: "debug"
  format: "console"
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	// 加载配置
	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	// 验证 YAML 值覆盖了默认值
	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)

	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 0.5, cfg.Retrieval.MinScore)

	assert.True(t, cfg.Search.GuguData.Enabled)
	assert.Equal(t, "gg-key", cfg.Search.GuguData.APIKey)
	assert.Equal(t, 10*time.Second, cfg.Search.GuguData.Timeout)
	// 未覆盖的 provider 保留默认值
	assert.True(t, cfg.Search.Mock.Enabled)
	assert.Equal(t, "https://api.gugudata.com/metadata/ceemajor", cfg.Search.GuguData.Endpoint)

	assert.Equal(t, "Qwen/Qwen2.5-7B-Instruct", cfg.Model.Name)
	assert.Equal(t, 45*time.Second, cfg.Model.Timeout)
	assert.Equal(t, 0.3, cfg.Model.Temperature)

	assert.Equal(t, 2, cfg.Answer.MaxSources)
	assert.Equal(t, 5, cfg.Answer.HistoryTurns)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	// 设置环境变量
	envVars := map[string]string{
		"CAMPUSQA_SERVER_HTTP_PORT":       "7777",
		"CAMPUSQA_SERVER_RATE_LIMIT_RPS":  "50",
		"CAMPUSQA_DATABASE_DRIVER":        "postgres",
		"CAMPUSQA_MODEL_API_KEY":          "sk-env-key",
		"CAMPUSQA_MODEL_TIMEOUT":          "90s",
		"CAMPUSQA_SEARCH_SERPAPI_ENABLED": "true",
		"CAMPUSQA_CACHE_ADDR":             "env-redis:6379",
		"CAMPUSQA_LOG_LEVEL":              "warn",
	}

	for k, v := range envVars {
		t.Setenv(k, v)
	}

	// 加载配置
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	// 验证环境变量覆盖了默认值
	assert.Equal(t, 7777, cfg.Server.HTTPPort)
	assert.Equal(t, 50, cfg.Server.RateLimitRPS)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "sk-env-key", cfg.Model.APIKey)
	assert.Equal(t, 90*time.Second, cfg.Model.Timeout)
	assert.True(t, cfg.Search.SerpAPI.Enabled)
	assert.Equal(t, "env-redis:6379", cfg.Cache.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	// 创建临时配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  http_port: 8888
model:
  name: "yaml-model"
  api_key: "yaml-key"
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	// 环境变量应该覆盖 YAML
	t.Setenv("CAMPUSQA_SERVER_HTTP_PORT", "9999")
	t.Setenv("CAMPUSQA_MODEL_API_KEY", "env-key")

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, "env-key", cfg.Model.APIKey)
	// YAML 值应该保留（没有被环境变量覆盖）
	assert.Equal(t, "yaml-model", cfg.Model.Name)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_SERVER_HTTP_PORT", "6666")
	t.Setenv("MYAPP_MODEL_NAME", "custom-prefix-model")

	cfg, err := NewLoader().
		WithEnvPrefix("MYAPP").
		Load()
	require.NoError(t, err)

	assert.Equal(t, 6666, cfg.Server.HTTPPort)
	assert.Equal(t, "custom-prefix-model", cfg.Model.Name)
}

func TestLoader_CommaSeparatedSlice(t *testing.T) {
	t.Setenv("CAMPUSQA_SERVER_CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"https://a.example.com", "https://b.example.com"},
		cfg.Server.CORSAllowedOrigins,
	)
}

func TestLoader_WithValidator(t *testing.T) {
	validator := func(cfg *Config) error {
		if cfg.Server.HTTPPort < 1024 {
			return assert.AnError
		}
		return nil
	}

	t.Setenv("CAMPUSQA_SERVER_HTTP_PORT", "80")

	_, err := NewLoader().
		WithValidator(validator).
		Load()
	assert.Error(t, err)
}

func TestLoader_NonExistentFile(t *testing.T) {
	// 指定不存在的文件，应该使用默认值（不报错）
	cfg, err := NewLoader().
		WithConfigPath("/non/existent/path/config.yaml").
		Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
server:
  http_port: [invalid
  this is not valid yaml
`
	err := os.WriteFile(configPath, []byte(invalidYAML), 0644)
	require.NoError(t, err)

	_, err = NewLoader().
		WithConfigPath(configPath).
		Load()
	assert.Error(t, err)
}

// --- Config 方法测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid HTTP port (negative)",
			modify: func(c *Config) {
				c.Server.HTTPPort = -1
			},
			wantErr: true,
		},
		{
			name: "invalid HTTP port (too large)",
			modify: func(c *Config) {
				c.Server.HTTPPort = 70000
			},
			wantErr: true,
		},
		{
			name: "invalid top_k",
			modify: func(c *Config) {
				c.Retrieval.TopK = 0
			},
			wantErr: true,
		},
		{
			name: "invalid min_score (above 1)",
			modify: func(c *Config) {
				c.Retrieval.MinScore = 1.5
			},
			wantErr: true,
		},
		{
			name: "invalid temperature (negative)",
			modify: func(c *Config) {
				c.Model.Temperature = -0.5
			},
			wantErr: true,
		},
		{
			name: "invalid temperature (too high)",
			modify: func(c *Config) {
				c.Model.Temperature = 3.0
			},
			wantErr: true,
		},
		{
			name: "missing model name",
			modify: func(c *Config) {
				c.Model.Name = ""
			},
			wantErr: true,
		},
		{
			name: "enabled provider without endpoint",
			modify: func(c *Config) {
				c.Search.SerpAPI.Enabled = true
				c.Search.SerpAPI.Endpoint = ""
			},
			wantErr: true,
		},
		{
			name: "invalid max_sources",
			modify: func(c *Config) {
				c.Answer.MaxSources = 0
			},
			wantErr: true,
		},
		{
			name: "tls cert without key",
			modify: func(c *Config) {
				c.Server.TLSCertFile = "/etc/campusqa/tls.crt"
			},
			wantErr: true,
		},
		{
			name: "tls cert and key together",
			modify: func(c *Config) {
				c.Server.TLSCertFile = "/etc/campusqa/tls.crt"
				c.Server.TLSKeyFile = "/etc/campusqa/tls.key"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMustLoad_PanicsOnInvalid(t *testing.T) {
	t.Setenv("CAMPUSQA_RETRIEVAL_TOP_K", "0")

	assert.Panics(t, func() {
		MustLoad("")
	})
}
