package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-scout-go/internal/constants"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644), "无法写入临时配置文件")
	return path
}

// TestLoadConfig_AppliesDefaults 验证未填写的字段会被补上默认值
func TestLoadConfig_AppliesDefaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("LLM_API_KEY", "")
	path := writeConfig(t, `
llm:
  api_key: "file-key"
server:
  api_keys: ["k1", "k2"]
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "file-key", config.LLM.APIKey)
	assert.Equal(t, constants.DefaultLLMAPIURL, config.LLM.APIURL)
	assert.Equal(t, constants.DefaultLLMModel, config.LLM.Model)
	assert.InDelta(t, constants.DefaultLLMTemperature, config.LLM.Temperature, 1e-9)
	assert.Equal(t, constants.DefaultLLMMaxTokens, config.LLM.MaxTokens)
	assert.Equal(t, "data", config.Storage.DataDir)
	assert.Equal(t, "memory", config.Session.MemoryBackend)
	assert.Equal(t, ":8080", config.Server.Address)
	assert.Equal(t, []string{"k1", "k2"}, config.Server.APIKeys)
	assert.Equal(t, constants.ServiceName, config.Tracing.ServiceName)
	assert.NoError(t, config.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
llm:
  api_key: "file-key"
  model: "file-model"
`)
	t.Setenv("LLM_API_KEY", "llm-key")
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("LLM_API_URL", "http://localhost:9999/v1/chat/completions")
	t.Setenv("LLM_MODEL", "env-model")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "groq-key", config.LLM.APIKey, "GROQ_API_KEY 优先")
	assert.Equal(t, "http://localhost:9999/v1/chat/completions", config.LLM.APIURL)
	assert.Equal(t, "env-model", config.LLM.Model)
}

func TestLoadConfigFromFileOnly_IgnoresEnv(t *testing.T) {
	path := writeConfig(t, `
llm:
  model: "file-model"
`)
	t.Setenv("LLM_MODEL", "env-model")

	config, err := LoadConfigFromFileOnly(path)
	require.NoError(t, err)
	assert.Equal(t, "file-model", config.LLM.Model)

	_, err = LoadConfigFromFileOnly("")
	assert.Error(t, err)
	_, err = LoadConfigFromFileOnly(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "llm: [unclosed")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_MissingFileInTestRunFallsBack(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "talent_scout", config.MySQL.Database)
}

func TestValidate(t *testing.T) {
	config := createDefaultConfig()
	require.NoError(t, config.Validate())

	config.Session.MemoryBackend = "memcached"
	assert.Error(t, config.Validate())

	config = createDefaultConfig()
	config.MinIO.Enabled = true
	config.MinIO.Endpoint = ""
	assert.Error(t, config.Validate(), "启用 MinIO 时 endpoint 必填")

	config = createDefaultConfig()
	config.Logger.Format = "xml"
	assert.Error(t, config.Validate())
}

func TestCreateSampleConfig(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "secret")
	path := filepath.Join(t.TempDir(), "sample.yaml")

	require.NoError(t, CreateSampleConfig(path))
	assert.Error(t, CreateSampleConfig(path), "已存在的文件不应被覆盖")

	config, err := LoadConfigFromFileOnly(path)
	require.NoError(t, err)
	assert.Empty(t, config.LLM.APIKey, "示例配置不应包含密钥")
	assert.Equal(t, "screening-transcripts", config.MinIO.TranscriptsBucket)
}

func TestDurations(t *testing.T) {
	assert.Equal(t, 5*time.Second, GetDuration("5s", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("bogus", time.Minute))

	config := &Config{}
	assert.Equal(t, constants.DefaultHistoryTTL, config.HistoryTTL())
	config.Session.HistoryTTLMinutes = 30
	assert.Equal(t, 30*time.Minute, config.HistoryTTL())
}

func TestIdleTimeoutDuration(t *testing.T) {
	assert.Equal(t, 30*time.Minute, SessionConfig{IdleTimeout: "30m"}.IdleTimeoutDuration())
	assert.Equal(t, time.Hour, SessionConfig{IdleTimeout: "soon"}.IdleTimeoutDuration())
	assert.Equal(t, time.Hour, SessionConfig{}.IdleTimeoutDuration())
}
