package internal

import (
	"context"
	"embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// CommandRunner executes external commands
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultCommandRunner implements CommandRunner
type DefaultCommandRunner struct{}

func (r *DefaultCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Config holds application settings
type Config struct {
	// User configurable settings
	SummaryProvider  string
	SummaryModel     string
	TranscribeModel  string
	GeminiModel      string
	DataDir          string
	Addr             string
	DownloadTimeout  time.Duration
	SummaryTimeout   time.Duration
	WhisperTimeout   time.Duration
	ChunkSize        int
	MaxUploadMB      int64
	WatchConcurrency int
	Verbose          bool
	Quiet            bool
	OpenAIAPIKey     string
	GeminiAPIKey     string
	Prompt           string
	MCPLogEnabled    bool

	// Fixed XDG paths (not configurable)
	ConfigDir string
	CacheDir  string
	TempDir   string
}

//go:embed config.toml prompt.txt
var defaultFS embed.FS

// WhisperLimit is the maximum file size accepted by OpenAI's Whisper API (25 MiB)
const WhisperLimit int64 = 25 << 20

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// MaxUploadBytes converts the configured upload limit; zero means unlimited
func (c *Config) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 0
	}
	return c.MaxUploadMB << 20
}

// HistoryPath is the location of the sqlite job index
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// ensureDefaultFile writes an embedded default into configDir unless the file already exists
func ensureDefaultFile(configDir, embedFilename, description string) error {
	filePath := filepath.Join(configDir, embedFilename)
	if FileExists(filePath) {
		return nil
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultContent, err := defaultFS.ReadFile(embedFilename)
	if err != nil {
		return fmt.Errorf("reading embedded default %s: %w", description, err)
	}

	if err := os.WriteFile(filePath, defaultContent, 0644); err != nil {
		return fmt.Errorf("writing default %s: %w", description, err)
	}

	LogInfo("Created default %s at %s", description, filePath)
	return nil
}

// EnsureDefaultConfig creates config.toml in the config directory from the embedded default
func EnsureDefaultConfig(configDir string) error {
	return ensureDefaultFile(configDir, "config.toml", "configuration")
}

// EnsureDefaultPrompt creates prompt.txt in the config directory from the embedded default
func EnsureDefaultPrompt(configDir string) error {
	return ensureDefaultFile(configDir, "prompt.txt", "prompt template")
}

// InitConfig initializes Viper and loads configuration
func InitConfig(configFile string) *Config {
	configDir := filepath.Join(xdg.ConfigHome, "tldl")
	dataDir := filepath.Join(xdg.DataHome, "tldl")
	cacheDir := filepath.Join(xdg.CacheHome, "tldl")
	tempDir := filepath.Join(cacheDir, "temp_chunks")

	v := viper.New()

	v.SetDefault("summary_provider", ProviderOpenAI)
	v.SetDefault("summary_model", "gpt-4o-mini")
	v.SetDefault("transcribe_model", "whisper-1")
	v.SetDefault("gemini_model", "gemini-2.5-flash")
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("addr", ":8000")
	v.SetDefault("download_timeout", 60*time.Second)
	v.SetDefault("summary_timeout", 2*time.Minute)
	v.SetDefault("whisper_timeout", 10*time.Minute)
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("max_upload_mb", 200)
	v.SetDefault("watch_concurrency", 1)
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("prompt", "") // empty uses prompt.txt from the config dir
	v.SetDefault("mcp_log", true)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TLDL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	_ = v.BindEnv("openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("gemini_api_key", "GEMINI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			LogWarn("Error reading config file: %v", err)
		}
	}

	config := &Config{
		SummaryProvider:  strings.ToLower(v.GetString("summary_provider")),
		SummaryModel:     v.GetString("summary_model"),
		TranscribeModel:  v.GetString("transcribe_model"),
		GeminiModel:      v.GetString("gemini_model"),
		DataDir:          v.GetString("data_dir"),
		Addr:             v.GetString("addr"),
		DownloadTimeout:  v.GetDuration("download_timeout"),
		SummaryTimeout:   v.GetDuration("summary_timeout"),
		WhisperTimeout:   v.GetDuration("whisper_timeout"),
		ChunkSize:        v.GetInt("chunk_size"),
		MaxUploadMB:      v.GetInt64("max_upload_mb"),
		WatchConcurrency: v.GetInt("watch_concurrency"),
		Verbose:          v.GetBool("verbose"),
		Quiet:            v.GetBool("quiet"),
		OpenAIAPIKey:     v.GetString("openai_api_key"),
		GeminiAPIKey:     v.GetString("gemini_api_key"),
		Prompt:           v.GetString("prompt"),
		MCPLogEnabled:    v.GetBool("mcp_log"),

		ConfigDir: configDir,
		CacheDir:  cacheDir,
		TempDir:   tempDir,
	}

	if config.Verbose {
		LogDebug("Using config file: %s", v.ConfigFileUsed())
	}

	return config
}
