package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/rtzll/tldl/internal"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve tldl tools over the Model Context Protocol",
	Long: `Serve tldl to MCP clients such as Claude Desktop.

Tools:
  summarize_audio_url  download, transcribe and summarize a URL (uses paid APIs)
  get_transcript       stored transcript for an id
  get_summary          stored summary and key points for an id

stdio is the default transport; stdout then carries the protocol, so logs go to
tldl.log in the cache directory. Use --transport=http to listen on --port.`,
	Example: `  tldl mcp
  tldl mcp --transport=http --port=8080
  tldl mcp setup-claude`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		longRunning.Store(true)
		transport, _ := cmd.Flags().GetString("transport")
		// stdout carries the protocol on stdio
		internal.InitLogging(config, transport != "http")
		config.Quiet = true
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		app, err := internal.NewApp(config)
		if err != nil {
			return err
		}
		defer app.Close()

		mcpServer := internal.NewMCPServer(app, version)

		return mcpServer.Start(cmd.Context(), transport, port)
	},
}

var setupClaudeCmd = &cobra.Command{
	Use:   "setup-claude",
	Short: "Register tldl as an MCP server in Claude Desktop",
	Long: `Add a "tldl" entry to Claude Desktop's claude_desktop_config.json.

Other MCP servers and settings in the file are left untouched. The entry runs
this binary with "mcp" and passes the XDG directories, the data directory and
any API keys found in the current environment, so the server sees the same
configuration as the CLI.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("getting executable path: %w", err)
		}
		if execPath, err = filepath.EvalSymlinks(execPath); err != nil {
			return fmt.Errorf("resolving executable path: %w", err)
		}

		path, err := claudeDesktopConfigPath()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return fmt.Errorf("Claude Desktop config not found at %s (start Claude Desktop once first)", path)
		}
		if err != nil {
			return fmt.Errorf("reading Claude Desktop config: %w", err)
		}

		updated, err := addMCPServer(data, "tldl", mcpServerEntry{
			Command: execPath,
			Args:    []string{"mcp"},
			Env:     mcpServerEnv(),
		})
		if err != nil {
			return err
		}

		if err := os.WriteFile(path, updated, 0644); err != nil {
			return fmt.Errorf("writing Claude Desktop config: %w", err)
		}

		fmt.Printf("Added tldl to %s\n", path)
		fmt.Println("Restart Claude Desktop to load the server")
		return nil
	},
}

type mcpServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

// addMCPServer sets mcpServers[name] in a Claude Desktop config document,
// keeping every other key as it was
func addMCPServer(data []byte, name string, entry mcpServerEntry) ([]byte, error) {
	doc := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing Claude Desktop config: %w", err)
		}
	}

	servers := map[string]json.RawMessage{}
	if raw, ok := doc["mcpServers"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &servers); err != nil {
			return nil, fmt.Errorf("parsing mcpServers: %w", err)
		}
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	servers[name] = encoded

	if doc["mcpServers"], err = json.Marshal(servers); err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

func mcpServerEnv() map[string]string {
	env := map[string]string{
		"XDG_DATA_HOME":   xdg.DataHome,
		"XDG_CONFIG_HOME": xdg.ConfigHome,
		"XDG_CACHE_HOME":  xdg.CacheHome,
	}
	for _, key := range []string{"OPENAI_API_KEY", "GEMINI_API_KEY", "TLDL_DATA_DIR"} {
		if v := os.Getenv(key); v != "" {
			env[key] = v
		}
	}
	return env
}

func claudeDesktopConfigPath() (string, error) {
	const name = "claude_desktop_config.json"

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "Claude", name), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		return filepath.Join(appData, "Claude", name), nil
	case "linux":
		return filepath.Join(xdg.ConfigHome, "Claude", name), nil
	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

func init() {
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol (stdio or http)")
	mcpCmd.Flags().Int("port", 8080, "Port for HTTP transport (only used with --transport=http)")
	mcpCmd.AddCommand(setupClaudeCmd)
	rootCmd.AddCommand(mcpCmd)
}
