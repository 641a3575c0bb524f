package cmd

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/rtzll/tldl/internal"
)

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API for uploads and URL summarization.

Endpoints:
  POST /summarize/upload          multipart form, field "file"
  POST /summarize/url             JSON {"url": "..."}
  GET  /download/transcript/:id
  GET  /download/summary/:id
  GET  /download/bullets/:id
  GET  /jobs
  GET  /jobs/:id
  GET  /health`,
	Example: `  # Listen on the configured address (default :8000)
  tldl serve

  # Listen on another port
  tldl serve --addr :9000`,
	Args: cobra.NoArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		longRunning.Store(true)
		if !config.Verbose {
			internal.DefaultLogger().SetLevel("info")
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		// gin's own output (route table, panics) follows the app log
		gin.DefaultWriter = internal.DefaultLogger().Writer()
		gin.DefaultErrorWriter = internal.DefaultLogger().Writer()
		if config.Verbose {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = config.Addr
		}

		return internal.NewServer(app, addr).Run(cmd.Context())
	},
}

func init() {
	internal.AddModelFlags(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from config, :8000)")
	rootCmd.AddCommand(serveCmd)
}
