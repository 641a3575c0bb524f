package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer wraps the MCP server and application dependencies
type MCPServer struct {
	app       *App
	mcpServer *server.MCPServer
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(app *App, version string) *MCPServer {
	mcpServer := server.NewMCPServer(
		"tldl-server",
		version,
		server.WithToolCapabilities(true),
	)

	s := &MCPServer{
		app:       app,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s
}

func (s *MCPServer) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("summarize_audio_url",
		mcp.WithDescription("Download audio from a direct link, a YouTube video or a podcast feed (latest episode), transcribe it with OpenAI Whisper (PAID) and summarize it. Returns the summary paragraph, bullet points and an id for get_transcript/get_summary. Ask the user before calling this tool."),
		mcp.WithString("url",
			mcp.Description("Audio file URL, YouTube URL or RSS/Atom feed URL"),
			mcp.Required(),
		),
	), s.handleSummarizeURL)

	s.mcpServer.AddTool(mcp.NewTool("get_transcript",
		mcp.WithDescription("Return the full transcript of a previously processed recording (FREE)."),
		mcp.WithString("id",
			mcp.Description("Identifier returned by summarize_audio_url"),
			mcp.Required(),
		),
	), s.handleGetTranscript)

	s.mcpServer.AddTool(mcp.NewTool("get_summary",
		mcp.WithDescription("Return the stored summary paragraph and bullet points of a previously processed recording (FREE)."),
		mcp.WithString("id",
			mcp.Description("Identifier returned by summarize_audio_url"),
			mcp.Required(),
		),
	), s.handleGetSummary)
}

func (s *MCPServer) handleSummarizeURL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url parameter is required and must be a string"), nil
	}

	result, err := s.app.ProcessURL(ctx, url)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to summarize audio", err), nil
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "ID: %s\n", result.FileID)
	if result.Title != "" {
		fmt.Fprintf(&buf, "Title: %s\n", result.Title)
	}
	fmt.Fprintf(&buf, "Source: %s\n\n", result.SourceKind)
	buf.WriteString(formatSummary(result.Summary))

	return mcp.NewToolResultText(buf.String()), nil
}

func (s *MCPServer) handleGetTranscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required and must be a string"), nil
	}

	transcript, err := s.app.TranscriptByID(strings.TrimSpace(id))
	if err != nil {
		return mcp.NewToolResultErrorFromErr("transcript not found", err), nil
	}

	return mcp.NewToolResultText(transcript.Text), nil
}

func (s *MCPServer) handleGetSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required and must be a string"), nil
	}

	summary, err := s.app.SummaryByID(strings.TrimSpace(id))
	if err != nil {
		return mcp.NewToolResultErrorFromErr("summary not found", err), nil
	}

	return mcp.NewToolResultText(formatSummary(summary)), nil
}

func formatSummary(summary *SummaryResult) string {
	var buf strings.Builder
	buf.WriteString("Summary:\n")
	buf.WriteString(summary.Paragraph)
	if len(summary.Bullets) > 0 {
		buf.WriteString("\n\nKey points:\n")
		for _, b := range summary.Bullets {
			fmt.Fprintf(&buf, "- %s\n", b)
		}
	}
	return strings.TrimRight(buf.String(), "\n")
}

// Start starts the MCP server using the specified transport
func (s *MCPServer) Start(ctx context.Context, transport string, port int) error {
	if transport == "http" {
		httpServer := server.NewStreamableHTTPServer(s.mcpServer)
		addr := fmt.Sprintf(":%d", port)
		go func() {
			<-ctx.Done()
			_ = httpServer.Shutdown(context.Background())
		}()
		LogInfo("MCP server listening on %s", addr)
		return httpServer.Start(addr)
	}

	LogInfo("MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}
