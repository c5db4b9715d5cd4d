package main

import (
	"context"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardcser/linhas-cache/internal/app"
	"github.com/leonardcser/linhas-cache/internal/config"
	"github.com/leonardcser/linhas-cache/internal/lines"
	"github.com/leonardcser/linhas-cache/internal/logger"
	"github.com/leonardcser/linhas-cache/internal/tools"
)

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Infof("Starting bus lines MCP server")

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Errorf("config: %v", err)
		panic(err)
	}
	// The MCP server is usually spawned per client; unless told otherwise,
	// share the daemon's cache instead of locking the bolt file.
	if os.Getenv("LINHAS_CACHE_BACKEND") == "" {
		cfg.Backend = config.BackendDaemon
	}
	ctx := context.Background()
	a, err := app.Open(ctx, cfg)
	if err != nil {
		logger.Errorf("startup: %v", err)
		panic(err)
	}
	defer a.Close()

	a.Lines.StartupPrewarm(ctx)
	sched, err := lines.NewScheduler(a.Lines, cfg.PrewarmCron, cfg.Location)
	if err != nil {
		logger.Errorf("scheduler: %v", err)
		panic(err)
	}
	sched.Start()
	defer sched.Stop()

	s := server.NewMCPServer(
		"Bus Lines MCP",
		"0.1.0",
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)
	logger.Infof("Created MCP server instance")

	toolLines := mcp.NewTool("bus-lines",
		mcp.WithDescription(multiline(
			"Lists the municipal bus lines with their departure timetables",
			"\nFunctionality:",
			"- Without arguments, returns every line code and name with departure counts",
			"- With a line code, returns that line's departure times for both directions",
			"\nUsage notes:",
			"- Data is cached for about 12 hours and refreshed at 00:00 and 12:00",
			"- If upstream is down and nothing is cached, the tool reports the data as unavailable",
		)),
		mcp.WithString("linha", mcp.Description("Optional line code, e.g. \"01\"")),
	)
	s.AddTool(toolLines, tools.BusLinesHandler(a.Lines))
	logger.Infof("Registered bus-lines tool")

	toolInvalidate := mcp.NewTool("bus-lines-invalidate",
		mcp.WithDescription("Drops the cached bus line data so the next read fetches it again"),
	)
	s.AddTool(toolInvalidate, tools.InvalidateHandler(a.Lines))
	logger.Infof("Registered bus-lines-invalidate tool")

	logger.Infof("Starting MCP server on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Errorf("server error: %v", err)
	}
}

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }
