package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/linhas-cache/internal/lines"
)

// Datasets is the read side of lines.Controller.
type Datasets interface {
	GetDataset(ctx context.Context) (lines.Dataset, error)
}

// Invalidator is the cache-busting side of lines.Controller.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// BusLinesHandler returns the MCP tool handler for the "bus-lines" tool.
func BusLinesHandler(ds Datasets) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if ctx.Err() != nil {
			return mcp.NewToolResultError(ctx.Err().Error()), nil
		}
		data, err := ds.GetDataset(ctx)
		if errors.Is(err, lines.ErrUnavailable) {
			return mcp.NewToolResultError("bus line data is temporarily unavailable, try again later"), nil
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ls, err := lines.ParseLines(data)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("unexpected dataset format: %v", err)), nil
		}
		if code := req.GetString("linha", ""); code != "" {
			l, ok := lines.FindLine(ls, code)
			if !ok {
				return mcp.NewToolResultError(fmt.Sprintf("line %q not found", code)), nil
			}
			return mcp.NewToolResultText(formatTimetable(l)), nil
		}
		return mcp.NewToolResultText(formatLines(ls)), nil
	}
}

// InvalidateHandler returns the MCP tool handler for "bus-lines-invalidate".
func InvalidateHandler(inv Invalidator) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := inv.Invalidate(ctx); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Cache invalidated."), nil
	}
}

func formatLines(ls []lines.Line) string {
	if len(ls) == 0 {
		return "No lines."
	}
	var sb strings.Builder
	for i, l := range ls {
		sb.WriteString(fmt.Sprintf("%s - %s (%d/%d departures)", l.Linha, l.Nome, len(l.PartidaA), len(l.PartidaB)))
		if i < len(ls)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func formatTimetable(l lines.Line) string {
	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(l.Linha)
	sb.WriteString(" - ")
	sb.WriteString(l.Nome)
	sb.WriteString("\n\n## Departures A\n")
	sb.WriteString(joinOrNone(l.PartidaA))
	sb.WriteString("\n\n## Departures B\n")
	sb.WriteString(joinOrNone(l.PartidaB))
	return sb.String()
}

func joinOrNone(times []string) string {
	if len(times) == 0 {
		return "none"
	}
	return strings.Join(times, " ")
}
