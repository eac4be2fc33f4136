// Package mcpserver exposes the research pipeline over the Model Context
// Protocol, so MCP-capable clients can run web searches and full
// competitive-research reports as tools.
package mcpserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Declandp/market-research-agent/internal/tool"
)

// version is set by the linker at build time.
var version = "dev"

// ReportFunc runs the full research pipeline and returns the rendered report
// together with the path it was written to (empty when not persisted).
type ReportFunc func(ctx context.Context, company string, competitors []string) (report, path string, err error)

// ResearchService holds the dependencies the MCP tool handlers call into.
type ResearchService struct {
	tools  *tool.Adapter
	report ReportFunc
}

// NewResearchService creates a ResearchService backed by the given tool
// adapter and report pipeline.
func NewResearchService(tools *tool.Adapter, report ReportFunc) *ResearchService {
	return &ResearchService{tools: tools, report: report}
}

// WebSearch runs one web search through the tool adapter.
func (s *ResearchService) WebSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input WebSearchInput,
) (*mcp.CallToolResult, WebSearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, WebSearchOutput{}, fmt.Errorf("query is required")
	}

	results, err := s.tools.Invoke(ctx, "web_search", map[string]any{"query": input.Query})
	if err != nil {
		return nil, WebSearchOutput{}, fmt.Errorf("web search: %w", err)
	}
	return nil, WebSearchOutput{Results: results}, nil
}

// GenerateReport runs the whole research pipeline for a company and its
// competitors and returns the rendered Markdown report.
func (s *ResearchService) GenerateReport(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateReportInput,
) (*mcp.CallToolResult, GenerateReportOutput, error) {
	if strings.TrimSpace(input.Company) == "" {
		return nil, GenerateReportOutput{}, fmt.Errorf("company is required")
	}
	if s.report == nil {
		return nil, GenerateReportOutput{}, fmt.Errorf("report pipeline not configured")
	}

	report, path, err := s.report(ctx, input.Company, input.Competitors)
	if err != nil {
		return nil, GenerateReportOutput{}, fmt.Errorf("generate report: %w", err)
	}
	return nil, GenerateReportOutput{Report: report, Path: path}, nil
}

// NewServer creates an MCP server with the research tools registered.
func NewServer(svc *ResearchService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "market-research-agent",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "web_search",
		Description: "Search the web and return the top organic results as titled snippets with source links.",
	}, svc.WebSearch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_report",
		Description: "Run the full competitive-research pipeline for a company and its competitors and return the Markdown report.",
	}, svc.GenerateReport)

	return server
}

// Run starts an HTTP server exposing the research MCP tools.
func Run(ctx context.Context, svc *ResearchService, addr string) error {
	server := NewServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
