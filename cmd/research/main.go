package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Declandp/market-research-agent/internal/config"
	"github.com/Declandp/market-research-agent/internal/crew"
	"github.com/Declandp/market-research-agent/internal/mcpserver"
	"github.com/Declandp/market-research-agent/internal/report"
	"github.com/Declandp/market-research-agent/internal/research"
)

// CLI flags parsed from command line.
type cliFlags struct {
	Company     string
	Competitors string
	OutputDir   string
	ConfigDir   string
	ServeMCP    bool
	MCPAddr     string
	Verbose     bool
	Version     bool
}

// version is set by the linker at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	var flags cliFlags

	fs := flag.NewFlagSet("research", flag.ContinueOnError)
	fs.StringVar(&flags.Company, "company", "", "company the research is performed for")
	fs.StringVar(&flags.Competitors, "competitors", "", "comma-separated competitor names")
	fs.StringVar(&flags.OutputDir, "output-dir", "", "output directory for generated reports")
	fs.StringVar(&flags.ConfigDir, "config", ".", "directory containing research.yml")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "run as an MCP server instead of a one-shot pipeline")
	fs.StringVar(&flags.MCPAddr, "mcp-addr", ":8815", "listen address for the MCP server")
	fs.BoolVar(&flags.Verbose, "verbose", false, "enable verbose output")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Fprintln(stdout, version)
		return nil
	}

	fc, err := config.LoadFile(flags.ConfigDir)
	if err != nil {
		return err
	}
	cfg, err := config.Resolve(fc, os.Getenv)
	if err != nil {
		return err
	}
	if flags.OutputDir != "" {
		cfg.OutputDir = flags.OutputDir
	}
	if flags.Verbose {
		cfg.Verbose = true
	}

	pipeline, err := research.NewPipeline(cfg)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.ServeMCP {
		return serveMCP(ctx, pipeline, cfg, flags.MCPAddr, stdout)
	}

	company, competitors, err := resolveSubjects(flags, stdin, stdout)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Researching %s", company)
	if len(competitors) > 0 {
		fmt.Fprintf(stdout, " against %s", strings.Join(competitors, ", "))
	}
	fmt.Fprintln(stdout)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range pipeline.Progress() {
			if ev.Status == crew.StatusRunning || ev.Status.IsTerminal() || cfg.Verbose {
				fmt.Fprintln(stdout, crew.FormatProgress(ev))
			}
		}
	}()

	result, err := pipeline.Run(ctx, company, competitors)
	pipeline.Close()
	<-done
	if err != nil {
		return err
	}

	path, err := report.Write(result.Report, cfg.OutputDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\nReport written to %s\n", path)
	return nil
}

// resolveSubjects takes the company and competitor list from flags, falling
// back to interactive prompts when absent.
func resolveSubjects(flags cliFlags, stdin io.Reader, stdout io.Writer) (string, []string, error) {
	reader := bufio.NewReader(stdin)

	company := strings.TrimSpace(flags.Company)
	if company == "" {
		fmt.Fprint(stdout, "Company to research: ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", nil, fmt.Errorf("reading company name: %w", err)
		}
		company = strings.TrimSpace(line)
	}
	if company == "" {
		return "", nil, fmt.Errorf("company name is required")
	}

	raw := flags.Competitors
	if strings.TrimSpace(flags.Company) == "" && raw == "" {
		fmt.Fprint(stdout, "Competitors (comma-separated, blank for none): ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			line = ""
		}
		raw = line
	}

	return company, splitCompetitors(raw), nil
}

// splitCompetitors parses a comma-separated list, dropping empties.
func splitCompetitors(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// serveMCP exposes the pipeline's tools and report generation over MCP until
// the context is cancelled.
func serveMCP(ctx context.Context, pipeline *research.Pipeline, cfg *config.Config, addr string, stdout io.Writer) error {
	generate := func(ctx context.Context, company string, competitors []string) (string, string, error) {
		result, err := pipeline.Run(ctx, company, competitors)
		if err != nil {
			return "", "", err
		}
		path, err := report.Write(result.Report, cfg.OutputDir)
		if err != nil {
			return "", "", err
		}
		return result.Markdown, path, nil
	}

	svc := mcpserver.NewResearchService(pipeline.Tools(), generate)
	fmt.Fprintf(stdout, "MCP server listening on %s\n", addr)
	return mcpserver.Run(ctx, svc, addr)
}
