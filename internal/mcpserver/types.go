package mcpserver

// WebSearchInput is the input for the web_search MCP tool.
type WebSearchInput struct {
	Query string `json:"query" jsonschema:"the search query"`
}

// WebSearchOutput is the result of the web_search MCP tool.
type WebSearchOutput struct {
	Results string `json:"results"`
}

// GenerateReportInput is the input for the generate_report MCP tool.
type GenerateReportInput struct {
	Company     string   `json:"company" jsonschema:"the company the research is performed for"`
	Competitors []string `json:"competitors,omitempty" jsonschema:"competitor company names to research"`
}

// GenerateReportOutput is the result of the generate_report MCP tool.
type GenerateReportOutput struct {
	Report string `json:"report"`
	Path   string `json:"path,omitempty"`
}
