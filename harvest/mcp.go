// CLAUDE:SUMMARY Registers the vidharvest MCP tools: scrape, scrape_single, scrape_rise, strategy, and run history when a store is attached.
package harvest

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/vidharvest/idgen"
	"github.com/hazyhaar/vidharvest/kit"
)

// RegisterMCP registers the harvest tools on an MCP server. fallback supplies
// credentials when a tool call carries none; it may be nil.
func (h *Harvester) RegisterMCP(srv *mcp.Server, fallback func() *Credentials) {
	if fallback == nil {
		fallback = func() *Credentials { return nil }
	}
	h.registerScrapeTool(srv, fallback)
	h.registerScrapeSingleTool(srv, fallback)
	h.registerScrapeRiseTool(srv)
	h.registerStrategyTool(srv)
	if h.store != nil {
		h.registerListRunsTool(srv)
		h.registerGetRunTool(srv)
	}
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func decodeInto[T any](req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r T
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
	}
	return &kit.MCPDecodeResult{Request: &r}, nil
}

var credentialProps = map[string]any{
	"email":    map[string]any{"type": "string", "description": "Sign-in email (default: server credentials)"},
	"password": map[string]any{"type": "string", "description": "Sign-in password (default: server credentials)"},
}

func withCredentialProps(props map[string]any) map[string]any {
	for k, v := range credentialProps {
		props[k] = v
	}
	return props
}

func pickCredentials(email, password string, fallback func() *Credentials) *Credentials {
	if email != "" || password != "" {
		return &Credentials{Email: email, Password: password}
	}
	return fallback()
}

// --- scrape ---

type scrapeRequest struct {
	Links    []string `json:"links"`
	Email    string   `json:"email,omitempty"`
	Password string   `json:"password,omitempty"`
}

func (h *Harvester) registerScrapeTool(srv *mcp.Server, fallback func() *Credentials) {
	tool := &mcp.Tool{
		Name:        "vidharvest_scrape",
		Description: "Sign in and harvest YouTube links from course module addresses, in one browser session.",
		InputSchema: inputSchema(withCredentialProps(map[string]any{
			"links": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Course module addresses"},
		}), []string{"links"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*scrapeRequest)
		if len(r.Links) == 0 {
			return nil, errors.New("links is required")
		}
		return h.RunModuleScrape(ctx, pickCredentials(r.Email, r.Password, fallback), r.Links), nil
	}

	kit.RegisterMCPTool(srv, tool, kit.Logging(h.logger, "vidharvest_scrape")(endpoint), decodeInto[scrapeRequest])
}

// --- scrape_single ---

type scrapeSingleRequest struct {
	Link     string `json:"link"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

func (h *Harvester) registerScrapeSingleTool(srv *mcp.Server, fallback func() *Credentials) {
	tool := &mcp.Tool{
		Name:        "vidharvest_scrape_single",
		Description: "Sign in and harvest YouTube links from one content page and the pages after it.",
		InputSchema: inputSchema(withCredentialProps(map[string]any{
			"link": map[string]any{"type": "string", "description": "Content page address"},
		}), []string{"link"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*scrapeSingleRequest)
		if r.Link == "" {
			return nil, errors.New("link is required")
		}
		return h.RunSingleContentScrape(ctx, pickCredentials(r.Email, r.Password, fallback), r.Link), nil
	}

	kit.RegisterMCPTool(srv, tool, kit.Logging(h.logger, "vidharvest_scrape_single")(endpoint), decodeInto[scrapeSingleRequest])
}

// --- scrape_rise ---

type linkRequest struct {
	Link string `json:"link"`
}

func (h *Harvester) registerScrapeRiseTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "vidharvest_scrape_rise",
		Description: "Harvest YouTube links from an Articulate Rise share link, lesson by lesson. No sign-in.",
		InputSchema: inputSchema(map[string]any{
			"link": map[string]any{"type": "string", "description": "Rise share link"},
		}, []string{"link"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*linkRequest)
		if r.Link == "" {
			return nil, errors.New("link is required")
		}
		return h.RunLessonChain(ctx, r.Link), nil
	}

	kit.RegisterMCPTool(srv, tool, kit.Logging(h.logger, "vidharvest_scrape_rise")(endpoint), decodeInto[linkRequest])
}

// --- strategy ---

type strategyRequest struct {
	Address string `json:"address"`
}

type strategyResponse struct {
	Address  string   `json:"address"`
	Strategy Strategy `json:"strategy"`
}

func (h *Harvester) registerStrategyTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "vidharvest_strategy",
		Description: "Report which harvest flow an address would use. Does not open a browser.",
		InputSchema: inputSchema(map[string]any{
			"address": map[string]any{"type": "string", "description": "Course or share address"},
		}, []string{"address"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*strategyRequest)
		return strategyResponse{Address: r.Address, Strategy: SelectStrategy(r.Address)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[strategyRequest])
}

// --- runs ---

type listRunsRequest struct {
	Limit int `json:"limit,omitempty"`
}

func (h *Harvester) registerListRunsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "vidharvest_list_runs",
		Description: "List recent harvest runs, newest first.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Max runs (default 20)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*listRunsRequest)
		if r.Limit <= 0 {
			r.Limit = 20
		}
		return h.store.ListRuns(ctx, r.Limit)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[listRunsRequest])
}

type getRunRequest struct {
	ID string `json:"id"`
}

func (h *Harvester) registerGetRunTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "vidharvest_get_run",
		Description: "Get one harvest run with all its links.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Run id (run_...)"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*getRunRequest)
		if _, err := idgen.ParseRun(r.ID); err != nil {
			return nil, err
		}
		return h.store.GetRun(ctx, r.ID)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[getRunRequest])
}
