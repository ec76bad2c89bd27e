package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/matthewjhunter/crier"
	"github.com/matthewjhunter/crier/internal/output"
)

// server is the crier MCP server.
type server struct {
	engine      *crier.Engine
	defaultUser string
	poller      *poller // non-nil when --poll is enabled
}

func newServer(engine *crier.Engine, defaultUser string) *server {
	return &server{engine: engine, defaultUser: defaultUser}
}

// resolveUser returns the requested user, falling back to the default.
func (s *server) resolveUser(userID *string) string {
	if userID != nil && strings.TrimSpace(*userID) != "" {
		return strings.TrimSpace(*userID)
	}
	return s.defaultUser
}

// newMCPServer registers every tool on a fresh SDK server.
func (s *server) newMCPServer() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "crier", Version: "0.1.0"}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_articles",
		Description: "Get the news articles published on a date. The first request for a date fetches it from the source, which can take a while; later requests are instant. Returns titles, URLs and content keys, plus the user's label on each article when a user is known.",
	}, s.getArticles)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_article",
		Description: "Get one stored article with its full text, sentiment and entities, by content key or by title.",
	}, s.getArticle)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "record_preference",
		Description: "Record whether the user likes, dislikes or is uncertain about an article. Replaces any earlier label the user gave the same article.",
	}, s.recordPreference)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_labeled",
		Description: "List the articles the user gave a label (like, dislike or uncertain), ordered by publish date then title.",
	}, s.getLabeled)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "navigate_date",
		Description: "Resolve the previous day, the next day, or a random day since 2018-01-01 relative to a date.",
	}, s.navigate)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_dates",
		Description: "List every date that has been fetched, newest first, with article counts.",
	}, s.listDates)

	if s.poller != nil {
		mcp.AddTool(srv, &mcp.Tool{
			Name:        "poll_now",
			Description: "Fetch the most recent complete date and enrich new articles immediately instead of waiting for the next poll.",
		}, s.pollNow)
	}
	return srv
}

// run serves MCP over stdio until ctx is cancelled or stdin closes.
func (s *server) run(ctx context.Context) error {
	log.SetOutput(os.Stderr)
	log.Printf("crier-mcp starting (user=%q)", s.defaultUser)
	return s.newMCPServer().Run(ctx, &mcp.StdioTransport{})
}

func (s *server) getArticles(ctx context.Context, _ *mcp.CallToolRequest, in getArticlesInput) (*mcp.CallToolResult, any, error) {
	date := strings.TrimSpace(in.Date)
	if date == "today" {
		date = s.engine.Today()
	}
	includeBody := in.IncludeBody != nil && *in.IncludeBody

	list, err := s.engine.GetArticles(ctx, date, includeBody)
	if err != nil {
		return errorResult(err), nil, nil
	}

	var labels map[string]crier.Label
	if uid := s.resolveUser(in.UserID); uid != "" {
		if labels, err = s.engine.Labels(ctx, uid); err != nil {
			return errorResult(err), nil, nil
		}
	}
	return jsonResult(output.Annotate(list, labels))
}

func (s *server) getArticle(ctx context.Context, _ *mcp.CallToolRequest, in getArticleInput) (*mcp.CallToolResult, any, error) {
	var (
		a   *crier.Article
		err error
	)
	switch {
	case in.ContentKey != nil && *in.ContentKey != "":
		a, err = s.engine.GetArticle(ctx, *in.ContentKey)
	case in.Title != nil && *in.Title != "":
		a, err = s.engine.GetArticleByTitle(ctx, *in.Title)
	default:
		return errorResult(fmt.Errorf("content_key or title is required")), nil, nil
	}
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(a)
}

func (s *server) recordPreference(ctx context.Context, _ *mcp.CallToolRequest, in recordPreferenceInput) (*mcp.CallToolResult, any, error) {
	uid := s.resolveUser(in.UserID)
	if err := s.engine.RecordPreference(ctx, uid, in.Title, in.Date, in.Label); err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(fmt.Sprintf("Recorded %s for %q.", strings.ToLower(strings.TrimSpace(in.Label)), strings.TrimSpace(in.Title))), nil, nil
}

func (s *server) getLabeled(ctx context.Context, _ *mcp.CallToolRequest, in getLabeledInput) (*mcp.CallToolResult, any, error) {
	list, err := s.engine.GetLabeled(ctx, s.resolveUser(in.UserID), in.Label)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(list)
}

func (s *server) navigate(_ context.Context, _ *mcp.CallToolRequest, in navigateInput) (*mcp.CallToolResult, any, error) {
	date := strings.TrimSpace(in.Date)
	if date == "today" {
		date = s.engine.Today()
	}
	target, err := s.engine.Navigate(date, in.Diff)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(target), nil, nil
}

func (s *server) listDates(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	dates, err := s.engine.ListDates(ctx)
	if err != nil {
		return errorResult(err), nil, nil
	}
	if dates == nil {
		dates = []crier.DateEntry{}
	}
	return jsonResult(dates)
}

func (s *server) pollNow(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	result, err := s.poller.poll(ctx)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(result)
}

// --- result helpers ---

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + err.Error()}},
		IsError: true,
	}
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("marshal result: %w", err)), nil, nil
	}
	return textResult(string(data)), nil, nil
}
