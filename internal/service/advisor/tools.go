package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
	"github.com/cloudwego/eino-ext/components/tool/googlesearch"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"jalsaathi/internal/config"
	"jalsaathi/internal/logging"
	"jalsaathi/internal/redis"
)

const (
	searchRateLimit      = 3
	searchRateWindow     = time.Minute
	webSearchHTTPTimeout = 10 * time.Second
	maxFetchedBody       = 512 * 1024
)

type requesterContextKey struct{}

func withRequester(ctx context.Context, userID int64) context.Context {
	if userID <= 0 {
		return ctx
	}
	return context.WithValue(ctx, requesterContextKey{}, userID)
}

func requesterFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(requesterContextKey{}).(int64)
	return userID, ok
}

type webSearchTool struct {
	google     tool.InvokableTool
	duck       tool.InvokableTool
	httpClient *http.Client
	limiter    Limiter
}

type webSearchParams struct {
	Query string `json:"query"`
}

// newWebSearch combines google (when keyed) and duckduckgo behind one tool.
// It returns nil when neither provider could be built.
func newWebSearch(ctx context.Context, cfg config.AdvisorConfig, cache *redis.Client) tool.InvokableTool {
	ws := &webSearchTool{
		google:     newGoogleSearch(ctx, cfg),
		duck:       newDuckDuckGo(ctx),
		httpClient: &http.Client{Timeout: webSearchHTTPTimeout},
	}
	if ws.google == nil && ws.duck == nil {
		logging.L().Warn("advisor web search disabled: no search providers available")
		return nil
	}
	if cache != nil {
		ws.limiter = NewRedisLimiter(cache, searchRateLimit, searchRateWindow)
	} else {
		ws.limiter = NewMemoryLimiter(searchRateLimit, searchRateWindow)
	}
	return ws.tool()
}

func (w *webSearchTool) tool() tool.InvokableTool {
	info := &schema.ToolInfo{
		Name: "web_search",
		Desc: "Search the web for current water supply, quality or flood information in Bangalore. " +
			"Falls back to another provider when one fails; a URL query fetches that page.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Desc:     "Natural language query or URL",
				Type:     schema.String,
				Required: true,
			},
		}),
	}
	return utils.NewTool(info, w.run)
}

func (w *webSearchTool) run(ctx context.Context, params *webSearchParams) (string, error) {
	if params == nil {
		return "", errors.New("missing search parameters")
	}
	query := strings.TrimSpace(params.Query)
	if query == "" {
		return "", errors.New("query must not be empty")
	}
	if w.limiter != nil {
		key := "search:anonymous"
		if userID, ok := requesterFromContext(ctx); ok {
			key = fmt.Sprintf("search:user:%d", userID)
		}
		allowed, err := w.limiter.Allow(ctx, key)
		if err == nil && !allowed {
			return "", errors.New("web search rate limit exceeded, please retry in a minute")
		}
	}

	if looksLikeURL(query) {
		content, err := w.fetchURL(ctx, query)
		if err == nil {
			return content, nil
		}
		logging.L().WithError(err).Debug("advisor url fetch failed")
	}

	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return "", fmt.Errorf("marshal search params: %w", err)
	}
	providers := []struct {
		name string
		tool tool.InvokableTool
	}{{"google", w.google}, {"duckduckgo", w.duck}}
	for _, p := range providers {
		if p.tool == nil {
			continue
		}
		result, err := p.tool.InvokableRun(ctx, string(payload))
		if err == nil {
			return result, nil
		}
		logging.L().WithError(err).WithField("provider", p.name).Warn("advisor search failed")
	}
	return "", errors.New("no search provider succeeded")
}

func (w *webSearchTool) fetchURL(ctx context.Context, target string) (string, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("unsupported url scheme")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "JalSaathi-Advisor/1.0")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch url: %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchedBody))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func looksLikeURL(input string) bool {
	lower := strings.ToLower(input)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func newDuckDuckGo(ctx context.Context) tool.InvokableTool {
	duckTool, err := duckduckgo.NewTextSearchTool(ctx, &duckduckgo.Config{
		ToolName:   "web_search_ddg",
		ToolDesc:   "DuckDuckGo Search Tool",
		MaxResults: 3,
		Region:     duckduckgo.RegionWT,
		Timeout:    webSearchHTTPTimeout,
	})
	if err != nil {
		logging.L().WithError(err).Warn("duckduckgo search tool disabled")
		return nil
	}
	return duckTool
}

func newGoogleSearch(ctx context.Context, cfg config.AdvisorConfig) tool.InvokableTool {
	if cfg.GoogleAPIKey == "" || cfg.GoogleSearchEngineID == "" {
		logging.L().Info("google search tool disabled: missing api key or search engine id")
		return nil
	}
	googleTool, err := googlesearch.NewTool(ctx, &googlesearch.Config{
		ToolName:       "web_search_google",
		ToolDesc:       "Google Search Tool",
		APIKey:         cfg.GoogleAPIKey,
		SearchEngineID: cfg.GoogleSearchEngineID,
		Lang:           "en",
		Num:            5,
	})
	if err != nil {
		logging.L().WithError(err).Warn("google search tool disabled")
		return nil
	}
	return googleTool
}
