package tools

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/drujensen/researchagent/internal/domain/entities"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const noDuckDuckGoResult = "No good DuckDuckGo Search Result was found"

// DuckDuckGoSearchTool scrapes the DuckDuckGo HTML endpoint for snippets.
type DuckDuckGoSearchTool struct {
	name          string
	description   string
	configuration map[string]string
	logger        *zap.Logger
	fetcher       *fetcher
}

type searchResult struct {
	Title   string
	URL     string
	Snippet string
}

func NewDuckDuckGoSearchTool(name, description string, configuration map[string]string, logger *zap.Logger) *DuckDuckGoSearchTool {
	return &DuckDuckGoSearchTool{
		name:          name,
		description:   description,
		configuration: configuration,
		logger:        logger,
		fetcher:       newFetcher(configuration, logger),
	}
}

func (t *DuckDuckGoSearchTool) Name() string {
	return t.name
}

func (t *DuckDuckGoSearchTool) Description() string {
	return t.description
}

func (t *DuckDuckGoSearchTool) Configuration() map[string]string {
	return t.configuration
}

func (t *DuckDuckGoSearchTool) Parameters() []entities.Parameter {
	return queryParameter()
}

func (t *DuckDuckGoSearchTool) Execute(ctx context.Context, arguments string) (string, error) {
	t.logger.Debug("Executing duckduckgo search", zap.String("arguments", arguments))

	query, err := parseQuery(arguments)
	if err != nil {
		return "", err
	}

	results, err := t.search(ctx, query)
	if err != nil {
		return "", err
	}

	snippets := make([]string, 0, len(results))
	for _, result := range results {
		if result.Snippet != "" {
			snippets = append(snippets, result.Snippet)
		}
	}
	if len(snippets) == 0 {
		return noDuckDuckGoResult, nil
	}
	return strings.Join(snippets, " "), nil
}

func (t *DuckDuckGoSearchTool) search(ctx context.Context, query string) ([]searchResult, error) {
	base := strings.TrimRight(configString(t.configuration, "base_url", "https://html.duckduckgo.com"), "/")
	searchURL := base + "/html/?q=" + url.QueryEscape(query)

	body, err := t.fetcher.get(ctx, searchURL, map[string]string{"Accept": "text/html"})
	if err != nil {
		return nil, err
	}

	results, err := parseDuckDuckGoHTML(body, configInt(t.configuration, "max_results", defaultMaxResults))
	if err != nil {
		return nil, err
	}
	t.logger.Debug("DuckDuckGo results", zap.String("query", query), zap.Int("count", len(results)))
	return results, nil
}

// parseDuckDuckGoHTML walks the result page. Each result block carries a
// result__a link and a result__snippet element.
func parseDuckDuckGoHTML(body []byte, limit int) ([]searchResult, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse duckduckgo response: %w", err)
	}

	var results []searchResult
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if len(results) >= limit && results[len(results)-1].Snippet != "" {
			return
		}
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "result__a"):
				if len(results) >= limit {
					return
				}
				results = append(results, searchResult{
					Title: collapseSpace(textContent(n)),
					URL:   resolveRedirect(attr(n, "href")),
				})
				return
			case hasClass(n, "result__snippet"):
				snippet := collapseSpace(textContent(n))
				if len(results) > 0 && results[len(results)-1].Snippet == "" {
					results[len(results)-1].Snippet = snippet
				} else if len(results) < limit {
					results = append(results, searchResult{Snippet: snippet})
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveRedirect(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	if parsed.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(attr(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}

var _ entities.Tool = (*DuckDuckGoSearchTool)(nil)
