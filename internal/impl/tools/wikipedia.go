package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/drujensen/researchagent/internal/domain/entities"

	"go.uber.org/zap"
)

const noWikipediaResult = "No good Wikipedia Search Result was found"

// WikipediaTool looks up encyclopedia pages through the MediaWiki API.
type WikipediaTool struct {
	name          string
	description   string
	configuration map[string]string
	logger        *zap.Logger
	fetcher       *fetcher
}

func NewWikipediaTool(name, description string, configuration map[string]string, logger *zap.Logger) *WikipediaTool {
	return &WikipediaTool{
		name:          name,
		description:   description,
		configuration: configuration,
		logger:        logger,
		fetcher:       newFetcher(configuration, logger),
	}
}

func (t *WikipediaTool) Name() string {
	return t.name
}

func (t *WikipediaTool) Description() string {
	return t.description
}

func (t *WikipediaTool) Configuration() map[string]string {
	return t.configuration
}

func (t *WikipediaTool) Parameters() []entities.Parameter {
	return queryParameter()
}

func (t *WikipediaTool) Execute(ctx context.Context, arguments string) (string, error) {
	t.logger.Debug("Executing wikipedia lookup", zap.String("arguments", arguments))

	query, err := parseQuery(arguments)
	if err != nil {
		return "", err
	}
	query = truncate(query, maxQueryLength)

	titles, err := t.search(ctx, query)
	if err != nil {
		return "", err
	}
	if len(titles) == 0 {
		return noWikipediaResult, nil
	}

	var docs []string
	for _, title := range titles {
		page, summary, err := t.summary(ctx, title)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			t.logger.Warn("Failed to fetch wikipedia page", zap.String("title", title), zap.Error(err))
			continue
		}
		if summary == "" {
			t.logger.Debug("Skipping page without summary", zap.String("title", title))
			continue
		}
		docs = append(docs, fmt.Sprintf("Page: %s\nSummary: %s", page, summary))
	}
	if len(docs) == 0 {
		return noWikipediaResult, nil
	}

	maxChars := configInt(t.configuration, "doc_content_chars_max", defaultDocContentCharsMax)
	return truncate(strings.Join(docs, "\n\n"), maxChars), nil
}

func (t *WikipediaTool) endpoint() string {
	lang := configString(t.configuration, "lang", "en")
	base := configString(t.configuration, "base_url", fmt.Sprintf("https://%s.wikipedia.org", lang))
	return strings.TrimRight(base, "/") + "/w/api.php"
}

func (t *WikipediaTool) search(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(configInt(t.configuration, "top_k_results", defaultTopK)))
	params.Set("srprop", "")
	params.Set("format", "json")

	body, err := t.fetcher.get(ctx, t.endpoint()+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode wikipedia search response: %w", err)
	}

	titles := make([]string, 0, len(result.Query.Search))
	for _, hit := range result.Query.Search {
		titles = append(titles, hit.Title)
	}
	return titles, nil
}

// summary returns the resolved title and plain-text intro of a page.
func (t *WikipediaTool) summary(ctx context.Context, title string) (string, string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("redirects", "1")
	params.Set("titles", title)
	params.Set("format", "json")

	body, err := t.fetcher.get(ctx, t.endpoint()+"?"+params.Encode(), nil)
	if err != nil {
		return "", "", err
	}

	var result struct {
		Query struct {
			Pages map[string]struct {
				Title   string  `json:"title"`
				Extract string  `json:"extract"`
				Missing *string `json:"missing"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", "", fmt.Errorf("failed to decode wikipedia page response: %w", err)
	}

	for _, page := range result.Query.Pages {
		if page.Missing != nil {
			continue
		}
		return page.Title, strings.TrimSpace(page.Extract), nil
	}
	return title, "", nil
}

var _ entities.Tool = (*WikipediaTool)(nil)
