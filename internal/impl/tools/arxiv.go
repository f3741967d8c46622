package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/drujensen/researchagent/internal/domain/entities"

	"go.uber.org/zap"
)

const noArxivResult = "No good Arxiv Result was found"

var arxivIdentifier = regexp.MustCompile(`^(\d{2}(0[1-9]|1[0-2])\.\d{4,5}(v\d+)?|\d{7}.*)$`)

// ArxivTool searches the arXiv export API for papers.
type ArxivTool struct {
	name          string
	description   string
	configuration map[string]string
	logger        *zap.Logger
	fetcher       *fetcher
}

func NewArxivTool(name, description string, configuration map[string]string, logger *zap.Logger) *ArxivTool {
	return &ArxivTool{
		name:          name,
		description:   description,
		configuration: configuration,
		logger:        logger,
		fetcher:       newFetcher(configuration, logger),
	}
}

func (t *ArxivTool) Name() string {
	return t.name
}

func (t *ArxivTool) Description() string {
	return t.description
}

func (t *ArxivTool) Configuration() map[string]string {
	return t.configuration
}

func (t *ArxivTool) Parameters() []entities.Parameter {
	return queryParameter()
}

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Updated   string `xml:"updated"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
}

func (t *ArxivTool) Execute(ctx context.Context, arguments string) (string, error) {
	t.logger.Debug("Executing arxiv search", zap.String("arguments", arguments))

	query, err := parseQuery(arguments)
	if err != nil {
		return "", err
	}
	query = truncate(query, maxQueryLength)

	topK := configInt(t.configuration, "top_k_results", defaultTopK)
	params := url.Values{}
	if ids := strings.Fields(query); isArxivIdentifierList(ids) {
		params.Set("id_list", strings.Join(ids, ","))
	} else {
		params.Set("search_query", "all:"+query)
	}
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(topK))

	base := strings.TrimRight(configString(t.configuration, "base_url", "https://export.arxiv.org"), "/")
	body, err := t.fetcher.get(ctx, base+"/api/query?"+params.Encode(), map[string]string{"Accept": "application/atom+xml"})
	if err != nil {
		return "", err
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return "", fmt.Errorf("failed to decode arxiv response: %w", err)
	}

	var docs []string
	for _, entry := range feed.Entries {
		// the export API reports an unknown id as an entry without a title
		if strings.TrimSpace(entry.Title) == "" {
			continue
		}
		docs = append(docs, formatArxivEntry(entry))
		if len(docs) == topK {
			break
		}
	}
	if len(docs) == 0 {
		return noArxivResult, nil
	}

	maxChars := configInt(t.configuration, "doc_content_chars_max", defaultDocContentCharsMax)
	return truncate(strings.Join(docs, "\n\n"), maxChars), nil
}

func formatArxivEntry(entry arxivEntry) string {
	authors := make([]string, 0, len(entry.Authors))
	for _, author := range entry.Authors {
		authors = append(authors, collapseSpace(author.Name))
	}

	return fmt.Sprintf("Published: %s\nTitle: %s\nAuthors: %s\nSummary: %s",
		arxivDate(entry),
		collapseSpace(entry.Title),
		strings.Join(authors, ", "),
		strings.TrimSpace(entry.Summary))
}

func arxivDate(entry arxivEntry) string {
	for _, raw := range []string{entry.Updated, entry.Published} {
		if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(raw)); err == nil {
			return ts.Format("2006-01-02")
		}
	}
	return ""
}

func isArxivIdentifierList(tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, token := range tokens {
		if !arxivIdentifier.MatchString(token) {
			return false
		}
	}
	return true
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var _ entities.Tool = (*ArxivTool)(nil)
