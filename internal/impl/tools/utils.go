package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/drujensen/researchagent/internal/domain/entities"

	"github.com/dustin/go-humanize"
)

const (
	// maxQueryLength bounds the query passed to the lookup services.
	maxQueryLength = 300

	defaultTopK               = 1
	defaultDocContentCharsMax = 250
	defaultMaxResults         = 5
)

func formatSize(size int64) string {
	return humanize.Bytes(uint64(size))
}

// queryParameter is the single input every lookup tool accepts.
func queryParameter() []entities.Parameter {
	return []entities.Parameter{
		{
			Name:        "query",
			Type:        "string",
			Description: "search query to look up",
			Required:    true,
		},
	}
}

// parseQuery accepts {"query": "..."} or, when the model sends a bare string,
// the string itself.
func parseQuery(arguments string) (string, error) {
	trimmed := strings.TrimSpace(arguments)
	if trimmed == "" {
		return "", fmt.Errorf("query is required")
	}

	var args struct {
		Query string `json:"query"`
		Input string `json:"__arg1"`
	}
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
			return "", fmt.Errorf("failed to parse arguments: %w", err)
		}
		query := args.Query
		if query == "" {
			query = args.Input
		}
		if strings.TrimSpace(query) == "" {
			return "", fmt.Errorf("query is required")
		}
		return strings.TrimSpace(query), nil
	}

	var bare string
	if err := json.Unmarshal([]byte(trimmed), &bare); err == nil {
		trimmed = strings.TrimSpace(bare)
	}
	if trimmed == "" {
		return "", fmt.Errorf("query is required")
	}
	return trimmed, nil
}

// truncate cuts s to at most max runes.
func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

func configInt(configuration map[string]string, key string, fallback int) int {
	if v, ok := configuration[key]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func configString(configuration map[string]string, key, fallback string) string {
	if v := strings.TrimSpace(configuration[key]); v != "" {
		return v
	}
	return fallback
}

func configDuration(configuration map[string]string, key string, fallback time.Duration) time.Duration {
	if v, ok := configuration[key]; ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
