package retrieval

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultWikipediaURL is the MediaWiki action API endpoint.
const DefaultWikipediaURL = "https://en.wikipedia.org/w/api.php"

const wikipediaExtractLen = 300

// Wikipedia searches the encyclopedia and returns the lead of the best hit.
type Wikipedia struct {
	baseURL string
	client  *http.Client
}

// NewWikipedia creates a Wikipedia provider. An empty baseURL uses the public API.
func NewWikipedia(baseURL string, client *http.Client) *Wikipedia {
	if baseURL == "" {
		baseURL = DefaultWikipediaURL
	}
	return &Wikipedia{baseURL: baseURL, client: client}
}

// Name implements Provider.
func (w *Wikipedia) Name() string { return "wikipedia" }

// Attempt implements Provider.
func (w *Wikipedia) Attempt(ctx context.Context, topic string) (Answer, error) {
	term := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(topic)), " ", "_")

	body, err := getJSON(ctx, w.client, w.baseURL, url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {term},
		"srlimit":  {"1"},
		"format":   {"json"},
	})
	if err != nil {
		return Answer{}, err
	}
	if !gjson.ValidBytes(body) {
		return Answer{}, fmt.Errorf("%w: malformed search response", ErrProviderUnavailable)
	}
	pageTitle := gjson.GetBytes(body, "query.search.0.title").String()
	if pageTitle == "" {
		return Answer{}, ErrNoResult
	}

	body, err = getJSON(ctx, w.client, w.baseURL, url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"redirects":   {"1"},
		"titles":      {pageTitle},
		"format":      {"json"},
	})
	if err != nil {
		return Answer{}, err
	}
	if !gjson.ValidBytes(body) {
		return Answer{}, fmt.Errorf("%w: malformed extract response", ErrProviderUnavailable)
	}

	var extract string
	gjson.GetBytes(body, "query.pages").ForEach(func(_, page gjson.Result) bool {
		extract = page.Get("extract").String()
		return extract == ""
	})
	if strings.TrimSpace(extract) == "" {
		return Answer{}, ErrNoResult
	}

	t := title(topic)
	return Answer{Body: fmt.Sprintf(`## Information About %s

### What is %s?
%s...

### Source
This information is based on general medical knowledge. For more detailed or personalized information, please consult with a healthcare professional.
`, t, t, truncate(extract, wikipediaExtractLen))}, nil
}
