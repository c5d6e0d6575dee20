package retrieval

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	// DefaultWebSearchURL is the DuckDuckGo Instant Answer API.
	DefaultWebSearchURL = "https://api.duckduckgo.com/"
	// DefaultWebSearchSite restricts results to a trusted reference domain.
	DefaultWebSearchSite = "wikipedia.org"
)

// WebSearch returns a single link to a trusted reference page, never body text.
type WebSearch struct {
	baseURL string
	site    string
	client  *http.Client
}

// NewWebSearch creates the web pointer provider.
func NewWebSearch(baseURL, site string, client *http.Client) *WebSearch {
	if baseURL == "" {
		baseURL = DefaultWebSearchURL
	}
	if site == "" {
		site = DefaultWebSearchSite
	}
	return &WebSearch{baseURL: baseURL, site: site, client: client}
}

// Name implements Provider.
func (w *WebSearch) Name() string { return "websearch" }

// Attempt implements Provider.
func (w *WebSearch) Attempt(ctx context.Context, topic string) (Answer, error) {
	query := fmt.Sprintf("%s disease information site:%s", strings.TrimSpace(topic), w.site)
	body, err := getJSON(ctx, w.client, w.baseURL, url.Values{
		"q":             {query},
		"format":        {"json"},
		"no_html":       {"1"},
		"skip_disambig": {"1"},
	})
	if err != nil {
		return Answer{}, err
	}
	if !gjson.ValidBytes(body) {
		return Answer{}, fmt.Errorf("%w: malformed search response", ErrProviderUnavailable)
	}

	link := w.firstOnSite(body)
	if link == "" {
		return Answer{}, ErrNoResult
	}

	return Answer{
		Body: fmt.Sprintf("## Information About %s\n\nI couldn't find detailed information in my database, but you can learn more here: [Learn More](%s)",
			title(topic), link),
		PointerOnly: true,
	}, nil
}

// firstOnSite returns the first result link on the trusted domain. Related
// topics may be grouped one level deep.
func (w *WebSearch) firstOnSite(body []byte) string {
	if link := gjson.GetBytes(body, "AbstractURL").String(); w.onSite(link) {
		return link
	}
	var found string
	gjson.GetBytes(body, "RelatedTopics").ForEach(func(_, topic gjson.Result) bool {
		candidates := []gjson.Result{topic.Get("FirstURL")}
		candidates = append(candidates, topic.Get("Topics.#.FirstURL").Array()...)
		for _, c := range candidates {
			if w.onSite(c.String()) {
				found = c.String()
				return false
			}
		}
		return true
	})
	return found
}

func (w *WebSearch) onSite(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	site := strings.ToLower(w.site)
	return host == site || strings.HasSuffix(host, "."+site)
}
