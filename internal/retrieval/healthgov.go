package retrieval

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultHealthGovURL is the MyHealthfinder topic search endpoint.
const DefaultHealthGovURL = "https://health.gov/myhealthfinder/api/v3/topicsearch.json"

const healthGovContentLen = 500

// HealthGov searches the MyHealthfinder health topics index.
type HealthGov struct {
	baseURL string
	client  *http.Client
}

// NewHealthGov creates a health.gov provider. An empty baseURL uses the public API.
func NewHealthGov(baseURL string, client *http.Client) *HealthGov {
	if baseURL == "" {
		baseURL = DefaultHealthGovURL
	}
	return &HealthGov{baseURL: baseURL, client: client}
}

// Name implements Provider.
func (h *HealthGov) Name() string { return "healthgov" }

// Attempt implements Provider.
func (h *HealthGov) Attempt(ctx context.Context, topic string) (Answer, error) {
	body, err := getJSON(ctx, h.client, h.baseURL, url.Values{"keyword": {strings.TrimSpace(topic)}})
	if err != nil {
		return Answer{}, err
	}
	if !gjson.ValidBytes(body) {
		return Answer{}, fmt.Errorf("%w: malformed topic response", ErrProviderUnavailable)
	}

	resource := gjson.GetBytes(body, "Result.Resources.Resource.0")
	if !resource.Exists() {
		return Answer{}, ErrNoResult
	}

	var content strings.Builder
	resource.Get("Sections.Section").ForEach(func(_, section gjson.Result) bool {
		if c := section.Get("Content").String(); c != "" {
			content.WriteString(c)
			content.WriteString("\n\n")
		}
		return true
	})
	text := strings.TrimSpace(html.UnescapeString(stripTags(content.String())))
	if text == "" {
		return Answer{}, ErrNoResult
	}

	return Answer{Body: fmt.Sprintf(`## Information About %s

### %s
%s...

### Source
This information is from Health.gov. For more detailed or personalized information, please consult with a healthcare professional.
`, title(topic), resource.Get("Title").String(), truncate(text, healthGovContentLen))}, nil
}
