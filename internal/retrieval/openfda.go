package retrieval

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/tidwall/gjson"
)

// DefaultOpenFDAURL is the openFDA drug label endpoint.
const DefaultOpenFDAURL = "https://api.fda.gov/drug/label.json"

// openFDAFields are searched in order; the first non-empty result wins.
var openFDAFields = []string{"generic_name", "brand_name", "substance_name"}

// OpenFDA looks a medication up in the openFDA drug label database.
type OpenFDA struct {
	baseURL string
	client  *http.Client
}

// NewOpenFDA creates the drug label provider. An empty baseURL uses the public API.
func NewOpenFDA(baseURL string, client *http.Client) *OpenFDA {
	if baseURL == "" {
		baseURL = DefaultOpenFDAURL
	}
	return &OpenFDA{baseURL: baseURL, client: client}
}

// Name implements Provider.
func (o *OpenFDA) Name() string { return "openfda" }

// Attempt implements Provider.
func (o *OpenFDA) Attempt(ctx context.Context, topic string) (Answer, error) {
	name := strings.TrimSpace(topic)
	var errs *multierror.Error
	for _, field := range openFDAFields {
		label, err := o.search(ctx, field, name)
		if err == nil {
			return Answer{Body: formatLabel(name, label)}, nil
		}
		if !errors.Is(err, ErrNoResult) {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}
	// Every field missed cleanly.
	if errs == nil {
		return Answer{}, ErrNoResult
	}
	return Answer{}, errs.ErrorOrNil()
}

func (o *OpenFDA) search(ctx context.Context, field, name string) (gjson.Result, error) {
	body, err := getJSON(ctx, o.client, o.baseURL, url.Values{
		"search": {fmt.Sprintf("openfda.%s:(%s)", field, name)},
		"limit":  {"1"},
	})
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: malformed label response", ErrProviderUnavailable)
	}
	label := gjson.GetBytes(body, "results.0")
	if !label.Exists() {
		return gjson.Result{}, ErrNoResult
	}
	return label, nil
}

func formatLabel(name string, label gjson.Result) string {
	field := func(key, fallback string) string {
		if v := label.Get(key + ".0").String(); v != "" {
			return v
		}
		return fallback
	}
	purpose := field("purpose", "No purpose listed")
	usage := field("indications_and_usage", "No usage information available")
	dosage := field("dosage_and_administration", "Consult your healthcare provider for dosage information")
	warnings := field("warnings", "No warnings listed")

	return fmt.Sprintf(`### %s Information

#### Purpose
%s

#### Usage
%s...

#### Recommended Dosage
%s...

#### Important Warnings
%s...
`, title(name), purpose, truncate(usage, 300), truncate(dosage, 200), truncate(warnings, 200))
}
