package retrieval

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medassist/medassist/internal/knowledge"
)

type fakeGenerator struct {
	text string
	err  error
}

func (f fakeGenerator) Generate(context.Context, string) (string, error) {
	return f.text, f.err
}

func TestWikipedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case q.Get("list") == "search":
			assert.Equal(t, "dengue_fever", q.Get("srsearch"))
			_, _ = w.Write([]byte(`{"query":{"search":[{"title":"Dengue fever"}]}}`))
		case q.Get("prop") == "extracts":
			assert.Equal(t, "Dengue fever", q.Get("titles"))
			_, _ = w.Write([]byte(`{"query":{"pages":{"123":{"title":"Dengue fever","extract":"` + strings.Repeat("d", 400) + `"}}}}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	p := NewWikipedia(srv.URL, srv.Client())
	ans, err := p.Attempt(context.Background(), "Dengue Fever")
	require.NoError(t, err)
	assert.Contains(t, ans.Body, "## Information About Dengue Fever")
	assert.Contains(t, ans.Body, "### What is Dengue Fever?")
	assert.Contains(t, ans.Body, strings.Repeat("d", 300)+"...")
	assert.NotContains(t, ans.Body, strings.Repeat("d", 301))
	assert.False(t, ans.PointerOnly)
}

func TestWikipediaNoHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"query":{"search":[]}}`))
	}))
	defer srv.Close()

	_, err := NewWikipedia(srv.URL, srv.Client()).Attempt(context.Background(), "xyz")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestWikipediaServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewWikipedia(srv.URL, srv.Client()).Attempt(context.Background(), "xyz")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestWikipediaMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"query":`))
	}))
	defer srv.Close()

	_, err := NewWikipedia(srv.URL, srv.Client()).Attempt(context.Background(), "xyz")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestHealthGov(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "malaria", r.URL.Query().Get("keyword"))
		_, _ = w.Write([]byte(`{"Result":{"Resources":{"Resource":[{"Title":"Prevent Malaria","Sections":{"Section":[{"Content":"<p>Use bed nets &amp; repellent.</p>"},{"Content":"<ul><li>Travel advice</li></ul>"}]}}]}}}`))
	}))
	defer srv.Close()

	ans, err := NewHealthGov(srv.URL, srv.Client()).Attempt(context.Background(), "malaria")
	require.NoError(t, err)
	assert.Contains(t, ans.Body, "## Information About Malaria")
	assert.Contains(t, ans.Body, "### Prevent Malaria")
	assert.Contains(t, ans.Body, "Use bed nets & repellent.")
	assert.Contains(t, ans.Body, "Travel advice")
	assert.NotContains(t, ans.Body, "<p>")
}

func TestHealthGovNoResource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"Result":{"Total":0}}`))
	}))
	defer srv.Close()

	_, err := NewHealthGov(srv.URL, srv.Client()).Attempt(context.Background(), "xyz")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestOpenFDAFallsBackThroughFields(t *testing.T) {
	var (
		mu       sync.Mutex
		searches []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		search := r.URL.Query().Get("search")
		mu.Lock()
		searches = append(searches, search)
		mu.Unlock()
		if strings.HasPrefix(search, "openfda.brand_name:") {
			_, _ = w.Write([]byte(`{"results":[{"purpose":["Pain reliever"],"indications_and_usage":["temporarily relieves minor aches"],"warnings":["Stomach bleeding warning"]}]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND"}}`))
	}))
	defer srv.Close()

	ans, err := NewOpenFDA(srv.URL, srv.Client()).Attempt(context.Background(), "advil")
	require.NoError(t, err)
	mu.Lock()
	assert.Equal(t, []string{"openfda.generic_name:(advil)", "openfda.brand_name:(advil)"}, searches)
	mu.Unlock()
	assert.Contains(t, ans.Body, "### Advil Information")
	assert.Contains(t, ans.Body, "Pain reliever")
	assert.Contains(t, ans.Body, "Consult your healthcare provider for dosage information")
}

func TestOpenFDAMiss(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOpenFDA(srv.URL, srv.Client()).Attempt(context.Background(), "zzz")
	assert.ErrorIs(t, err, ErrNoResult)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestOpenFDAUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewOpenFDA(srv.URL, srv.Client()).Attempt(context.Background(), "zzz")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestWebSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "lupus disease information site:wikipedia.org", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"AbstractURL":"","RelatedTopics":[{"FirstURL":"https://en.wikipedia.org/wiki/Lupus"}]}`))
	}))
	defer srv.Close()

	ans, err := NewWebSearch(srv.URL, "", srv.Client()).Attempt(context.Background(), "lupus")
	require.NoError(t, err)
	assert.True(t, ans.PointerOnly)
	assert.Contains(t, ans.Body, "[Learn More](https://en.wikipedia.org/wiki/Lupus)")
}

func TestWebSearchNoLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"AbstractURL":"","RelatedTopics":[]}`))
	}))
	defer srv.Close()

	_, err := NewWebSearch(srv.URL, "", srv.Client()).Attempt(context.Background(), "xyz")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestWebSearchRejectsOffSiteLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"AbstractURL":"https://example.com/lupus","RelatedTopics":[{"FirstURL":"https://duckduckgo.com/c/Lupus"},{"FirstURL":"https://evilwikipedia.org/wiki/Lupus"},{"FirstURL":"javascript:alert(1)//wikipedia.org"}]}`))
	}))
	defer srv.Close()

	_, err := NewWebSearch(srv.URL, "", srv.Client()).Attempt(context.Background(), "lupus")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestWebSearchSkipsToOnSiteLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"AbstractURL":"","RelatedTopics":[{"FirstURL":"https://duckduckgo.com/c/Lupus"},{"Name":"Medicine","Topics":[{"FirstURL":"https://en.wikipedia.org/wiki/Lupus_erythematosus"}]}]}`))
	}))
	defer srv.Close()

	ans, err := NewWebSearch(srv.URL, "", srv.Client()).Attempt(context.Background(), "lupus")
	require.NoError(t, err)
	assert.Contains(t, ans.Body, "[Learn More](https://en.wikipedia.org/wiki/Lupus_erythematosus)")
	assert.NotContains(t, ans.Body, "duckduckgo.com")
}

func TestBackupTable(t *testing.T) {
	kb, err := knowledge.Default()
	require.NoError(t, err)
	p := NewBackupTable(kb)

	ans, err := p.Attempt(context.Background(), "diarrhea")
	require.NoError(t, err)
	assert.Contains(t, ans.Body, "## Information About Diarrhea")

	_, err = p.Attempt(context.Background(), "acute diarrhea")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestCuratedMedicationsCondition(t *testing.T) {
	kb, err := knowledge.Default()
	require.NoError(t, err)

	ans, err := NewCuratedMedications(kb).Attempt(context.Background(), "malaria pills")
	require.NoError(t, err)
	assert.Contains(t, ans.Body, "### Medications for Malaria")
	assert.Contains(t, ans.Body, "#### Chloroquine")
}

func TestCuratedMedicationsNamedMedication(t *testing.T) {
	kb, err := knowledge.Default()
	require.NoError(t, err)
	p := NewCuratedMedications(kb)

	ans, err := p.Attempt(context.Background(), "Is DOXYCYCLINE safe")
	require.NoError(t, err)
	assert.Contains(t, ans.Body, "### Doxycycline (for Syphilis)")
	assert.Contains(t, ans.Body, "#### Recommended Dosage")

	_, err = p.Attempt(context.Background(), "doxy")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestGenerativeDisease(t *testing.T) {
	ans, err := NewGenerativeDisease(fakeGenerator{text: "1. What is it?"}).Attempt(context.Background(), "lupus")
	require.NoError(t, err)
	assert.Equal(t, "## Information About Lupus\n\n1. What is it?\n", ans.Body)

	_, err = NewGenerativeDisease(fakeGenerator{text: "This does not appear to be a standard medical condition."}).Attempt(context.Background(), "blorp")
	assert.ErrorIs(t, err, ErrNoResult)

	_, err = NewGenerativeDisease(fakeGenerator{err: errors.New("quota")}).Attempt(context.Background(), "lupus")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestGenerativeMedication(t *testing.T) {
	ans, err := NewGenerativeMedication(fakeGenerator{text: "Purpose: sleep"}).Attempt(context.Background(), "zolpidem")
	require.NoError(t, err)
	assert.Contains(t, ans.Body, "### Zolpidem Information")
	assert.Contains(t, ans.Body, "AI-generated")

	_, err = NewGenerativeMedication(fakeGenerator{text: "This does not appear to be a standard medication."}).Attempt(context.Background(), "blorp")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestPrompts(t *testing.T) {
	assert.Contains(t, diseasePrompt("lupus"), "1. What is lupus?")
	assert.Contains(t, diseasePrompt("lupus"), diseaseSentinel)
	assert.Contains(t, medicationPrompt("zolpidem"), medicationSentinel)
}
