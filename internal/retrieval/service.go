package retrieval

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/medassist/medassist/internal/knowledge"
)

// Chain names.
const (
	DiseaseChain    = "disease"
	MedicationChain = "medication"
)

// Service answers disease and medication questions and resolves the
// canonical condition key used to link reminders.
type Service struct {
	kb         *knowledge.Base
	disease    *Chain
	medication *Chain
	logger     *slog.Logger
}

// NewService creates a Service over two prebuilt chains.
func NewService(kb *knowledge.Base, disease, medication *Chain, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{kb: kb, disease: disease, medication: medication, logger: logger}
}

// DiseaseInfo runs the disease chain. It always returns a non-empty body.
func (s *Service) DiseaseInfo(ctx context.Context, topic string) Result {
	ans, source, err := s.disease.Run(ctx, topic)
	if err != nil {
		s.logger.Info("disease lookup exhausted", "topic", topic, "error", err)
		return Result{Body: diseaseExhausted(topic)}
	}
	body := strings.TrimRight(ans.Body, "\n") + "\n"
	key := strings.ToLower(strings.TrimSpace(topic))
	if cond, ok := s.kb.MatchCondition(topic); ok {
		key = cond.Name
		body += medicationBlock(cond)
	} else {
		body += "\n" + genericOffer
	}
	return Result{Body: body, CanonicalKey: key, Succeeded: true, Source: source}
}

// MedicationInfo runs the medication chain. It always returns a non-empty body.
func (s *Service) MedicationInfo(ctx context.Context, topic string) Result {
	ans, source, err := s.medication.Run(ctx, topic)
	if err != nil {
		s.logger.Info("medication lookup exhausted", "topic", topic, "error", err)
		return Result{Body: medicationExhausted(topic)}
	}
	return Result{Body: ans.Body, Succeeded: true, Source: source}
}

// Sources configures the concrete providers of both chains.
type Sources struct {
	Knowledge *knowledge.Base
	// Generator is optional; without it the generative tiers are left out.
	Generator     Generator
	WikipediaURL  string
	HealthGovURL  string
	OpenFDAURL    string
	WebSearchURL  string
	WebSearchSite string
	Timeout       time.Duration
	Logger        *slog.Logger
}

// NewDefaultService wires the standard disease and medication chains.
func NewDefaultService(src Sources, opts ...ChainOption) *Service {
	client := NewHTTPClient(src.Timeout)
	opts = append([]ChainOption{WithTimeout(src.Timeout), WithLogger(src.Logger)}, opts...)

	var diseaseProviders, medicationProviders []Provider
	if src.Generator != nil {
		diseaseProviders = append(diseaseProviders, NewGenerativeDisease(src.Generator))
	}
	diseaseProviders = append(diseaseProviders,
		NewWikipedia(src.WikipediaURL, client),
		NewHealthGov(src.HealthGovURL, client),
		NewBackupTable(src.Knowledge),
		NewWebSearch(src.WebSearchURL, src.WebSearchSite, client),
	)

	medicationProviders = append(medicationProviders,
		NewCuratedMedications(src.Knowledge),
		NewOpenFDA(src.OpenFDAURL, client),
	)
	if src.Generator != nil {
		medicationProviders = append(medicationProviders, NewGenerativeMedication(src.Generator))
	}

	return NewService(src.Knowledge,
		NewChain(DiseaseChain, diseaseProviders, opts...),
		NewChain(MedicationChain, medicationProviders, opts...),
		src.Logger,
	)
}
