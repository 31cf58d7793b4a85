package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bobmcallan/vire-recon/internal/interfaces"
	"github.com/bobmcallan/vire-recon/internal/models"
)

// SemanticLookup asks a language model for a classification. Answers always
// carry a rationale and a confidence below 1.
type SemanticLookup struct {
	client interfaces.GeminiClient
}

var _ interfaces.ClassificationLookup = (*SemanticLookup)(nil)

// NewSemanticLookup creates the lookup
func NewSemanticLookup(client interfaces.GeminiClient) *SemanticLookup {
	return &SemanticLookup{client: client}
}

func (l *SemanticLookup) Name() string { return string(models.SourceSemantic) }

// Lookup implements interfaces.ClassificationLookup
func (l *SemanticLookup) Lookup(ctx context.Context, req interfaces.LookupRequest) (*models.ClassificationRecord, error) {
	text, err := l.client.GenerateContent(ctx, buildPrompt(req))
	if err != nil {
		return nil, err
	}
	return parseAnswer(req.Symbol, text)
}

func buildPrompt(req interfaces.LookupRequest) string {
	return fmt.Sprintf(`Classify the following security held in a personal investment portfolio.

Symbol: %s
Name: %s
Trading currency: %s

Respond with a single JSON object and nothing else:
{"sector": "...", "industry": "...", "issuer_region": "...", "listing_country": "...", "asset_type": "...", "confidence": 0.0, "rationale": "..."}

Use GICS sector names. For funds, use the dominant exposure as the sector and
the region of the underlying issuers as issuer_region. Set confidence between
0 and 1. If you do not recognise the security, answer with sector "Unknown".`,
		req.Symbol, req.Name, req.Currency)
}

type semanticAnswer struct {
	Sector         string  `json:"sector"`
	Industry       string  `json:"industry"`
	IssuerRegion   string  `json:"issuer_region"`
	ListingCountry string  `json:"listing_country"`
	AssetType      string  `json:"asset_type"`
	Confidence     float64 `json:"confidence"`
	Rationale      string  `json:"rationale"`
}

// parseAnswer validates the model output. An answer without sector, region
// or rationale is malformed.
func parseAnswer(symbol, text string) (*models.ClassificationRecord, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var a semanticAnswer
	if err := json.Unmarshal([]byte(text), &a); err != nil {
		return nil, fmt.Errorf("malformed classifier answer: %w", err)
	}
	if strings.EqualFold(strings.TrimSpace(a.Sector), models.Unknown) {
		return nil, interfaces.ErrNotFound
	}
	if strings.TrimSpace(a.Sector) == "" || strings.TrimSpace(a.IssuerRegion) == "" {
		return nil, fmt.Errorf("malformed classifier answer: sector and issuer_region are required")
	}
	if strings.TrimSpace(a.Rationale) == "" {
		return nil, fmt.Errorf("malformed classifier answer: rationale is required")
	}

	conf := a.Confidence
	if conf > maxSemanticConfidence {
		conf = maxSemanticConfidence
	}
	if conf < 0 {
		conf = 0
	}

	return &models.ClassificationRecord{
		Symbol:         symbol,
		Sector:         strings.TrimSpace(a.Sector),
		Industry:       strings.TrimSpace(a.Industry),
		IssuerRegion:   strings.TrimSpace(a.IssuerRegion),
		ListingCountry: strings.TrimSpace(a.ListingCountry),
		AssetType:      strings.TrimSpace(a.AssetType),
		Confidence:     conf,
		Rationale:      strings.TrimSpace(a.Rationale),
		Source:         models.SourceSemantic,
	}, nil
}
