// Package interfaces defines service contracts for vire-recon
package interfaces

import (
	"context"
	"errors"

	"github.com/bobmcallan/vire-recon/internal/models"
)

// ErrNotFound is returned by a ClassificationLookup that has no answer for a symbol
var ErrNotFound = errors.New("classification not found")

// EODHDClient provides access to EODHD API
type EODHDClient interface {
	// GetFundamentals retrieves fundamental data for a ticker (e.g. "XBB.TO")
	GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error)
}

// GeminiClient provides access to Gemini AI
type GeminiClient interface {
	// GenerateContent generates text from a prompt
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// LookupRequest identifies the holding a lookup is made for
type LookupRequest struct {
	Symbol   string
	Name     string
	Currency string
}

// ClassificationLookup is one external classification source. Implementations
// return ErrNotFound when they have no answer.
type ClassificationLookup interface {
	Name() string
	Lookup(ctx context.Context, req LookupRequest) (*models.ClassificationRecord, error)
}
