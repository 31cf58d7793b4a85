package models

// AnomalyKind classifies a non-fatal audit event
type AnomalyKind string

const (
	AnomalyMissingField        AnomalyKind = "missing_field"
	AnomalyAmbiguousCash       AnomalyKind = "ambiguous_cash_representation"
	AnomalyUnclassifiedHolding AnomalyKind = "unclassified_holding"
	AnomalyReconMismatch       AnomalyKind = "reconciliation_mismatch"
	AnomalyStructuralInput     AnomalyKind = "structural_input_error"
)

// AuditEvent records one transformation or anomaly. Kind is empty for plain
// transformations.
type AuditEvent struct {
	Stage           string      `json:"stage"`
	Action          string      `json:"action"`
	Kind            AnomalyKind `json:"kind,omitempty"`
	RecordID        string      `json:"record_id,omitempty"`
	Field           string      `json:"field,omitempty"`
	BeforeSymbol    string      `json:"before_symbol,omitempty"`
	AfterSymbol     string      `json:"after_symbol,omitempty"`
	BeforeAssetType string      `json:"before_asset_type,omitempty"`
	AfterAssetType  string      `json:"after_asset_type,omitempty"`
	Message         string      `json:"message"`
}

// CountAnomalies tallies events by anomaly kind
func CountAnomalies(events []AuditEvent) map[AnomalyKind]int {
	counts := make(map[AnomalyKind]int)
	for _, e := range events {
		if e.Kind != "" {
			counts[e.Kind]++
		}
	}
	return counts
}
