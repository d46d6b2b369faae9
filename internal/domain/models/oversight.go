package models

import "time"

// Verdict is the overseer's terminal classification of a recommendation.
type Verdict string

const (
	VerdictApproved             Verdict = "APPROVED"
	VerdictApprovedWithWarnings Verdict = "APPROVED_WITH_WARNINGS"
	VerdictOverridden           Verdict = "OVERRIDDEN"
	VerdictFlagged              Verdict = "FLAGGED"
)

// Warning severities, lowest to highest.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Recommendation actions.
const (
	ActionHold    = "HOLD"
	ActionSell    = "SELL"
	ActionSellNow = "SELL NOW"
)

// Recommendation is selling advice produced upstream of the overseer.
// Mutable only through overseer-issued overrides.
type Recommendation struct {
	Commodity    string
	Market       string
	CurrentPrice float64
	PeakPrice    float64
	WaitDays     int
	RiskLevel    string
	Action       string
}

// Warning is one finding appended by an overseer check.
type Warning struct {
	Code     string
	Severity string
	Message  string
	Detail   string
}

// Override records a field the overseer changed, with a mandatory reason.
type Override struct {
	Field    string
	OldValue string
	NewValue string
	Reason   string
}

// DriftStatus reports the recent-vs-baseline price distribution comparison.
type DriftStatus struct {
	Detected     bool
	ShiftPct     float64
	Direction    string
	RecentMean   float64
	BaselineMean float64
	Detail       string
}

// OversightResult is the overseer's full verdict for one recommendation.
// Computed fresh per evaluation; never mutated after creation.
type OversightResult struct {
	AdjustedConfidence float64
	OriginalConfidence float64
	ConfidenceDelta    float64
	RiskLabel          string
	RiskMessage        string
	Warnings           []Warning
	Overrides          []Override
	AnomalyCount       int
	Drift              DriftStatus
	Verdict            Verdict
	FinalAction        string
	FinalWaitDays      int
	EvaluatedAt        time.Time
}

// AuditEntry is one append-only audit record; exactly one per evaluation.
type AuditEntry struct {
	SubjectID        string
	Commodity        string
	Market           string
	OriginalDecision string
	FinalDecision    string
	OverrideReason   string
	Verdict          Verdict
	ConfidenceBefore float64
	ConfidenceAfter  float64
	WarningCount     int
	AnomalyCount     int
	DriftDetected    bool
	WarningsJSON     string
	CreatedAt        time.Time
}
