// Package risk classifies a transaction attempt from the oracle's score.
// The gate never returns an error: any failure on the way to a score
// becomes the maximum score.
package risk

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/amirk1998/secure-bank/internal/metrics"
	"github.com/amirk1998/secure-bank/internal/models"
	"github.com/amirk1998/secure-bank/internal/oracle"
)

type Tier string

const (
	TierLow    Tier = "Low"
	TierMedium Tier = "Medium"
	TierHigh   Tier = "High"
)

// Tier boundaries. Each lower bound belongs to the higher tier.
const (
	MediumThreshold = 0.4
	HighThreshold   = 0.7
)

// MaxKeyHoldSamples caps the key-hold samples forwarded per attempt.
const MaxKeyHoldSamples = 10

// Decision is the user-facing consequence of a tier.
func (t Tier) Decision() string {
	switch t {
	case TierLow:
		return "Transaction Approved"
	case TierMedium:
		return "Step-Up Authentication Required"
	default:
		return "Transaction Blocked"
	}
}

// PersistsBeneficiary is true for the tiers whose recipient is saved.
func (t Tier) PersistsBeneficiary() bool {
	return t == TierLow || t == TierMedium
}

// Classify maps a score onto its tier using half-open intervals.
// Anything that is not a number below the high threshold is High.
func Classify(score float64) Tier {
	switch {
	case math.IsNaN(score):
		return TierHigh
	case score < MediumThreshold:
		return TierLow
	case score < HighThreshold:
		return TierMedium
	default:
		return TierHigh
	}
}

// FailClosed is the assessment used whenever no valid score is available.
func FailClosed() models.RiskAssessment {
	return models.RiskAssessment{
		RiskScore: 1.0,
		Reasons: []string{
			"An internal error occurred during risk analysis.",
			"Assuming high risk as a precaution.",
		},
	}
}

type Gate struct {
	scorer  oracle.RiskScorer
	timeout time.Duration
	logger  *slog.Logger
}

func NewGate(scorer oracle.RiskScorer, timeout time.Duration, logger *slog.Logger) *Gate {
	return &Gate{scorer: scorer, timeout: timeout, logger: logger}
}

// Assess forwards signals to the scoring oracle under the gate's timeout.
func (g *Gate) Assess(ctx context.Context, signals models.BehavioralSignals) (models.RiskAssessment, Tier) {
	if n := len(signals.KeyHoldTimes); n > MaxKeyHoldSamples {
		signals.KeyHoldTimes = signals.KeyHoldTimes[n-MaxKeyHoldSamples:]
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	assessment := g.score(ctx, signals)
	tier := Classify(assessment.RiskScore)
	metrics.RiskAssessmentsTotal.WithLabelValues(string(tier)).Inc()
	return assessment, tier
}

func (g *Gate) score(ctx context.Context, signals models.BehavioralSignals) (assessment models.RiskAssessment) {
	defer func() {
		if p := recover(); p != nil {
			g.logger.Error("risk scorer panicked", "panic", p)
			metrics.RiskFailClosedTotal.Inc()
			assessment = FailClosed()
		}
	}()

	result, err := g.scorer.ScoreRisk(ctx, signals)
	switch {
	case err != nil:
		g.logger.Warn("risk scoring failed, assuming high risk", "error", err)
	case result == nil:
		g.logger.Warn("risk scoring returned no result, assuming high risk")
	case math.IsNaN(result.RiskScore) || result.RiskScore < 0 || result.RiskScore > 1:
		g.logger.Warn("risk score out of range, assuming high risk", "score", result.RiskScore)
	default:
		if result.Reasons == nil {
			result.Reasons = []string{}
		}
		return *result
	}

	metrics.RiskFailClosedTotal.Inc()
	return FailClosed()
}
