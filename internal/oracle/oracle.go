// Package oracle is the boundary to the hosted model service that scores
// transaction risk and verifies signatures and voices. Nothing here
// interprets a verdict; callers decide what a failure means.
package oracle

import (
	"context"
	"regexp"
	"strings"

	"github.com/amirk1998/secure-bank/internal/models"
)

// Capability names, also used as circuit breaker keys and metric labels.
const (
	CapabilityRisk       = "risk"
	CapabilitySignature  = "signature"
	CapabilityVoice      = "voice"
	CapabilityTranscribe = "transcribe"
	CapabilitySpeech     = "speech"
	CapabilityChat       = "chat"
)

type RiskScorer interface {
	ScoreRisk(ctx context.Context, signals models.BehavioralSignals) (*models.RiskAssessment, error)
}

type SignatureVerifier interface {
	VerifySignature(ctx context.Context, imageDataURI string) (*models.SignatureVerdict, error)
}

// VoiceCheck pairs a login attempt with the enrolled sample and phrase.
type VoiceCheck struct {
	LoginAudioDataURI        string `json:"loginAudioDataUri"`
	RegistrationAudioDataURI string `json:"registrationAudioDataUri"`
	Phrase                   string `json:"phrase"`
}

type VoiceVerifier interface {
	VerifyVoice(ctx context.Context, check VoiceCheck) (*models.VoiceVerdict, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioDataURI string) (string, error)
}

type Speaker interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

type Assistant interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Oracle is every capability the service consumes.
type Oracle interface {
	RiskScorer
	SignatureVerifier
	VoiceVerifier
	Transcriber
	Speaker
	Assistant
}

var wrappingQuotes = regexp.MustCompile(`^["']|["']$`)

// NormalizeTranscript trims the text and strips one wrapping quote character from each end.
func NormalizeTranscript(text string) string {
	return wrappingQuotes.ReplaceAllString(strings.TrimSpace(text), "")
}
