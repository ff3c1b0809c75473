package models

// SwipeGesture is one captured swipe.
type SwipeGesture struct {
	Angle float64 `json:"angle"`
	Speed float64 `json:"speed"`
}

// BehavioralSignals is the bundle forwarded verbatim to the risk scoring oracle.
type BehavioralSignals struct {
	TapPressure          []float64      `json:"tapPressure"`
	SwipeGestures        []SwipeGesture `json:"swipeGestures"`
	KeyHoldTimes         []float64      `json:"keyHoldTimes"`
	BaselineKeyHoldTimes []float64      `json:"baselineKeyHoldTimes,omitempty"`
	ScreenNavigation     []string       `json:"screenNavigation"`
	IP                   string         `json:"ip"`
	GyroVariance         float64        `json:"gyroVariance"`
	SessionDuration      float64        `json:"sessionDuration"`
	PastedCredentials    bool           `json:"pastedCredentials"`
}

// RiskAssessment is the oracle's verdict on one transaction attempt. Never persisted.
type RiskAssessment struct {
	RiskScore float64  `json:"riskScore"`
	Reasons   []string `json:"reasons"`
}

type TransferAssessRequest struct {
	Amount    float64           `json:"amount"`
	Recipient string            `json:"recipient"`
	Notes     string            `json:"notes,omitempty"`
	Signals   BehavioralSignals `json:"signals"`
}

type TransferAssessResponse struct {
	Assessment       RiskAssessment `json:"assessment"`
	Tier             string         `json:"tier"`
	Decision         string         `json:"decision"`
	BeneficiarySaved bool           `json:"beneficiarySaved"`
}

// SignatureVerdict is the signature oracle's response.
type SignatureVerdict struct {
	IsValid    bool    `json:"isValid"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// VoiceVerdict is the voice oracle's response.
type VoiceVerdict struct {
	IsSpeakerVerified bool   `json:"isSpeakerVerified"`
	IsMatch           bool   `json:"isMatch"`
	TranscribedText   string `json:"transcribedText"`
	Reason            string `json:"reason"`
}

// Verified is true only when both the speaker and the phrase match.
func (v *VoiceVerdict) Verified() bool {
	return v.IsSpeakerVerified && v.IsMatch
}
