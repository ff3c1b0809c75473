package models

import (
	"time"
)

// DefaultSavingsBalance is credited to every new account.
const DefaultSavingsBalance = 123456.78

type User struct {
	ID                   int        `json:"id"`
	Email                string     `json:"email"`
	FullName             string     `json:"fullName"`
	Mobile               string     `json:"mobile"`
	DateOfBirth          time.Time  `json:"dob"`
	Gender               string     `json:"gender"`
	PasswordHash         string     `json:"-"`
	SecurityQuestion     string     `json:"-"`
	SecurityAnswerHash   string     `json:"-"`
	MnemonicHash         string     `json:"-"`
	BaselineKeyHoldTimes []float64  `json:"-"`
	VoicePassphrase      string     `json:"-"` // encrypted at rest
	VoiceSample          string     `json:"-"` // encrypted at rest
	FailedLoginAttempts  int        `json:"-"`
	LockoutUntil         *time.Time `json:"-"`
	IsFrozen             bool       `json:"isFrozen"`
	SavingsBalance       float64    `json:"savingsBalance"`
	DobUpdateCount       int        `json:"dobUpdateCount"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	LastLogin            *time.Time `json:"lastLogin,omitempty"`
}

// VoiceEnrolled reports whether a voice sample and passphrase are on file.
func (u *User) VoiceEnrolled() bool {
	return u.VoiceSample != "" && u.VoicePassphrase != ""
}

type RegisterRequest struct {
	FullName         string    `json:"fullName"`
	Email            string    `json:"email"`
	Mobile           string    `json:"mobile"`
	DateOfBirth      string    `json:"dob"`
	Gender           string    `json:"gender"`
	Password         string    `json:"password"`
	SecurityQuestion string    `json:"securityQuestion"`
	SecurityAnswer   string    `json:"securityAnswer"`
	KeyHoldTimes     []float64 `json:"keyHoldTimes"`
}

type RegisterResponse struct {
	User *User `json:"user"`

	// Mnemonic is shown exactly once; only its hash is stored.
	Mnemonic string `json:"mnemonic"`
}

// LoginContext carries the client facts recorded on every successful login.
type LoginContext struct {
	DeviceID  string `json:"deviceId"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	LoginContext
}

type MnemonicLoginRequest struct {
	Email    string `json:"email"`
	Mnemonic string `json:"mnemonic"`
	LoginContext
}

type SecurityAnswerLoginRequest struct {
	Email  string `json:"email"`
	Answer string `json:"answer"`
	LoginContext
}

type VoiceLoginRequest struct {
	Email string `json:"email"`

	// Sample is a data URI of the recorded login attempt.
	Sample string `json:"sample"`

	LoginContext
}

type LoginResponse struct {
	User         *User     `json:"user"`
	SessionToken string    `json:"sessionToken"`
	StartedAt    time.Time `json:"startedAt"`
	NewDevice    bool      `json:"newDevice"`
	IPAddress    string    `json:"ip"`
	Location     string    `json:"location"`
}

type UpdateProfileRequest struct {
	FullName    string `json:"fullName"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"dob"`
}

// Device is a browser/device identifier seen on a successful login.
type Device struct {
	UserID    int       `json:"-"`
	DeviceID  string    `json:"deviceId"`
	IPAddress string    `json:"ip"`
	Location  string    `json:"location"`
	FirstSeen time.Time `json:"firstSeen"`
	LastSeen  time.Time `json:"lastSeen"`
}

// SessionRecord is the persisted audit trail of an authenticated session.
type SessionRecord struct {
	ID        int        `json:"id"`
	UserID    int        `json:"userId"`
	TokenHash string     `json:"-"`
	DeviceID  string     `json:"deviceId"`
	IPAddress string     `json:"ip"`
	UserAgent string     `json:"userAgent"`
	CreatedAt time.Time  `json:"createdAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	EndReason string     `json:"endReason,omitempty"`
}
