package audit

import (
	"encoding/json"
	"time"
)

type LogLevel string

const (
	LevelInfo     LogLevel = "INFO"
	LevelWarning  LogLevel = "WARNING"
	LevelError    LogLevel = "ERROR"
	LevelCritical LogLevel = "CRITICAL"
)

// Audited actions.
const (
	ActionRegister             = "REGISTER"
	ActionLogin                = "LOGIN"
	ActionLoginMnemonic        = "LOGIN_MNEMONIC"
	ActionLoginRecovery        = "LOGIN_RECOVERY"
	ActionLoginVoice           = "LOGIN_VOICE"
	ActionAccountLocked        = "ACCOUNT_LOCKED"
	ActionNewDevice            = "NEW_DEVICE"
	ActionLogout               = "LOGOUT"
	ActionSessionExpired       = "SESSION_EXPIRED"
	ActionSessionFrozen        = "SESSION_FROZEN"
	ActionReauth               = "REAUTH"
	ActionReauthRequired       = "REAUTH_REQUIRED"
	ActionVoiceEnroll          = "VOICE_ENROLL"
	ActionTransferAssess       = "TRANSFER_ASSESS"
	ActionTransferNEFT         = "TRANSFER_NEFT"
	ActionDepositCreate        = "DEPOSIT_CREATE"
	ActionWithdrawal           = "DEPOSIT_WITHDRAWAL"
	ActionAccountFrozen        = "ACCOUNT_FROZEN"
	ActionProfileUpdate        = "PROFILE_UPDATE"
	ActionSignatureVerify      = "SIGNATURE_VERIFY"
	ActionBackup               = "BACKUP"
	ActionFailedLoginThreshold = "FAILED_LOGIN_THRESHOLD"
)

type Event struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	UserID    *int      `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IPAddress string    `json:"ip_address,omitempty"`
	Success   bool      `json:"success"`
	ErrorMsg  string    `json:"error_msg,omitempty"`
	Metadata  string    `json:"metadata,omitempty"`
}

type QueryFilters struct {
	StartTime *time.Time
	EndTime   *time.Time
	UserID    *int
	Actions   []string
	Level     LogLevel
	Limit     int
}

// User returns a pointer to id for Event.UserID.
func User(id int) *int {
	return &id
}

// Meta encodes metadata as JSON, dropping it if it cannot be encoded.
func Meta(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return string(b)
}
