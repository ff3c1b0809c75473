package models

import "time"

const (
	BeneficiaryUPI         = "UPI / Mobile"
	BeneficiaryBankAccount = "Bank Account"
)

type Beneficiary struct {
	ID            string    `json:"id"`
	UserID        int       `json:"-"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	Details       string    `json:"details,omitempty"`
	AccountNumber string    `json:"accountNumber,omitempty"`
	IFSC          string    `json:"ifsc,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Identifier is the value beneficiaries are deduplicated on.
func (b *Beneficiary) Identifier() string {
	if b.Type == BeneficiaryBankAccount {
		return b.AccountNumber
	}
	return b.Details
}

type AddBeneficiaryRequest struct {
	Name                 string `json:"beneficiaryName"`
	IFSC                 string `json:"ifscCode"`
	AccountNumber        string `json:"accountNumber"`
	ConfirmAccountNumber string `json:"confirmAccountNumber"`
}

type NEFTTransferRequest struct {
	AddBeneficiaryRequest
	Amount  float64 `json:"amount"`
	Message string  `json:"message,omitempty"`
}

type NEFTTransferResponse struct {
	Reference   string       `json:"reference"`
	Amount      float64      `json:"amount"`
	Beneficiary *Beneficiary `json:"beneficiary"`
}
