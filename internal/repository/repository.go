// Package repository persists accounts and their banking records in the
// encrypted SQLite database. Every repository runs against a
// database.DBTX, so the same code serves plain calls and transactions.
package repository

import (
	"strings"

	"github.com/amirk1998/secure-bank/internal/database"
)

// Repositories groups every store behind one handle.
type Repositories struct {
	Users         *UserRepository
	Devices       *DeviceRepository
	Sessions      *SessionRepository
	Deposits      *DepositRepository
	Beneficiaries *BeneficiaryRepository
	Complaints    *ComplaintRepository
}

func New(db database.DBTX) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(db),
		Devices:       NewDeviceRepository(db),
		Sessions:      NewSessionRepository(db),
		Deposits:      NewDepositRepository(db),
		Beneficiaries: NewBeneficiaryRepository(db),
		Complaints:    NewComplaintRepository(db),
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
