package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/amirk1998/secure-bank/internal/audit"
	"github.com/amirk1998/secure-bank/internal/models"
	"github.com/amirk1998/secure-bank/internal/oracle"
	"github.com/amirk1998/secure-bank/internal/policy"
	"github.com/amirk1998/secure-bank/internal/risk"
	"github.com/amirk1998/secure-bank/pkg/errors"
)

type fakeClock struct{ t time.Time }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeHasher keeps tests fast; only the equality outcome matters here.
type fakeHasher struct{ dummyCalls int }

func (h *fakeHasher) Hash(secret string) (string, error) { return "hashed:" + secret, nil }
func (h *fakeHasher) Verify(secret, encoded string) (bool, error) {
	return encoded == "hashed:"+secret, nil
}
func (h *fakeHasher) VerifyDummy(string) { h.dummyCalls++ }

type fakeTokens struct{}

func (fakeTokens) HashToken(token string) string { return "th:" + token }

type fakeCipher struct{}

func (fakeCipher) Encrypt(s string) (string, error) { return "enc:" + s, nil }
func (fakeCipher) Decrypt(s string) (string, error) {
	if !strings.HasPrefix(s, "enc:") {
		return "", errors.ErrDecryptionFailed
	}
	return strings.TrimPrefix(s, "enc:"), nil
}

type fakeLocator struct{}

func (fakeLocator) Describe(context.Context, string) string { return "Pune, Maharashtra, India" }

type fakeRecorder struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (r *fakeRecorder) Log(e *audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *fakeRecorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Action)
	}
	return out
}

type fakeUsers struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[int]*models.User)}
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return errors.ErrUserAlreadyExists
		}
	}
	f.nextID++
	u.ID = f.nextID
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errors.ErrUserNotFound
}

func (f *fakeUsers) update(id int, fn func(u *models.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return errors.ErrUserNotFound
	}
	fn(u)
	return nil
}

func (f *fakeUsers) RecordLoginFailure(_ context.Context, id int, now time.Time) (policy.LockoutState, error) {
	var state policy.LockoutState
	err := f.update(id, func(u *models.User) {
		u.FailedLoginAttempts++
		if u.FailedLoginAttempts >= policy.MaxFailedLogins && u.LockoutUntil == nil {
			until := now.Add(policy.LockoutDuration)
			u.LockoutUntil = &until
		}
		state = policy.LockoutState{FailedAttempts: u.FailedLoginAttempts, Until: u.LockoutUntil}
	})
	return state, err
}

func (f *fakeUsers) ClearExpiredLockout(_ context.Context, id int, now time.Time) error {
	return f.update(id, func(u *models.User) {
		if u.LockoutUntil != nil && !u.LockoutUntil.After(now) {
			u.FailedLoginAttempts = 0
			u.LockoutUntil = nil
		}
	})
}

func (f *fakeUsers) ResetLockout(_ context.Context, id int) error {
	return f.update(id, func(u *models.User) {
		u.FailedLoginAttempts = 0
		u.LockoutUntil = nil
	})
}

func (f *fakeUsers) UpdateLastLogin(_ context.Context, id int, at time.Time) error {
	return f.update(id, func(u *models.User) { u.LastLogin = &at })
}

func (f *fakeUsers) UpdateVoice(_ context.Context, id int, passphrase, sample string) error {
	return f.update(id, func(u *models.User) {
		u.VoicePassphrase = passphrase
		u.VoiceSample = sample
	})
}

func (f *fakeUsers) UpdateProfile(_ context.Context, user *models.User) error {
	return f.update(user.ID, func(u *models.User) {
		u.FullName = user.FullName
		u.Gender = user.Gender
		u.DateOfBirth = user.DateOfBirth
		u.DobUpdateCount = user.DobUpdateCount
	})
}

func (f *fakeUsers) UpdateBalance(_ context.Context, id int, balance float64) error {
	return f.update(id, func(u *models.User) { u.SavingsBalance = balance })
}

func (f *fakeUsers) SetFrozen(_ context.Context, id int, frozen bool) error {
	return f.update(id, func(u *models.User) { u.IsFrozen = frozen })
}

func (f *fakeUsers) get(id int) *models.User {
	u, _ := f.GetByID(context.Background(), id)
	return u
}

type fakeDevices struct {
	mu      sync.Mutex
	devices []*models.Device
}

func (f *fakeDevices) Touch(_ context.Context, d *models.Device) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.devices {
		if existing.UserID == d.UserID && existing.DeviceID == d.DeviceID {
			existing.LastSeen = time.Now()
			return false, nil
		}
	}
	cp := *d
	f.devices = append(f.devices, &cp)
	return true, nil
}

func (f *fakeDevices) ListByUser(_ context.Context, userID int) ([]*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Device
	for _, d := range f.devices {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeSessionLog struct {
	mu      sync.Mutex
	records map[string]*models.SessionRecord
}

func newFakeSessionLog() *fakeSessionLog {
	return &fakeSessionLog{records: make(map[string]*models.SessionRecord)}
}

func (f *fakeSessionLog) Create(_ context.Context, rec *models.SessionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rec
	f.records[rec.TokenHash] = &cp
	return nil
}

func (f *fakeSessionLog) End(_ context.Context, tokenHash, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.records[tokenHash]; ok && rec.EndedAt == nil {
		now := time.Now()
		rec.EndedAt = &now
		rec.EndReason = reason
	}
	return nil
}

func (f *fakeSessionLog) reason(tokenHash string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.records[tokenHash]; ok {
		return rec.EndReason
	}
	return ""
}

type fakeDeposits struct {
	mu   sync.Mutex
	byID map[string]*models.FixedDeposit
}

func newFakeDeposits() *fakeDeposits {
	return &fakeDeposits{byID: make(map[string]*models.FixedDeposit)}
}

func (f *fakeDeposits) Create(_ context.Context, fd *models.FixedDeposit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *fd
	f.byID[fd.ID] = &cp
	return nil
}

func (f *fakeDeposits) ListByUser(_ context.Context, userID int) ([]*models.FixedDeposit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.FixedDeposit
	for _, fd := range f.byID {
		if fd.UserID == userID {
			cp := *fd
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeDeposits) GetByID(_ context.Context, userID int, id string) (*models.FixedDeposit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fd, ok := f.byID[id]
	if !ok || fd.UserID != userID {
		return nil, errors.ErrRecordNotFound
	}
	cp := *fd
	return &cp, nil
}

func (f *fakeDeposits) Delete(_ context.Context, userID int, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fd, ok := f.byID[id]
	if !ok || fd.UserID != userID {
		return errors.ErrRecordNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeDeposits) FreezeAll(_ context.Context, userID int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, fd := range f.byID {
		if fd.UserID == userID {
			fd.Status = models.DepositFrozen
			n++
		}
	}
	return n, nil
}

// fakeLedger runs fn against the in-memory stores. There is no rollback.
type fakeLedger struct {
	users    *fakeUsers
	deposits *fakeDeposits
}

func (l *fakeLedger) Atomically(_ context.Context, fn func(LedgerStores) error) error {
	return fn(LedgerStores{Users: l.users, Deposits: l.deposits})
}

type fakeBeneficiaries struct {
	mu    sync.Mutex
	items []*models.Beneficiary
	err   error
}

func (f *fakeBeneficiaries) Add(_ context.Context, b *models.Beneficiary) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	for _, existing := range f.items {
		if existing.UserID == b.UserID && existing.Identifier() == b.Identifier() {
			return false, nil
		}
	}
	cp := *b
	f.items = append(f.items, &cp)
	return true, nil
}

func (f *fakeBeneficiaries) ListByUser(_ context.Context, userID int) ([]*models.Beneficiary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Beneficiary
	for _, b := range f.items {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBeneficiaries) Delete(_ context.Context, userID int, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range f.items {
		if b.UserID == userID && b.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return errors.ErrRecordNotFound
}

type fakeComplaints struct {
	mu    sync.Mutex
	items []*models.Complaint
}

func (f *fakeComplaints) Create(_ context.Context, c *models.Complaint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.items = append(f.items, &cp)
	return nil
}

func (f *fakeComplaints) ListByUser(_ context.Context, userID int) ([]*models.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Complaint
	for i := len(f.items) - 1; i >= 0; i-- {
		if f.items[i].UserID == userID {
			out = append(out, f.items[i])
		}
	}
	return out, nil
}

func (f *fakeComplaints) GetByID(_ context.Context, userID int, id string) (*models.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.items {
		if c.UserID == userID && strings.EqualFold(c.ID, id) {
			return c, nil
		}
	}
	return nil, errors.ErrRecordNotFound
}

// fakeOracle answers every capability from canned fields.
type fakeOracle struct {
	voice      *models.VoiceVerdict
	voiceErr   error
	lastCheck  oracle.VoiceCheck
	transcript string
	transErr   error
	signature  *models.SignatureVerdict
	sigErr     error
	audio      string
	speechErr  error
	answer     string
	chatErr    error
}

func (f *fakeOracle) VerifyVoice(_ context.Context, check oracle.VoiceCheck) (*models.VoiceVerdict, error) {
	f.lastCheck = check
	return f.voice, f.voiceErr
}

func (f *fakeOracle) Transcribe(context.Context, string) (string, error) {
	return f.transcript, f.transErr
}

func (f *fakeOracle) VerifySignature(context.Context, string) (*models.SignatureVerdict, error) {
	return f.signature, f.sigErr
}

func (f *fakeOracle) Synthesize(context.Context, string) (string, error) {
	return f.audio, f.speechErr
}

func (f *fakeOracle) Ask(context.Context, string) (string, error) {
	return f.answer, f.chatErr
}

type fakeGate struct {
	assessment models.RiskAssessment
	last       models.BehavioralSignals
}

func (g *fakeGate) Assess(_ context.Context, signals models.BehavioralSignals) (models.RiskAssessment, risk.Tier) {
	g.last = signals
	return g.assessment, risk.Classify(g.assessment.RiskScore)
}

const testAudio = "data:audio/webm;base64,AAAA"

func keyHolds(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(80 + i)
	}
	return out
}
