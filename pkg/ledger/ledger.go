package ledger

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"math/big"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mailframe/pkg/cache"
	"github.com/matzehuels/mailframe/pkg/errors"
)

const (
	// DefaultCredits is the balance of a new or reset ledger.
	DefaultCredits = 5

	// DefaultResetCode restores DefaultCredits when no code is configured.
	DefaultResetCode = "2209"

	// CodeLength is the length of generated promo codes.
	CodeLength = 8

	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Record names passed to the Keyer.
const (
	recordCredits = "credits"
	recordPromo   = "promo"
	recordAdmin   = "admin"
)

// User-facing messages.
const (
	msgEnterCode     = "Please enter a code."
	msgCodeUsed      = "Code already used."
	msgInvalidPromo  = "Invalid promo code."
	msgInvalidReset  = "Invalid reset code."
	msgUnauthorized  = "Unauthorized access. Please enter admin secret."
	msgInvalidAmount = "Invalid credits amount."
	msgInvalidAdd    = "Invalid code or credits."
)

// Options configures a Ledger.
type Options struct {
	// InitialCredits seeds an empty ledger; zero means DefaultCredits.
	InitialCredits int
	// ResetCode restores the initial balance; empty means DefaultResetCode.
	ResetCode string
	// AdminSecret toggles admin mode when redeemed. Empty disables admin mode.
	AdminSecret string
	Logger      *log.Logger
}

// PromoCode is an unredeemed code and the credits it grants.
type PromoCode struct {
	Code    string `json:"code"`
	Credits int    `json:"credits"`
}

// Redemption is the outcome of [Ledger.Redeem].
type Redemption struct {
	// Admin is set when the code was the admin secret. AdminMode is the
	// resulting state.
	Admin     bool
	AdminMode bool
	// Credits granted by a promo code and the balance afterwards.
	Credits int
	Balance int
}

type promoState struct {
	Available map[string]int `json:"available"`
	Used      []string       `json:"used"`
}

// Ledger is a credit and promo code store.
type Ledger struct {
	store cache.Cache
	keys  cache.Keyer
	opts  Options

	mu sync.Mutex
}

// New returns a ledger over store. A nil keyer uses the default layout.
func New(store cache.Cache, keys cache.Keyer, opts Options) *Ledger {
	if keys == nil {
		keys = cache.NewDefaultKeyer()
	}
	if opts.InitialCredits <= 0 {
		opts.InitialCredits = DefaultCredits
	}
	if opts.ResetCode == "" {
		opts.ResetCode = DefaultResetCode
	}
	return &Ledger{store: store, keys: keys, opts: opts}
}

func (l *Ledger) logger() *log.Logger {
	if l.opts.Logger != nil {
		return l.opts.Logger
	}
	return log.NewWithOptions(io.Discard, log.Options{})
}

// Balance returns the current balance, initializing it on first use.
func (l *Ledger) Balance(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(ctx)
}

// Charge deducts n credits and returns the remaining balance. An
// insufficient balance yields an [*errors.QuotaError] and leaves the ledger
// untouched.
func (l *Ledger) Charge(ctx context.Context, n int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal, err := l.balance(ctx)
	if err != nil {
		return 0, err
	}
	if bal < n {
		return bal, &errors.QuotaError{Required: n, Available: bal}
	}
	bal -= n
	if err := l.put(ctx, recordCredits, bal); err != nil {
		return 0, err
	}
	l.logger().Debug("credits charged", "charged", n, "balance", bal)
	return bal, nil
}

// Reset restores the initial balance when code matches the reset code.
func (l *Ledger) Reset(ctx context.Context, code string) (int, error) {
	if strings.TrimSpace(code) != l.opts.ResetCode {
		return 0, errors.New(errors.ErrCodeUnauthorized, msgInvalidReset)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.put(ctx, recordCredits, l.opts.InitialCredits); err != nil {
		return 0, err
	}
	return l.opts.InitialCredits, nil
}

// Redeem applies a code. The admin secret toggles admin mode; a promo code
// adds its credits once and is then marked used.
func (l *Ledger) Redeem(ctx context.Context, code string) (Redemption, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Redemption{}, errors.New(errors.ErrCodeInvalidInput, msgEnterCode)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.opts.AdminSecret != "" && code == l.opts.AdminSecret {
		admin, err := l.admin(ctx)
		if err != nil {
			return Redemption{}, err
		}
		admin = !admin
		if err := l.put(ctx, recordAdmin, admin); err != nil {
			return Redemption{}, err
		}
		l.logger().Info("admin mode toggled", "enabled", admin)
		return Redemption{Admin: true, AdminMode: admin}, nil
	}

	promo, err := l.promo(ctx)
	if err != nil {
		return Redemption{}, err
	}
	if slices.Contains(promo.Used, code) {
		return Redemption{}, errors.New(errors.ErrCodeInvalidCode, msgCodeUsed)
	}
	credits, ok := promo.Available[code]
	if !ok {
		return Redemption{}, errors.New(errors.ErrCodeInvalidCode, msgInvalidPromo)
	}

	bal, err := l.balance(ctx)
	if err != nil {
		return Redemption{}, err
	}
	bal += credits
	delete(promo.Available, code)
	promo.Used = append(promo.Used, code)

	if err := l.put(ctx, recordCredits, bal); err != nil {
		return Redemption{}, err
	}
	if err := l.put(ctx, recordPromo, promo); err != nil {
		return Redemption{}, err
	}
	return Redemption{Credits: credits, Balance: bal}, nil
}

// IsAdmin reports whether admin mode is enabled.
func (l *Ledger) IsAdmin(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.admin(ctx)
}

// Generate creates a random promo code worth credits. Admin mode required.
func (l *Ledger) Generate(ctx context.Context, credits int) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(ctx); err != nil {
		return "", err
	}
	if err := errors.ValidateCredits(credits); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, msgInvalidAmount)
	}
	code, err := randomCode(CodeLength)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "generate code")
	}
	if err := l.addCode(ctx, code, credits); err != nil {
		return "", err
	}
	return code, nil
}

// AddCode registers a chosen promo code. Admin mode required.
func (l *Ledger) AddCode(ctx context.Context, code string, credits int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(ctx); err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if err := errors.ValidatePromoCode(code); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, msgInvalidAdd)
	}
	if err := errors.ValidateCredits(credits); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, msgInvalidAdd)
	}
	return l.addCode(ctx, code, credits)
}

// Codes lists the unredeemed promo codes sorted by code. Admin mode required.
func (l *Ledger) Codes(ctx context.Context) ([]PromoCode, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(ctx); err != nil {
		return nil, err
	}
	promo, err := l.promo(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PromoCode, 0, len(promo.Available))
	for code, credits := range promo.Available {
		out = append(out, PromoCode{Code: code, Credits: credits})
	}
	slices.SortFunc(out, func(a, b PromoCode) int { return strings.Compare(a.Code, b.Code) })
	return out, nil
}

// ============================================================================
// Storage
// ============================================================================

func (l *Ledger) balance(ctx context.Context) (int, error) {
	var bal int
	ok, err := l.get(ctx, recordCredits, &bal)
	if err != nil {
		return 0, err
	}
	if !ok {
		bal = l.opts.InitialCredits
		if err := l.put(ctx, recordCredits, bal); err != nil {
			return 0, err
		}
	}
	return bal, nil
}

func (l *Ledger) admin(ctx context.Context) (bool, error) {
	var admin bool
	if _, err := l.get(ctx, recordAdmin, &admin); err != nil {
		return false, err
	}
	return admin, nil
}

func (l *Ledger) requireAdmin(ctx context.Context) error {
	admin, err := l.admin(ctx)
	if err != nil {
		return err
	}
	if !admin {
		return errors.New(errors.ErrCodeUnauthorized, msgUnauthorized)
	}
	return nil
}

func (l *Ledger) promo(ctx context.Context) (promoState, error) {
	var st promoState
	if _, err := l.get(ctx, recordPromo, &st); err != nil {
		return promoState{}, err
	}
	if st.Available == nil {
		st.Available = make(map[string]int)
	}
	return st, nil
}

func (l *Ledger) addCode(ctx context.Context, code string, credits int) error {
	promo, err := l.promo(ctx)
	if err != nil {
		return err
	}
	promo.Available[code] = credits
	return l.put(ctx, recordPromo, promo)
}

// get decodes a record. A corrupt record is logged and treated as absent.
func (l *Ledger) get(ctx context.Context, name string, v any) (bool, error) {
	data, ok, err := l.store.Get(ctx, l.keys.LedgerKey(name))
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeInternal, err, "read %s", name)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		l.logger().Warn("discarding corrupt ledger record", "record", name, "err", err)
		return false, nil
	}
	return true, nil
}

func (l *Ledger) put(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode %s", name)
	}
	if err := l.store.Set(ctx, l.keys.LedgerKey(name), data, 0); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", name)
	}
	return nil
}

func randomCode(n int) (string, error) {
	limit := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, n)
	for i := range b {
		j, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[j.Int64()]
	}
	return string(b), nil
}
