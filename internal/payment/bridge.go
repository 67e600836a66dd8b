package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rawsite/internal/metrics"
	"rawsite/internal/models"

	zlog "github.com/rs/zerolog/log"
)

const (
	MinAmount = 10

	// CheckoutTTL bounds how long an opened checkout may stay unsettled. After
	// that the attempt counts as dismissed, e.g. when the tab was closed.
	CheckoutTTL = 30 * time.Minute

	MsgPaymentFailed      = "Payment failed. Please try again."
	MsgVerificationFailed = "Verification failed."
)

// Presets are the quick-pick amounts offered by the widget.
var Presets = []int{10, 20, 30, 40}

var (
	ErrBelowMinimum      = fmt.Errorf("amount must be at least %d", MinAmount)
	ErrBusy              = errors.New("a payment is already in progress")
	ErrInvalidTransition = errors.New("invalid payment state transition")
)

// OrderAPI creates and verifies orders on the backend.
type OrderAPI interface {
	CreateOrder(ctx context.Context, req models.OrderRequest) (models.Order, error)
	VerifyPayment(ctx context.Context, sig models.PaymentSignature) (models.Receipt, error)
}

type Loader interface {
	Load(ctx context.Context) ([]byte, error)
}

type OutcomeKind int

const (
	// Paid carries a signed vendor result that still needs verifying.
	Paid OutcomeKind = iota
	Dismissed
	PaymentFailed
)

// Outcome is what the vendor checkout reported back.
type Outcome struct {
	Kind      OutcomeKind
	Signature models.PaymentSignature
}

func PaidWith(sig models.PaymentSignature) Outcome { return Outcome{Kind: Paid, Signature: sig} }

// Checkout opens the vendor UI and blocks until it reports an outcome.
type Checkout interface {
	Open(ctx context.Context, opts CheckoutOptions) Outcome
}

type Prefill struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Theme struct {
	Color string `json:"color"`
}

// CheckoutOptions is handed to the vendor SDK as-is.
type CheckoutOptions struct {
	Key         string  `json:"key"`
	Amount      int     `json:"amount"`
	Currency    string  `json:"currency"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	OrderID     string  `json:"order_id"`
	Prefill     Prefill `json:"prefill"`
	Theme       Theme   `json:"theme"`
}

// Snapshot is a copy of the bridge state for rendering.
type Snapshot struct {
	Status  Status
	Error   string
	Receipt *models.Receipt
	Order   *models.Order
}

// Bridge sequences one visitor's donation: load script, create order, open
// checkout, verify. Only one attempt runs at a time.
type Bridge struct {
	api    OrderAPI
	loader Loader

	// OnVerified runs after a payment is verified.
	OnVerified func(models.Receipt)

	mu        sync.Mutex
	status    Status
	busy      bool
	verifying bool
	attempt   uint64
	startedAt time.Time
	errMsg    string
	order     *models.Order
	receipt   *models.Receipt
	now       func() time.Time
}

func NewBridge(api OrderAPI, loader Loader) *Bridge {
	return &Bridge{api: api, loader: loader, now: time.Now}
}

// expire returns an abandoned attempt to idle. An attempt is abandoned when it
// has been busy for longer than CheckoutTTL and no verification is running.
// Callers hold b.mu.
func (b *Bridge) expire(now time.Time) bool {
	if !b.busy || b.verifying || now.Sub(b.startedAt) < CheckoutTTL {
		return false
	}
	zlog.Info().Uint64("attempt", b.attempt).Time("started", b.startedAt).Msg("Abandoned checkout expired")
	b.busy = false
	b.attempt++
	b.order = nil
	b.transition(Idle, "")
	return true
}

// Expire is expire under the lock, for owners that keep their own clock.
func (b *Bridge) Expire(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.expire(now)
}

func (b *Bridge) transition(to Status, errMsg string) {
	b.status = to
	b.errMsg = errMsg
	metrics.MetricPaymentTotal.WithLabelValues(to.String()).Inc()
}

// Begin moves idle to loading, loads the script and creates the order. The
// amount is checked before anything else so a rejected amount makes no calls.
func (b *Bridge) Begin(ctx context.Context, req models.OrderRequest) (CheckoutOptions, error) {
	if req.Amount < MinAmount {
		return CheckoutOptions{}, ErrBelowMinimum
	}

	b.mu.Lock()
	b.expire(b.now())
	if b.busy {
		b.mu.Unlock()
		return CheckoutOptions{}, ErrBusy
	}
	b.busy = true
	b.attempt++
	attempt := b.attempt
	b.startedAt = b.now()
	b.order, b.receipt = nil, nil
	b.transition(Loading, "")
	b.mu.Unlock()

	if _, err := b.loader.Load(ctx); err != nil {
		b.fail(attempt, err.Error())
		return CheckoutOptions{}, err
	}

	order, err := b.api.CreateOrder(ctx, req)
	if err != nil {
		b.fail(attempt, err.Error())
		return CheckoutOptions{}, fmt.Errorf("create order: %w", err)
	}

	b.mu.Lock()
	if b.attempt != attempt {
		b.mu.Unlock()
		return CheckoutOptions{}, ErrInvalidTransition
	}
	b.order = &order
	b.mu.Unlock()

	return CheckoutOptions{
		Key:         order.KeyID,
		Amount:      order.Amount,
		Currency:    order.Currency,
		Name:        "RAW",
		Description: "Support My Work",
		Image:       "/static/download.png",
		OrderID:     order.OrderID,
		Prefill:     Prefill{Name: req.Name, Email: req.Email},
		Theme:       Theme{Color: "#3b5bdb"},
	}, nil
}

// fail settles attempt as failed unless it has already been superseded.
func (b *Bridge) fail(attempt uint64, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.attempt != attempt {
		return
	}
	b.busy = false
	b.verifying = false
	b.transition(Failed, msg)
}

// Settle applies the checkout outcome to a loading bridge.
func (b *Bridge) Settle(ctx context.Context, out Outcome) error {
	b.mu.Lock()
	if b.status != Loading || b.order == nil || b.verifying {
		b.mu.Unlock()
		return ErrInvalidTransition
	}
	attempt := b.attempt

	switch out.Kind {
	case Dismissed:
		b.busy = false
		b.order = nil
		b.transition(Idle, "")
		b.mu.Unlock()
		return nil
	case PaymentFailed:
		b.busy = false
		b.transition(Failed, MsgPaymentFailed)
		b.mu.Unlock()
		return nil
	case Paid:
		b.verifying = true
		b.mu.Unlock()
	default:
		b.mu.Unlock()
		return fmt.Errorf("%w: unknown outcome %d", ErrInvalidTransition, out.Kind)
	}

	receipt, err := b.api.VerifyPayment(ctx, out.Signature)
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = MsgVerificationFailed
		}
		zlog.Warn().Err(err).Str("order_id", out.Signature.OrderID).Msg("Payment verification failed")
		b.fail(attempt, msg)
		return err
	}

	b.mu.Lock()
	if b.attempt != attempt || b.status != Loading {
		b.mu.Unlock()
		return ErrInvalidTransition
	}
	b.busy = false
	b.verifying = false
	b.receipt = &receipt
	b.transition(Success, "")
	hook := b.OnVerified
	b.mu.Unlock()

	if hook != nil {
		hook(receipt)
	}
	return nil
}

// Pay runs the whole flow against a blocking checkout.
func (b *Bridge) Pay(ctx context.Context, req models.OrderRequest, checkout Checkout) (Snapshot, error) {
	opts, err := b.Begin(ctx, req)
	if err != nil {
		return b.Snapshot(), err
	}
	err = b.Settle(ctx, checkout.Open(ctx, opts))
	return b.Snapshot(), err
}

// Reset clears a finished or abandoned attempt back to idle.
func (b *Bridge) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.expire(b.now()) {
		return nil
	}
	switch b.status {
	case Success, Failed:
		b.busy = false
		b.order, b.receipt = nil, nil
		b.transition(Idle, "")
		return nil
	case Idle, Loading:
		return ErrInvalidTransition
	}
	return ErrInvalidTransition
}

func (b *Bridge) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := Snapshot{Status: b.status, Error: b.errMsg}
	if b.receipt != nil {
		r := *b.receipt
		s.Receipt = &r
	}
	if b.order != nil {
		o := *b.order
		s.Order = &o
	}
	return s
}
