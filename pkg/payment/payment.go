package payment

import (
	"context"
	"errors"
	"time"
)

// Event types the settlement flow reacts to.
const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventCheckoutExpired        = "checkout.session.expired"
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventPaymentIntentFailed    = "payment_intent.payment_failed"
)

// Checkout session states reported by the provider.
const (
	SessionOpen     = "open"
	SessionComplete = "complete"
	SessionExpired  = "expired"

	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"
)

// Metadata keys attached to every checkout session.
const (
	MetaPaymentID      = "paymentId"
	MetaBookingID      = "bookingId"
	MetaSubscriptionID = "subscriptionId"
	MetaUserID         = "userId"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

type CheckoutRequest struct {
	AmountCents    int64
	Currency       string
	ProductName    string
	Description    string
	CustomerEmail  string
	Metadata       map[string]string
	SuccessURL     string
	CancelURL      string
	ExpiresIn      time.Duration
	IdempotencyKey string
}

type CheckoutSession struct {
	ID              string            `json:"id"`
	URL             string            `json:"url"`
	Status          string            `json:"status"`
	PaymentStatus   string            `json:"payment_status"`
	PaymentIntentID string            `json:"payment_intent"`
	AmountTotal     int64             `json:"amount_total"`
	Metadata        map[string]string `json:"metadata"`
}

// Event is a verified provider callback. Session is set for checkout.session.* events.
type Event struct {
	ID              string
	Type            string
	Session         *CheckoutSession
	PaymentIntentID string
}

type TransferRequest struct {
	AmountCents    int64
	Currency       string
	Destination    string
	Description    string
	IdempotencyKey string
	Metadata       map[string]string
}

type TransferResult struct {
	ID string
}

// Gateway is the external payment provider.
type Gateway interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
	// SignatureHeader is the request header carrying the webhook signature.
	SignatureHeader() string
	ParseWebhook(payload []byte, signature string) (*Event, error)
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	Refund(ctx context.Context, paymentIntentID, idempotencyKey string) error
}
