package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// StubGateway is an in-process provider for development and tests.
// Webhooks are JSON events signed with HMAC-SHA256 (hex) in X-Webhook-Signature.
type StubGateway struct {
	secret string

	mu        sync.Mutex
	sessions  map[string]*CheckoutSession
	transfers []TransferRequest
	refunds   []string

	// FailTransfers makes every Transfer call fail.
	FailTransfers bool
	// FailRefunds makes every Refund call fail.
	FailRefunds bool
}

func NewStubGateway(webhookSecret string) *StubGateway {
	return &StubGateway{secret: webhookSecret, sessions: make(map[string]*CheckoutSession)}
}

func (s *StubGateway) Name() string { return "stub" }

func (s *StubGateway) SignatureHeader() string { return "X-Webhook-Signature" }

func (s *StubGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	id := "cs_stub_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	meta := make(map[string]string, len(req.Metadata))
	for k, v := range req.Metadata {
		meta[k] = v
	}
	sess := &CheckoutSession{
		ID:            id,
		URL:           "https://checkout.stub.local/pay/" + id,
		Status:        SessionOpen,
		PaymentStatus: PaymentStatusUnpaid,
		AmountTotal:   req.AmountCents,
		Metadata:      meta,
	}
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	cp := *sess
	return &cp, nil
}

func (s *StubGateway) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("stub: no such checkout session %s", id)
	}
	cp := *sess
	return &cp, nil
}

// SetSessionStatus changes what GetCheckoutSession reports.
func (s *StubGateway) SetSessionStatus(id, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.Status = status
	}
}

type stubEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

func (s *StubGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	if s.secret != "" && !s.verifySignature(payload, signature) {
		return nil, ErrInvalidSignature
	}
	var raw stubEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("stub: decode event: %w", err)
	}
	if raw.ID == "" || raw.Type == "" {
		return nil, errors.New("stub: event id and type required")
	}
	ev := &Event{ID: raw.ID, Type: raw.Type}
	switch {
	case strings.HasPrefix(raw.Type, "checkout.session."):
		var sess CheckoutSession
		if err := json.Unmarshal(raw.Data.Object, &sess); err != nil {
			return nil, fmt.Errorf("stub: decode session: %w", err)
		}
		ev.Session = &sess
	case strings.HasPrefix(raw.Type, "payment_intent."):
		var pi struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(raw.Data.Object, &pi)
		ev.PaymentIntentID = pi.ID
	}
	return ev, nil
}

// SignedEvent builds a webhook body for sess and its signature.
func (s *StubGateway) SignedEvent(eventID, eventType string, sess *CheckoutSession) ([]byte, string, error) {
	obj, err := json.Marshal(sess)
	if err != nil {
		return nil, "", err
	}
	body, err := json.Marshal(map[string]interface{}{
		"id":   eventID,
		"type": eventType,
		"data": map[string]json.RawMessage{"object": obj},
	})
	if err != nil {
		return nil, "", err
	}
	return body, s.Sign(body), nil
}

func (s *StubGateway) Sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *StubGateway) verifySignature(body []byte, signature string) bool {
	return hmac.Equal([]byte(signature), []byte(s.Sign(body)))
}

func (s *StubGateway) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if s.FailTransfers {
		return nil, errors.New("stub: transfer declined")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers = append(s.transfers, req)
	return &TransferResult{ID: fmt.Sprintf("tr_stub_%d", len(s.transfers))}, nil
}

func (s *StubGateway) Refund(ctx context.Context, paymentIntentID, idempotencyKey string) error {
	if paymentIntentID == "" {
		return errors.New("stub: payment intent required")
	}
	if s.FailRefunds {
		return errors.New("stub: refund declined")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refunds = append(s.refunds, paymentIntentID)
	return nil
}

// Transfers returns the transfers made so far.
func (s *StubGateway) Transfers() []TransferRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TransferRequest(nil), s.transfers...)
}

// Refunds returns the refunded payment intents.
func (s *StubGateway) Refunds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.refunds...)
}
