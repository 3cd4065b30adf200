package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubWebhookSignature(t *testing.T) {
	g := NewStubGateway("whsec_test")
	sess, err := g.CreateCheckoutSession(context.Background(), CheckoutRequest{
		AmountCents: 2500,
		Currency:    "usd",
		Metadata:    map[string]string{MetaBookingID: "4", MetaPaymentID: "9"},
	})
	require.NoError(t, err)
	sess.PaymentStatus = PaymentStatusPaid

	body, sig, err := g.SignedEvent("evt_1", EventCheckoutCompleted, sess)
	require.NoError(t, err)

	ev, err := g.ParseWebhook(body, sig)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	require.NotNil(t, ev.Session)
	assert.Equal(t, "4", ev.Session.Metadata[MetaBookingID])
	assert.Equal(t, PaymentStatusPaid, ev.Session.PaymentStatus)

	_, err = g.ParseWebhook(body, "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestStubTransferFailure(t *testing.T) {
	g := NewStubGateway("s")
	_, err := g.Transfer(context.Background(), TransferRequest{AmountCents: 100, Destination: "acct_1"})
	require.NoError(t, err)

	g.FailTransfers = true
	_, err = g.Transfer(context.Background(), TransferRequest{AmountCents: 100, Destination: "acct_1"})
	assert.Error(t, err)
	assert.Len(t, g.Transfers(), 1)
}
