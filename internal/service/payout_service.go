package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tourhub/config"
	"tourhub/internal/apperr"
	"tourhub/internal/domain"
	"tourhub/internal/logger"
	"tourhub/internal/models"
	"tourhub/internal/repository"
	"tourhub/pkg/payment"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type PayoutRequest struct {
	AmountCents int64
	Destination string
}

type PayoutService struct {
	db       *gorm.DB
	cfg      config.PayoutConfig
	currency string
	gateway  payment.Gateway
	locker   Locker
	notifier *NotificationService
	payouts  *repository.PayoutRepository
	hosts    *repository.HostRepository
}

func NewPayoutService(db *gorm.DB, cfg config.PayoutConfig, currency string, gateway payment.Gateway, locker Locker, notifier *NotificationService) *PayoutService {
	return &PayoutService{
		db:       db,
		cfg:      cfg,
		currency: currency,
		gateway:  gateway,
		locker:   locker,
		notifier: notifier,
		payouts:  repository.NewPayoutRepository(db),
		hosts:    repository.NewHostRepository(db),
	}
}

func (s *PayoutService) minimumError() error {
	return apperr.BadRequest("Minimum payout amount is " + wholeMoney(s.cfg.MinimumCents))
}

// Request debits the host balance for a payout and transfers it. A failed transfer
// credits the balance back.
func (s *PayoutService) Request(ctx context.Context, actor Actor, in PayoutRequest) (*models.Payout, error) {
	if in.AmountCents < s.cfg.MinimumCents {
		return nil, s.minimumError()
	}
	var p *models.Payout
	var hostUserID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		hosts := s.hosts.WithTx(tx)
		h, err := hosts.GetByUserIDForUpdate(actor.UserID)
		if err != nil {
			return notFound(err, "Host not found")
		}
		hostUserID = h.UserID
		dest := strings.TrimSpace(in.Destination)
		if dest == "" {
			dest = h.PayoutAccountID
		}
		if dest == "" {
			return apperr.BadRequest("Please add a payout account before requesting a payout")
		}
		if h.BalanceCents < in.AmountCents {
			return apperr.BadRequest("Insufficient balance")
		}
		p = &models.Payout{
			HostID:      h.ID,
			AmountCents: in.AmountCents,
			Currency:    s.currency,
			Status:      domain.PayoutPending,
			Destination: dest,
		}
		if err := s.payouts.WithTx(tx).Create(p); err != nil {
			return err
		}
		err = hosts.Debit(h.ID, in.AmountCents, domain.LedgerPayout, ref("payout", p.ID))
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return apperr.BadRequest("Insufficient balance")
		}
		return err
	})
	if err != nil {
		return nil, dbErr(err)
	}
	logger.For("payout").WithFields(logrus.Fields{"payout_id": p.ID, "amount_cents": p.AmountCents}).Info("payout requested")

	res, terr := s.transfer(ctx, p)
	if err := s.finish(ctx, p, hostUserID, res, terr); err != nil {
		return nil, err
	}
	out, err := s.payouts.GetByID(p.ID)
	return out, dbErr(err)
}

func (s *PayoutService) transfer(ctx context.Context, p *models.Payout) (*payment.TransferResult, error) {
	if err := s.payouts.IncrementAttempts(p.ID); err != nil {
		return nil, err
	}
	p.Attempts++
	return s.gateway.Transfer(ctx, payment.TransferRequest{
		AmountCents:    p.AmountCents,
		Currency:       p.Currency,
		Destination:    p.Destination,
		Description:    fmt.Sprintf("Payout %d", p.ID),
		IdempotencyKey: fmt.Sprintf("payout-%d", p.ID),
		Metadata: map[string]string{
			"payoutId": strconv.FormatUint(uint64(p.ID), 10),
			"hostId":   strconv.FormatUint(uint64(p.HostID), 10),
		},
	})
}

// finish records the outcome of a transfer. Only a payout still PENDING is touched, so
// a request and the reconciler never settle the same payout twice.
func (s *PayoutService) finish(ctx context.Context, p *models.Payout, hostUserID uint, res *payment.TransferResult, transferErr error) error {
	log := logger.For("payout").WithField("payout_id", p.ID)
	at := now()
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payouts := s.payouts.WithTx(tx)
		if _, err := payouts.GetPendingForUpdate(p.ID); err != nil {
			if repository.IsNotFound(err) {
				return nil
			}
			return err
		}
		applied = true
		hosts := s.hosts.WithTx(tx)
		if transferErr == nil {
			if err := payouts.UpdateFields(p.ID, map[string]interface{}{
				"status": domain.PayoutCompleted, "transfer_id": res.ID, "processed_at": at,
			}); err != nil {
				return err
			}
			return hosts.TouchLastPayout(p.HostID, at)
		}
		reason := transferErr.Error()
		if len(reason) > 255 {
			reason = reason[:255]
		}
		if err := payouts.UpdateFields(p.ID, map[string]interface{}{
			"status": domain.PayoutFailed, "failure_reason": reason, "processed_at": at,
		}); err != nil {
			return err
		}
		return hosts.Restore(p.HostID, p.AmountCents, domain.LedgerPayoutReversal, ref("payout", p.ID))
	})
	if err != nil {
		log.WithError(err).Error("could not record payout outcome")
		return dbErr(err)
	}
	if !applied {
		return nil
	}
	if hostUserID == 0 {
		if h, err := s.hosts.GetByID(p.HostID); err == nil {
			hostUserID = h.UserID
		}
	}
	if transferErr != nil {
		log.WithError(transferErr).Warn("payout transfer failed, balance restored")
		s.notifier.PayoutFailed(hostUserID, p.ID, p.AmountCents)
		return nil
	}
	log.WithField("transfer_id", res.ID).Info("payout completed")
	s.notifier.PayoutCompleted(hostUserID, p.ID, p.AmountCents)
	return nil
}

type PayoutOverview struct {
	Payouts      []models.Payout          `json:"payouts"`
	Total        int64                    `json:"-"`
	Statistics   *repository.PayoutTotals `json:"statistics"`
	BalanceCents int64                    `json:"available_balance_cents"`
}

func (s *PayoutService) List(userID uint, p repository.Page) (*PayoutOverview, error) {
	h, err := hostFor(s.hosts, userID)
	if err != nil {
		return nil, err
	}
	list, total, err := s.payouts.ListByHost(h.ID, p)
	if err != nil {
		return nil, dbErr(err)
	}
	totals, err := s.payouts.Totals(h.ID)
	if err != nil {
		return nil, dbErr(err)
	}
	return &PayoutOverview{Payouts: list, Total: total, Statistics: totals, BalanceCents: h.BalanceCents}, nil
}

type PayoutStats struct {
	MinimumCents     int64      `json:"minimum_payout_cents"`
	BalanceCents     int64      `json:"available_balance_cents"`
	CanRequest       bool       `json:"can_request_payout"`
	HasPayoutAccount bool       `json:"has_payout_account"`
	PendingCents     int64      `json:"pending_cents"`
	TotalPaidCents   int64      `json:"total_paid_out_cents"`
	LastPayoutAt     *time.Time `json:"last_payout_at"`
}

func (s *PayoutService) Stats(userID uint) (*PayoutStats, error) {
	h, err := hostFor(s.hosts, userID)
	if err != nil {
		return nil, err
	}
	totals, err := s.payouts.Totals(h.ID)
	if err != nil {
		return nil, dbErr(err)
	}
	return &PayoutStats{
		MinimumCents:     s.cfg.MinimumCents,
		BalanceCents:     h.BalanceCents,
		CanRequest:       h.BalanceCents >= s.cfg.MinimumCents && h.PayoutAccountID != "",
		HasPayoutAccount: h.PayoutAccountID != "",
		PendingCents:     totals.PendingCents,
		TotalPaidCents:   totals.CompletedCents,
		LastPayoutAt:     h.LastPayoutAt,
	}, nil
}

// Ledger lists the balance history of the calling host.
func (s *PayoutService) Ledger(userID uint, p repository.Page) ([]models.LedgerEntry, int64, error) {
	h, err := hostFor(s.hosts, userID)
	if err != nil {
		return nil, 0, err
	}
	list, total, err := s.hosts.Ledger(h.ID, p)
	return list, total, dbErr(err)
}
