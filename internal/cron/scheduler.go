package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"quickride/internal/models"
	"quickride/internal/repository"
)

// stalePendingAge is how long a push request may sit in pending before
// the sweeper gives up on its callback ever arriving.
const stalePendingAge = 24 * time.Hour

// Scheduler manages all cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	repos  *CronRepos
}

// CronRepos bundles repositories needed by cron jobs.
type CronRepos struct {
	Booking *repository.BookingRepository
	Payment *repository.PaymentRepository
	Request *repository.PaymentRequestRepository
}

// New creates a new cron scheduler.
func New(repos *CronRepos, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		logger: logger,
		repos:  repos,
	}
}

// Start registers and starts all cron jobs.
func (s *Scheduler) Start() {
	s.logger.Info("Starting cron scheduler...")

	// Expire stale pending payment requests - every hour
	s.cron.AddFunc("0 0 * * * *", func() {
		s.logger.Debug("Running: expire stale payment requests")
		s.expireStaleRequests()
	})

	// Daily payment summary - at 23:45
	s.cron.AddFunc("0 45 23 * * *", func() {
		s.logger.Debug("Running: daily payment summary")
		s.dailyPaymentSummary()
	})

	s.cron.Start()
	s.logger.Info("Cron scheduler started")
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// ── Expire stale payment requests ─────────────────────────────────────

// expireStaleRequests fails push requests whose callback never arrived.
// The callback may still show up later; the orchestrator treats a
// callback for a resolved request as a no-op, so this sweep cannot race
// it into a double apply.
func (s *Scheduler) expireStaleRequests() {
	defer s.recoverFromPanic("expireStaleRequests")

	cutoff := time.Now().UTC().Add(-stalePendingAge)
	stale, err := s.repos.Request.FindStalePending(cutoff)
	if err != nil {
		s.logger.Error("Failed to list stale payment requests", zap.Error(err))
		return
	}

	for _, req := range stale {
		moved, err := s.repos.Request.Resolve(req.MerchantRequestID, models.RequestStatusFailed)
		if err != nil {
			s.logger.Error("Failed to expire payment request",
				zap.String("merchant_request_id", req.MerchantRequestID),
				zap.Uint("booking_id", req.BookingID),
				zap.Error(err))
			continue
		}
		if moved == 0 {
			// A callback beat the sweep to it.
			continue
		}

		if _, err := s.repos.Payment.FailPendingByBooking(req.BookingID); err != nil {
			s.logger.Error("Failed to fail pending payment for expired request",
				zap.Uint("booking_id", req.BookingID),
				zap.Error(err))
			continue
		}

		s.logger.Info("Expired stale payment request",
			zap.String("merchant_request_id", req.MerchantRequestID),
			zap.Uint("booking_id", req.BookingID),
			zap.Time("created_at", req.CreatedAt))
	}

	if len(stale) > 0 {
		s.logger.Info("Stale payment request sweep completed", zap.Int("processed", len(stale)))
	}
}

// ── Daily payment summary ─────────────────────────────────────────────

func (s *Scheduler) dailyPaymentSummary() {
	defer s.recoverFromPanic("dailyPaymentSummary")

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	completedCount, revenue, err := s.repos.Payment.CompletedSummarySince(startOfDay)
	if err != nil {
		s.logger.Error("Failed to summarize completed payments", zap.Error(err))
		return
	}
	failedCount, err := s.repos.Payment.FailedCountSince(startOfDay)
	if err != nil {
		s.logger.Error("Failed to count failed payments", zap.Error(err))
		return
	}
	confirmedBookings, err := s.repos.Booking.CountByStatusSince(models.BookingStatusConfirmed, startOfDay)
	if err != nil {
		s.logger.Error("Failed to count confirmed bookings", zap.Error(err))
		return
	}

	s.logger.Info("Daily payment summary",
		zap.String("date", now.Format("2006-01-02")),
		zap.Int64("completed_payments", completedCount),
		zap.Float64("revenue", revenue),
		zap.Int64("failed_payments", failedCount),
		zap.Int64("confirmed_bookings", confirmedBookings))
}

func (s *Scheduler) recoverFromPanic(jobName string) {
	if r := recover(); r != nil {
		s.logger.Error("Cron job panicked", zap.String("job", jobName), zap.Any("error", r))
	}
}
