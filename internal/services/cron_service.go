package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/vartikaresort/funpark-backend/internal/database"
)

// auditRetention is how long audit rows are kept
const auditRetention = 90 * 24 * time.Hour

// CronService manages scheduled background jobs
type CronService struct {
	cron           *cron.Cron
	otpService     *OTPService
	rateLimiter    *OTPThrottle
	auditService   *AuditService
	resetTokenRepo *database.ResetTokenRepository
	bookingService *BookingService
	logger         *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(
	otpService *OTPService,
	rateLimiter *OTPThrottle,
	auditService *AuditService,
	resetTokenRepo *database.ResetTokenRepository,
	bookingService *BookingService,
	logger *logrus.Logger,
) *CronService {
	return &CronService{
		cron:           cron.New(cron.WithSeconds()),
		otpService:     otpService,
		rateLimiter:    rateLimiter,
		auditService:   auditService,
		resetTokenRepo: resetTokenRepo,
		bookingService: bookingService,
		logger:         logger,
	}
}

// Start schedules and starts all cron jobs
func (s *CronService) Start() error {
	// second minute hour day month weekday
	jobs := []struct {
		spec string
		name string
		fn   func()
	}{
		{"0 */10 * * * *", "cleanup expired OTPs", s.cleanupOTPsJob},
		{"0 */30 * * * *", "cleanup rate limits", s.cleanupRateLimitsJob},
		{"0 0 * * * *", "cleanup reset tokens", s.cleanupResetTokensJob},
		{"0 0 4 * * 0", "cleanup audit logs", s.cleanupAuditLogsJob},
		{"0 */5 * * * *", "refresh booking gauges", s.refreshBookingStatsJob},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, job.fn); err != nil {
			return fmt.Errorf("failed to schedule %s job: %w", job.name, err)
		}
		s.logger.WithFields(logrus.Fields{"job": job.name, "schedule": job.spec}).Info("Scheduled cron job")
	}

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// JobCount returns the number of scheduled jobs
func (s *CronService) JobCount() int {
	return len(s.cron.Entries())
}

func (s *CronService) cleanupOTPsJob() {
	s.runCleanup("otp_verifications", s.otpService.CleanupExpiredOTPs)
}

func (s *CronService) cleanupRateLimitsJob() {
	s.runCleanup("otp_rate_limits", s.rateLimiter.Prune)
}

func (s *CronService) cleanupResetTokensJob() {
	s.runCleanup("password_reset_tokens", s.resetTokenRepo.DeleteExpired)
}

func (s *CronService) cleanupAuditLogsJob() {
	s.runCleanup("audit_logs", func() (int64, error) {
		return s.auditService.CleanupOldAuditLogs(auditRetention)
	})
}

func (s *CronService) refreshBookingStatsJob() {
	if _, err := s.bookingService.Stats(); err != nil {
		s.logger.WithError(err).Warn("Failed to refresh booking gauges")
	}
}

func (s *CronService) runCleanup(table string, fn func() (int64, error)) {
	start := time.Now()
	deleted, err := fn()
	if err != nil {
		s.logger.WithError(err).WithField("table", table).Error("Cleanup job failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"table":    table,
		"deleted":  deleted,
		"duration": time.Since(start).String(),
	}).Debug("Cleanup job finished")
}
