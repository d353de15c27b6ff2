package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vartikaresort/funpark-backend/internal/database"
	"github.com/vartikaresort/funpark-backend/internal/metrics"
	"github.com/vartikaresort/funpark-backend/internal/models"
	"github.com/vartikaresort/funpark-backend/internal/storage"
)

// ErrPlanAmountMismatch indicates an amount that differs from the plan price
var ErrPlanAmountMismatch = errors.New("amount does not match the selected plan")

// MembershipService handles membership purchases
type MembershipService struct {
	repo          *database.MembershipRepository
	store         storage.Store
	plans         []models.MembershipPlan
	maxProofBytes int64
	logger        *logrus.Logger
}

// NewMembershipService creates a new membership service
func NewMembershipService(repo *database.MembershipRepository, store storage.Store, plans []models.MembershipPlan, maxProofBytes int64, logger *logrus.Logger) *MembershipService {
	return &MembershipService{
		repo:          repo,
		store:         store,
		plans:         plans,
		maxProofBytes: maxProofBytes,
		logger:        logger,
	}
}

// Plans returns the purchasable plans
func (s *MembershipService) Plans() []models.MembershipPlan {
	return s.plans
}

// Purchase records a plan purchase awaiting manual verification
func (s *MembershipService) Purchase(userID uuid.UUID, req *models.MembershipPurchaseRequest, screenshot []byte) (*models.MembershipPurchase, error) {
	tier, err := models.ParseMembershipTier(req.PlanType)
	if err != nil {
		return nil, invalid(err)
	}
	plan, ok := models.FindPlan(s.plans, tier)
	if !ok {
		return nil, invalid(fmt.Errorf("plan %s is not available", tier))
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return nil, invalid(fmt.Errorf("invalid amount: %s", req.Amount))
	}
	if !amount.Equal(plan.Amount) {
		return nil, ErrPlanAmountMismatch
	}

	transactionID := strings.TrimSpace(req.TransactionID)
	if transactionID == "" {
		return nil, ErrMissingTransactionID
	}

	_, ext, err := storage.ValidateImage(screenshot, s.maxProofBytes)
	if err != nil {
		metrics.TrackPaymentProof("membership", false)
		return nil, invalid(err)
	}

	ref, err := s.store.Save("membership", screenshot, ext)
	if err != nil {
		return nil, err
	}

	purchase := &models.MembershipPurchase{
		UserID:        userID,
		PlanType:      tier,
		Amount:        plan.Amount,
		TransactionID: transactionID,
		ScreenshotRef: ref,
		Status:        models.MembershipPendingVerification,
	}
	if err := s.repo.Create(purchase); err != nil {
		return nil, err
	}

	metrics.TrackPaymentProof("membership", true)
	s.logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"plan_type": tier,
	}).Info("Membership purchase submitted")

	return purchase, nil
}

// ListMine returns the caller's purchases
func (s *MembershipService) ListMine(userID uuid.UUID) ([]models.MembershipPurchase, error) {
	return s.repo.ListByUser(userID)
}
