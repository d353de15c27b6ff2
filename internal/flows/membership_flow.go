package flows

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vartikaresort/funpark-backend/internal/client"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

const msgMembershipFailed = "Membership purchase failed"

// MembershipStep is the position in the purchase flow
type MembershipStep int

const (
	StepSelectPlan MembershipStep = iota + 1
	StepSubmitProof
	StepConfirmed
)

// MembershipAPI is the part of the API the purchase flow calls
type MembershipAPI interface {
	PurchaseMembership(ctx context.Context, tier models.MembershipTier, amount decimal.Decimal, transactionID string, screenshot client.FileUpload) (*models.MembershipPurchaseResponse, error)
}

// MembershipFlowConfig tunes a MembershipFlow; zero values take defaults
type MembershipFlowConfig struct {
	Plans              []models.MembershipPlan
	MaxScreenshotBytes int64
	Logger             logrus.FieldLogger
}

// MembershipFlowState is a snapshot of the purchase flow
type MembershipFlowState struct {
	Step          MembershipStep
	Plan          *models.MembershipPlan
	TransactionID string
	HasScreenshot bool
	Submitting    bool
	Purchase      *models.MembershipPurchase
}

// MembershipFlow is plan selection, then payment proof, then confirmation
type MembershipFlow struct {
	api     MembershipAPI
	session *Session
	guard   *Guard
	cfg     MembershipFlowConfig

	mu             sync.Mutex
	step           MembershipStep
	plan           *models.MembershipPlan
	transactionID  string
	screenshot     []byte
	screenshotName string
	submitting     bool
	purchase       *models.MembershipPurchase
}

// NewMembershipFlow starts at plan selection
func NewMembershipFlow(api MembershipAPI, session *Session, cfg MembershipFlowConfig) *MembershipFlow {
	if len(cfg.Plans) == 0 {
		cfg.Plans = models.DefaultMembershipPlans()
	}
	if cfg.MaxScreenshotBytes <= 0 {
		cfg.MaxScreenshotBytes = MaxScreenshotBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	return &MembershipFlow{
		api:     api,
		session: session,
		guard:   NewGuard(session),
		cfg:     cfg,
		step:    StepSelectPlan,
	}
}

// Plans lists the plans on offer
func (f *MembershipFlow) Plans() []models.MembershipPlan {
	return f.cfg.Plans
}

// SelectPlan picks a tier and moves to the proof step. Without a token the
// login redirect is returned instead and the flow does not advance.
func (f *MembershipFlow) SelectPlan(tier models.MembershipTier) (Access, error) {
	access := f.guard.Check()
	if !access.Allowed {
		return access, client.AuthRequiredError()
	}

	plan, ok := models.FindPlan(f.cfg.Plans, tier)
	if !ok {
		return access, client.ValidationError("unknown membership plan: " + string(tier))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitting {
		return access, ErrSubmitting
	}
	f.plan = &plan
	f.step = StepSubmitProof
	return access, nil
}

// SetProof records the transaction id and screenshot. An oversized or
// non-image screenshot is rejected here, before any request.
func (f *MembershipFlow) SetProof(transactionID string, screenshot []byte, name string) error {
	if err := validateScreenshot(screenshot, f.cfg.MaxScreenshotBytes); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepSubmitProof {
		return ErrWrongStep
	}
	if f.submitting {
		return ErrSubmitting
	}
	f.transactionID = strings.TrimSpace(transactionID)
	f.screenshot = screenshot
	f.screenshotName = name
	return nil
}

// Submit sends the proof. On failure the flow stays on the proof step with
// the proof intact so the user can retry or correct it.
func (f *MembershipFlow) Submit(ctx context.Context) (*models.MembershipPurchase, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrSubmitting
	}
	if f.step != StepSubmitProof || f.plan == nil {
		f.mu.Unlock()
		return nil, ErrWrongStep
	}
	if f.transactionID == "" {
		f.mu.Unlock()
		return nil, client.ValidationError("transactionId is required")
	}
	if err := validateScreenshot(f.screenshot, f.cfg.MaxScreenshotBytes); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if !f.session.IsAuthenticated() {
		f.mu.Unlock()
		return nil, client.AuthRequiredError()
	}

	plan := *f.plan
	txID := f.transactionID
	upload := client.FileUpload{Name: f.screenshotName, Data: f.screenshot}
	f.submitting = true
	f.mu.Unlock()

	resp, err := f.api.PurchaseMembership(ctx, plan.Tier, plan.Amount, txID, upload)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		return nil, withFallback(err, msgMembershipFailed)
	}

	purchase := resp.Membership
	f.purchase = &purchase
	f.step = StepConfirmed
	f.clearDraftLocked()
	f.cfg.Logger.WithFields(logrus.Fields{
		"plan_type": plan.Tier,
		"status":    purchase.Status,
	}).Debug("Membership purchase submitted")
	return &purchase, nil
}

// BackToPlans returns to plan selection and discards the draft
func (f *MembershipFlow) BackToPlans() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitting {
		return ErrSubmitting
	}
	f.clearDraftLocked()
	f.purchase = nil
	f.step = StepSelectPlan
	return nil
}

// State returns a snapshot of the flow
func (f *MembershipFlow) State() MembershipFlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := MembershipFlowState{
		Step:          f.step,
		TransactionID: f.transactionID,
		HasScreenshot: len(f.screenshot) > 0,
		Submitting:    f.submitting,
		Purchase:      f.purchase,
	}
	if f.plan != nil {
		plan := *f.plan
		state.Plan = &plan
	}
	return state
}

func (f *MembershipFlow) clearDraftLocked() {
	f.plan = nil
	f.transactionID = ""
	f.screenshot = nil
	f.screenshotName = ""
}
