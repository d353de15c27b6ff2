package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MembershipTier identifies a membership plan
type MembershipTier string

const (
	MembershipMonthly   MembershipTier = "monthly"
	MembershipQuarterly MembershipTier = "quarterly"
	MembershipYearly    MembershipTier = "yearly"
	MembershipLifetime  MembershipTier = "lifetime"
)

// ParseMembershipTier parses a plan type, ignoring case
func ParseMembershipTier(s string) (MembershipTier, error) {
	switch t := MembershipTier(strings.ToLower(strings.TrimSpace(s))); t {
	case MembershipMonthly, MembershipQuarterly, MembershipYearly, MembershipLifetime:
		return t, nil
	}
	return "", fmt.Errorf("invalid plan type: %s", s)
}

// MembershipPlan is one purchasable tier
type MembershipPlan struct {
	Tier     MembershipTier  `json:"planType"`
	Title    string          `json:"title"`
	Amount   decimal.Decimal `json:"amount"`
	Period   string          `json:"period"`
	Popular  bool            `json:"popular,omitempty"`
	Benefits []string        `json:"benefits,omitempty"`
}

// NewMembershipPlans returns the four plans with the given amounts
func NewMembershipPlans(monthly, quarterly, yearly, lifetime decimal.Decimal) []MembershipPlan {
	return []MembershipPlan{
		{
			Tier: MembershipMonthly, Title: "Monthly", Amount: monthly, Period: "/month",
			Benefits: []string{"Free park entry", "10% off food & beverages"},
		},
		{
			Tier: MembershipQuarterly, Title: "Quarterly", Amount: quarterly, Period: "/quarter",
			Benefits: []string{"Free park entry", "15% off food & beverages", "1 free guest pass"},
		},
		{
			Tier: MembershipYearly, Title: "Yearly", Amount: yearly, Period: "/year", Popular: true,
			Benefits: []string{"Free park entry", "20% off food & beverages", "5 free guest passes", "Priority room booking"},
		},
		{
			Tier: MembershipLifetime, Title: "Lifetime", Amount: lifetime, Period: "one-time",
			Benefits: []string{"Unlimited park entry", "25% off everything", "Unlimited guest passes", "VIP lounge access"},
		},
	}
}

// DefaultMembershipPlans returns the plans at list price
func DefaultMembershipPlans() []MembershipPlan {
	return NewMembershipPlans(
		decimal.NewFromInt(2999),
		decimal.NewFromInt(7999),
		decimal.NewFromInt(24999),
		decimal.NewFromInt(99999),
	)
}

// FindPlan looks up a plan by tier
func FindPlan(plans []MembershipPlan, tier MembershipTier) (MembershipPlan, bool) {
	for _, p := range plans {
		if p.Tier == tier {
			return p, true
		}
	}
	return MembershipPlan{}, false
}

// MembershipStatus is the verification state of a purchase
type MembershipStatus string

const (
	MembershipPendingVerification MembershipStatus = "pending-verification"
	MembershipApproved            MembershipStatus = "approved"
	MembershipRejected            MembershipStatus = "rejected"
)

// MembershipPurchase is a submitted payment proof for a plan
type MembershipPurchase struct {
	ID            uuid.UUID        `json:"_id"`
	UserID        uuid.UUID        `json:"userId"`
	PlanType      MembershipTier   `json:"planType"`
	Amount        decimal.Decimal  `json:"amount"`
	TransactionID string           `json:"transactionId"`
	ScreenshotRef string           `json:"screenshot"`
	Status        MembershipStatus `json:"status"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// MembershipPurchaseRequest carries the non-file multipart fields of a purchase
type MembershipPurchaseRequest struct {
	PlanType      string `form:"planType" binding:"required"`
	Amount        string `form:"amount" binding:"required"`
	TransactionID string `form:"transactionId" binding:"required"`
}

// MembershipPurchaseResponse is the response of POST /api/membership/purchase
type MembershipPurchaseResponse struct {
	Message    string             `json:"message"`
	Membership MembershipPurchase `json:"membership"`
}
