package client

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/vartikaresort/funpark-backend/internal/models"
)

// MembershipPlans returns the purchasable plans
func (c *Client) MembershipPlans(ctx context.Context) ([]models.MembershipPlan, error) {
	var resp struct {
		Plans []models.MembershipPlan `json:"plans"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/membership/plans", public, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Plans, nil
}

// PurchaseMembership submits a payment proof for a plan
func (c *Client) PurchaseMembership(ctx context.Context, tier models.MembershipTier, amount decimal.Decimal, transactionID string, screenshot FileUpload) (*models.MembershipPurchaseResponse, error) {
	var resp models.MembershipPurchaseResponse
	fields := []formField{
		{name: "planType", value: string(tier)},
		{name: "amount", value: amount.String()},
		{name: "transactionId", value: transactionID},
	}
	if err := c.doMultipart(ctx, "/api/membership/purchase", fields, "screenshot", screenshot, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MyMemberships returns the logged in user's purchases
func (c *Client) MyMemberships(ctx context.Context) ([]models.MembershipPurchase, error) {
	var resp struct {
		Memberships []models.MembershipPurchase `json:"memberships"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/membership/mine", authenticated, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Memberships, nil
}
