package main

import (
	"time"

	"github.com/shopspring/decimal"
)

// Response that we return from quote endpoints.
type Response struct {
	Token            string          `json:"token"`
	ID               string          `json:"id"`
	OfferID          string          `json:"offerId"`
	PricePerTerm     decimal.Decimal `json:"pricePerTerm"`
	Terms            decimal.Decimal `json:"terms"`
	Cost             decimal.Decimal `json:"cost"`
	CostInTokens     decimal.Decimal `json:"costInTokens"`
	Symbol           string          `json:"symbol"`
	Currency         string          `json:"currency,omitempty"`
	FiatAmount       decimal.Decimal `json:"fiatAmount"`
	RemainingSeconds int             `json:"remainingSeconds"`
	Expired          bool            `json:"expired"`
}

func NewResponse(q *Quote, token string) (*Response, error) {
	tokens, err := q.CostInTokens()
	if err != nil {
		return nil, err
	}
	remaining := q.remainingDuration()
	if remaining < 0 {
		remaining = 0
	}
	return &Response{
		Token:            token,
		ID:               q.ID,
		OfferID:          q.OfferID,
		PricePerTerm:     q.PricePerTerm,
		Terms:            q.Terms,
		Cost:             q.Cost,
		CostInTokens:     tokens,
		Symbol:           config.TokenSymbol,
		Currency:         q.Currency,
		FiatAmount:       q.FiatAmount,
		RemainingSeconds: int(remaining / time.Second),
		Expired:          q.Expired(),
	}, nil
}

// valueResponse is returned from unit conversion endpoints.
type valueResponse struct {
	Value string `json:"value"`
}
