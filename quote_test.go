package main

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedPrice struct {
	price decimal.Decimal
	err   error
}

func (p fixedPrice) GetPrice(currency string) (decimal.Decimal, error) {
	return p.price, p.err
}

func TestQuoteCalculate(t *testing.T) {
	config = DefaultConfig
	q := Quote{
		PricePerTerm: decimal.RequireFromString("1000000000000000000"),
		Terms:        decimal.RequireFromString("1.333333333333333333"),
	}
	require.NoError(t, q.calculate())
	assert.Equal(t, "1333333333333333333", q.Cost.String())

	tokens, err := q.CostInTokens()
	require.NoError(t, err)
	assert.Equal(t, "1.333333333333333333", tokens.String())

	q.Currency = "USD"
	require.NoError(t, q.reprice(fixedPrice{price: decimal.RequireFromString("3")}))
	assert.Equal(t, "4", q.FiatAmount.String())
	assert.Equal(t, "3", q.FiatPrice.String())
}

func TestQuoteRepriceError(t *testing.T) {
	config = DefaultConfig
	q := Quote{Cost: decimal.New(1, 18), Currency: "USD"}
	errPrice := errors.New("price unavailable")
	assert.Equal(t, errPrice, q.reprice(fixedPrice{err: errPrice}))
	assert.True(t, q.FiatAmount.IsZero())

	q.Currency = ""
	assert.NoError(t, q.reprice(fixedPrice{err: errPrice}))
}

func TestQuoteExpiry(t *testing.T) {
	config = DefaultConfig
	q := Quote{CreatedAt: time.Now().UTC()}
	assert.False(t, q.Expired())
	assert.True(t, q.remainingDuration() > 59*time.Minute)

	q.CreatedAt = q.CreatedAt.Add(-2 * time.Hour)
	assert.True(t, q.Expired())
}

func TestQuoteStore(t *testing.T) {
	setup(t)

	_, err := LoadQuote("missing")
	assert.Equal(t, errQuoteNotFound, err)

	id, err := NewQuoteID()
	require.NoError(t, err)
	assert.Len(t, id, 16)
	q := &Quote{
		ID:           id,
		OfferID:      "offer",
		PricePerTerm: decimal.New(5, 0),
		Terms:        decimal.New(2, 0),
		Currency:     "USD",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, q.calculate())
	require.NoError(t, q.Save())

	loaded, err := LoadQuote(id)
	require.NoError(t, err)
	assert.Equal(t, "10", loaded.Cost.String())
	assert.Equal(t, q.OfferID, loaded.OfferID)
	assert.True(t, q.CreatedAt.Equal(loaded.CreatedAt))
}

func TestRepriceConcurrent(t *testing.T) {
	setup(t)
	q := &Quote{ID: "q", Cost: decimal.New(1, 18), Currency: "USD", CreatedAt: time.Now().UTC()}
	require.NoError(t, q.Save())

	prices := fixedPrice{price: decimal.RequireFromString("0.5")}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Reprice("q", prices)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	loaded, err := LoadQuote("q")
	require.NoError(t, err)
	assert.Equal(t, "0.5", loaded.FiatAmount.String())
	assert.NotNil(t, loaded.RepricedAt)
	assert.Equal(t, 0, locks.Len())
}
