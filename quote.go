package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/log"
	"github.com/rofl-app/rofl-amounts/internal/maplock"
	"github.com/rofl-app/rofl-amounts/internal/units"
	"github.com/shopspring/decimal"
	"go.etcd.io/bbolt"
)

const quotesBucket = "quotes"

var errQuoteNotFound = errors.New("quote not found")

// fiatDecimals is the number of decimal places fiat amounts are rounded to.
const fiatDecimals = 2

// Quote is the cost of renting an offer for a number of terms.
// It is stored in the database in JSON format.
type Quote struct {
	ID string `json:"id"`
	// Offer the quote is made for.
	OfferID string `json:"offerId"`
	// Price of a single term in base units.
	PricePerTerm decimal.Decimal `json:"pricePerTerm"`
	// Number of terms. May be fractional.
	Terms decimal.Decimal `json:"terms"`
	// PricePerTerm * Terms in base units, truncated.
	Cost decimal.Decimal `json:"cost"`
	// Fiat currency requested by client. Empty if no conversion is requested.
	Currency string `json:"currency"`
	// Price of one token in Currency at the time of pricing.
	FiatPrice decimal.Decimal `json:"fiatPrice"`
	// Cost in Currency.
	FiatAmount decimal.Decimal `json:"fiatAmount"`
	CreatedAt  time.Time       `json:"createdAt"`
	// Set when the fiat amount is recalculated from admin endpoint.
	RepricedAt *time.Time `json:"repricedAt"`
}

// NewQuoteID returns a random hex string.
func NewQuoteID() (string, error) {
	b := make([]byte, 8)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// LoadQuote fetches a Quote object from database by ID.
func LoadQuote(id string) (*Quote, error) {
	var value []byte
	err := db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(quotesBucket))
		v := b.Get([]byte(id))
		if v == nil {
			return nil
		}
		value = make([]byte, len(v))
		copy(value, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, errQuoteNotFound
	}
	var q Quote
	err = json.Unmarshal(value, &q)
	return &q, err
}

// Save the Quote object in database.
func (q *Quote) Save() error {
	value, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(quotesBucket))
		return b.Put([]byte(q.ID), value)
	})
}

func (q *Quote) calculate() error {
	cost, err := units.MultiplyBaseUnits(q.PricePerTerm.String(), q.Terms)
	if err != nil {
		return err
	}
	q.Cost, err = decimal.NewFromString(cost)
	return err
}

// CostInTokens returns Cost in whole tokens.
func (q *Quote) CostInTokens() (decimal.Decimal, error) {
	s, err := units.FromBaseUnits(q.Cost.String(), config.TokenDecimals)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(s)
}

type priceGetter interface {
	GetPrice(currency string) (decimal.Decimal, error)
}

func (q *Quote) reprice(prices priceGetter) error {
	if q.Currency == "" {
		return nil
	}
	price, err := prices.GetPrice(q.Currency)
	if err != nil {
		return err
	}
	tokens, err := q.CostInTokens()
	if err != nil {
		return err
	}
	q.FiatPrice = price
	q.FiatAmount = tokens.Mul(price).Round(fiatDecimals)
	log.Debugf("quote %s priced at %s %s", q.ID, q.FiatAmount, q.Currency)
	return nil
}

func (q *Quote) Expired() bool {
	return q.remainingDuration() <= 0
}

func (q *Quote) remainingDuration() time.Duration {
	return q.CreatedAt.Add(config.QuoteDuration).Sub(time.Now().UTC())
}

var locks = maplock.New()

// Reprice loads the quote, recalculates its fiat amount and saves it.
// Concurrent calls for the same quote are serialized.
func Reprice(id string, prices priceGetter) (*Quote, error) {
	locks.Lock(id)
	defer locks.Unlock(id)
	q, err := LoadQuote(id)
	if err != nil {
		return nil, err
	}
	err = q.reprice(prices)
	if err != nil {
		return nil, err
	}
	t := time.Now().UTC()
	q.RepricedAt = &t
	return q, q.Save()
}
