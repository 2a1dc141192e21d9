package price

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/log"
	"github.com/shopspring/decimal"
)

const defaultQuotesURL = "https://pro-api.coinmarketcap.com/v1/cryptocurrency/quotes/latest"

type priceWithTimestamp struct {
	Price     decimal.Decimal
	FetchedAt time.Time
}

var (
	ErrNoAPIKey          = errors.New("empty CoinmarketcapAPIKey value in config")
	errBadTickerResponse = errors.New("bad ticker response")
	errBadPrice          = errors.New("bad price")
)

type quotesResponse struct {
	Data map[string]struct {
		Quote map[string]struct {
			Price json.Number `json:"price"`
		} `json:"quote"`
	} `json:"data"`
}

// API returns fiat prices of a single coin listed on CoinMarketCap.
type API struct {
	apiKey        string
	coinID        string
	url           string
	cacheDuration time.Duration
	client        http.Client

	mPrice sync.Mutex
	prices map[string]priceWithTimestamp
}

func NewAPI(apiKey, coinID string, clientTimeout, cacheDuration time.Duration) *API {
	return &API{
		apiKey:        apiKey,
		coinID:        coinID,
		url:           defaultQuotesURL,
		cacheDuration: cacheDuration,
		client:        http.Client{Timeout: clientTimeout},
		prices:        make(map[string]priceWithTimestamp),
	}
}

// SetURL changes the quotes endpoint.
func (p *API) SetURL(u string) {
	p.url = u
}

// GetPrice returns the price of one whole token in currency. Empty currency means USD.
func (p *API) GetPrice(currency string) (price decimal.Decimal, err error) {
	if p.apiKey == "" {
		err = ErrNoAPIKey
		return
	}
	if currency == "" {
		currency = "USD"
	}
	currency = strings.ToUpper(currency)

	p.mPrice.Lock()
	defer p.mPrice.Unlock()

	if cached, ok := p.prices[currency]; ok && time.Since(cached.FetchedAt) < p.cacheDuration {
		return cached.Price, nil
	}

	price, err = p.fetch(currency)
	if err != nil {
		return
	}
	p.prices[currency] = priceWithTimestamp{
		Price:     price,
		FetchedAt: time.Now(),
	}
	return
}

func (p *API) fetch(currency string) (price decimal.Decimal, err error) {
	req, err := http.NewRequest(http.MethodGet, p.url, nil) // nolint:noctx // client timeout set
	if err != nil {
		return
	}
	q := url.Values{}
	q.Add("id", p.coinID)
	q.Add("convert", currency)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accepts", "application/json")
	req.Header.Add("X-CMC_PRO_API_KEY", p.apiKey)

	log.Debugln("fetching price for", currency)
	resp, err := p.client.Do(req)
	if err != nil {
		return
	}
	defer func() {
		if err2 := resp.Body.Close(); err2 != nil {
			log.Debug(err2)
		}
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err = fmt.Errorf("%w: status %d", errBadTickerResponse, resp.StatusCode)
		return
	}
	var response quotesResponse
	err = json.Unmarshal(body, &response)
	if err != nil {
		return
	}
	coin, ok := response.Data[p.coinID]
	if !ok {
		err = fmt.Errorf("%w: coin %s missing", errBadTickerResponse, p.coinID)
		return
	}
	quote, ok := coin.Quote[currency]
	if !ok {
		err = fmt.Errorf("bad currency: %s", currency)
		return
	}
	price, err = decimal.NewFromString(quote.Price.String())
	if err != nil {
		return
	}
	if !price.IsPositive() {
		err = errBadPrice
		return
	}
	return
}
