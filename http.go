package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/log"
	"github.com/rofl-app/rofl-amounts/internal/price"
	"github.com/rofl-app/rofl-amounts/internal/units"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
)

const (
	// Longest amount string accepted from clients.
	maxAmountLength = 100
	// Enough for any uint256 value.
	maxDecimals      = 78
	maxOfferIDLength = 64
)

func runServer() {
	server.Addr = config.ListenAddress
	server.Handler = newHandler()

	var err error
	if config.CertFile != "" && config.KeyFile != "" {
		err = server.ListenAndServeTLS(config.CertFile, config.KeyFile)
	} else {
		err = server.ListenAndServe()
	}
	if err == http.ErrServerClosed {
		return
	}
	log.Fatal(err)
}

func newHandler() http.Handler {
	ratelimitMiddleware := stdlib.NewMiddleware(rateLimiter)
	createQuote := ratelimitMiddleware.Handler(http.HandlerFunc(handleCreateQuote))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/units/from-base", handleFromBaseUnits)
	mux.HandleFunc("/api/units/to-base", handleToBaseUnits)
	mux.HandleFunc("/api/units/to-nano", handleToNano)
	mux.HandleFunc("/api/units/multiply", handleMultiply)
	mux.HandleFunc("/api/quote", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			createQuote.ServeHTTP(w, r)
		case http.MethodGet:
			handleVerifyQuote(w, r)
		default:
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	})
	if config.AdminPassword != "" {
		mux.HandleFunc("/admin/quote", handleAdminGetQuote)
		mux.HandleFunc("/admin/reprice", handleAdminReprice)
	}
	return cors.New(cors.Options{AllowedOrigins: config.AllowedOrigins}).Handler(mux)
}

// validAmount rejects input that would be expensive to expand, like "1e1000000000".
func validAmount(s string) bool {
	return len(s) <= maxAmountLength && !strings.ContainsAny(s, "eE")
}

func parseDecimals(s string) (int32, error) {
	if s == "" {
		return config.TokenDecimals, nil
	}
	d, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	if d < -maxDecimals || d > maxDecimals {
		return 0, errors.New("decimals out of range")
	}
	return int32(d), nil
}

// writeUnitsError responds with a message naming the invalid argument.
func writeUnitsError(w http.ResponseWriter, err error) {
	log.Debug(err)
	switch {
	case errors.Is(err, units.ErrInvalidBaseUnits):
		http.Error(w, "invalid base units", http.StatusBadRequest)
	case errors.Is(err, units.ErrInvalidMultiplier):
		http.Error(w, "invalid multiplier", http.StatusBadRequest)
	case errors.Is(err, units.ErrInvalidNumber):
		http.Error(w, "invalid value", http.StatusBadRequest)
	default:
		log.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(b)
	if err != nil {
		log.Debug(err)
	}
}

func handleFromBaseUnits(w http.ResponseWriter, r *http.Request) {
	value := r.FormValue("value")
	if !validAmount(value) {
		http.Error(w, "invalid value", http.StatusBadRequest)
		return
	}
	decimals, err := parseDecimals(r.FormValue("decimals"))
	if err != nil {
		http.Error(w, "invalid decimals", http.StatusBadRequest)
		return
	}
	s, err := units.FromBaseUnits(value, decimals)
	if err != nil {
		writeUnitsError(w, err)
		return
	}
	writeJSON(w, valueResponse{Value: s})
}

func handleToBaseUnits(w http.ResponseWriter, r *http.Request) {
	value := r.FormValue("value")
	if !validAmount(value) {
		http.Error(w, "invalid value", http.StatusBadRequest)
		return
	}
	decimals, err := parseDecimals(r.FormValue("decimals"))
	if err != nil {
		http.Error(w, "invalid decimals", http.StatusBadRequest)
		return
	}
	s, err := units.ToBaseUnits(value, decimals)
	if err != nil {
		writeUnitsError(w, err)
		return
	}
	writeJSON(w, valueResponse{Value: s})
}

func handleToNano(w http.ResponseWriter, r *http.Request) {
	value := r.FormValue("value")
	if !validAmount(value) {
		http.Error(w, "invalid value", http.StatusBadRequest)
		return
	}
	s, err := units.ConvertToNano(value)
	if err != nil {
		writeUnitsError(w, err)
		return
	}
	writeJSON(w, valueResponse{Value: s})
}

func handleMultiply(w http.ResponseWriter, r *http.Request) {
	baseUnits := r.FormValue("baseUnits")
	if !validAmount(baseUnits) {
		http.Error(w, "invalid base units", http.StatusBadRequest)
		return
	}
	multiplier := r.FormValue("multiplier")
	if !validAmount(multiplier) {
		http.Error(w, "invalid multiplier", http.StatusBadRequest)
		return
	}
	s, err := units.MultiplyBaseUnits(baseUnits, multiplier)
	if err != nil {
		writeUnitsError(w, err)
		return
	}
	writeJSON(w, valueResponse{Value: s})
}

func handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	offerID := r.FormValue("offer")
	if offerID == "" || len(offerID) > maxOfferIDLength {
		http.Error(w, "invalid offer", http.StatusBadRequest)
		return
	}
	priceValue := r.FormValue("price")
	pricePerTerm, err := decimal.NewFromString(priceValue)
	if err != nil || !validAmount(priceValue) || pricePerTerm.IsNegative() || !pricePerTerm.Equal(pricePerTerm.Truncate(0)) {
		http.Error(w, "invalid price", http.StatusBadRequest)
		return
	}
	termsValue := r.FormValue("terms")
	terms, err := decimal.NewFromString(termsValue)
	if err != nil || !validAmount(termsValue) || !terms.IsPositive() || terms.GreaterThan(config.MaxTerms) {
		http.Error(w, "invalid terms", http.StatusBadRequest)
		return
	}
	id, err := NewQuoteID()
	if err != nil {
		log.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	q := &Quote{
		ID:           id,
		OfferID:      offerID,
		PricePerTerm: pricePerTerm,
		Terms:        terms,
		Currency:     strings.ToUpper(r.FormValue("currency")),
		CreatedAt:    time.Now().UTC(),
	}
	err = q.calculate()
	if err != nil {
		writeUnitsError(w, err)
		return
	}
	err = q.reprice(priceAPI)
	if errors.Is(err, price.ErrNoAPIKey) {
		http.Error(w, "fiat conversion is not available", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		log.Error(err)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	err = q.Save()
	if err != nil {
		log.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	token, err := NewToken(q.ID, q.CreatedAt)
	if err != nil {
		log.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	response, err := NewResponse(q, token)
	if err != nil {
		log.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	log.Debugf("created new quote: %s offer=%s cost=%s", q.ID, q.OfferID, q.Cost)
	writeJSON(w, response)
}

func handleVerifyQuote(w http.ResponseWriter, r *http.Request) {
	token := r.FormValue("token")
	if token == "" {
		http.Error(w, "invalid token", http.StatusBadRequest)
		return
	}
	claims, err := ParseToken(token)
	if err == errTokenExpired {
		log.Debug(err)
		http.Error(w, "quote expired", http.StatusGone)
		return
	}
	if err != nil {
		log.Debug(err)
		http.Error(w, "invalid token", http.StatusBadRequest)
		return
	}
	q, err := LoadQuote(claims.QuoteID)
	if err == errQuoteNotFound {
		log.Debugln("quote not found:", claims.QuoteID)
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	response, err := NewResponse(q, token)
	if err != nil {
		log.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeJSON(w, response)
}
