package main

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cenkalti/log"
	"github.com/rofl-app/rofl-amounts/internal/price"
)

const adminName = "admin"

// checkAdmin writes an error response and returns false if the request is not authorized.
func checkAdmin(w http.ResponseWriter, r *http.Request) bool {
	username, password, ok := r.BasicAuth()
	if !ok {
		w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return false
	}
	if username != adminName || subtle.ConstantTimeCompare([]byte(password), []byte(config.AdminPassword)) != 1 {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return false
	}
	return true
}

func writeQuote(w http.ResponseWriter, q *Quote) {
	b, err := json.MarshalIndent(q, "", "  ")
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

func handleAdminGetQuote(w http.ResponseWriter, r *http.Request) {
	if !checkAdmin(w, r) {
		return
	}
	id := r.FormValue("id")
	if id == "" {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	q, err := LoadQuote(id)
	if err == errQuoteNotFound {
		log.Debugln("quote not found:", id)
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeQuote(w, q)
}

func handleAdminReprice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if !checkAdmin(w, r) {
		return
	}
	id := r.FormValue("id")
	if id == "" {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	q, err := Reprice(id, priceAPI)
	switch {
	case err == errQuoteNotFound:
		log.Debugln("quote not found:", id)
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	case errors.Is(err, price.ErrNoAPIKey):
		http.Error(w, "fiat conversion is not available", http.StatusServiceUnavailable)
		return
	case err != nil:
		log.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeQuote(w, q)
}
