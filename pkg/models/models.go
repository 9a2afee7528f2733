package models

import (
	"fmt"
	"strings"
)

// Currency is one of the fiat currencies the off-ramp settles into.
type Currency uint8

const (
	CurrencyEUR Currency = 0
	CurrencyGBP Currency = 1
	CurrencyUSD Currency = 2
	CurrencyBRL Currency = 3
	CurrencyINR Currency = 4
)

var currencyNames = map[Currency]string{
	CurrencyEUR: "EUR",
	CurrencyGBP: "GBP",
	CurrencyUSD: "USD",
	CurrencyBRL: "BRL",
	CurrencyINR: "INR",
}

func (c Currency) String() string {
	if name, ok := currencyNames[c]; ok {
		return name
	}
	return fmt.Sprintf("currency(%d)", uint8(c))
}

// Valid reports whether c is a supported currency code.
func (c Currency) Valid() bool {
	_, ok := currencyNames[c]
	return ok
}

// ParseCurrency parses a currency name like "EUR".
func ParseCurrency(s string) (Currency, error) {
	for c, name := range currencyNames {
		if strings.EqualFold(s, name) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown currency %q", s)
}

// Route is a real-time payment network. Each route services exactly one
// currency.
type Route uint8

const (
	RouteSEPAInstant Route = 0 // EUR
	RouteFPS         Route = 1 // GBP
	RouteRTP         Route = 2 // USD
	RoutePIX         Route = 3 // BRL
	RouteUPI         Route = 4 // INR
)

var routeNames = map[Route]string{
	RouteSEPAInstant: "SEPA_INSTANT",
	RouteFPS:         "FPS",
	RouteRTP:         "RTP",
	RoutePIX:         "PIX",
	RouteUPI:         "UPI",
}

var routeCurrencies = map[Route]Currency{
	RouteSEPAInstant: CurrencyEUR,
	RouteFPS:         CurrencyGBP,
	RouteRTP:         CurrencyUSD,
	RoutePIX:         CurrencyBRL,
	RouteUPI:         CurrencyINR,
}

func (r Route) String() string {
	if name, ok := routeNames[r]; ok {
		return name
	}
	return fmt.Sprintf("route(%d)", uint8(r))
}

// Valid reports whether r is a supported payment route.
func (r Route) Valid() bool {
	_, ok := routeNames[r]
	return ok
}

// Currency returns the fiat currency the route settles into.
func (r Route) Currency() Currency {
	return routeCurrencies[r]
}

// ParseRoute parses a route name like "SEPA_INSTANT".
func ParseRoute(s string) (Route, error) {
	for r, name := range routeNames {
		if strings.EqualFold(s, name) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown route %q", s)
}

// RoutesForCurrency returns the routes that settle into the given currency.
func RoutesForCurrency(c Currency) []Route {
	var routes []Route
	for r, rc := range routeCurrencies {
		if rc == c {
			routes = append(routes, r)
		}
	}
	return routes
}

// IntentStatus is the locally tracked lifecycle state of an intent.
type IntentStatus string

const (
	StatusCreated         IntentStatus = "created"
	StatusCommitted       IntentStatus = "committed"
	StatusFulfilled       IntentStatus = "fulfilled"
	StatusCancelled       IntentStatus = "cancelled"
	StatusFailedPermanent IntentStatus = "failed_permanent"
)

// Terminal reports whether the status admits no further transitions.
func (s IntentStatus) Terminal() bool {
	switch s {
	case StatusFulfilled, StatusCancelled, StatusFailedPermanent:
		return true
	}
	return false
}

// On-chain intent status codes as stored by the off-ramp contract.
const (
	OnchainStatusNone      uint8 = 0
	OnchainStatusCreated   uint8 = 1
	OnchainStatusCommitted uint8 = 2
	OnchainStatusFulfilled uint8 = 3
	OnchainStatusCancelled uint8 = 4
)
