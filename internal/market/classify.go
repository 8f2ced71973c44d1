package market

import "strings"

// Class groups currency codes by the provider and refresh cadence that apply
// to them.
type Class string

const (
	ClassFiat   Class = "fiat"
	ClassCrypto Class = "crypto"
)

// fiatCodes is the set of ISO 4217 codes the feed treats as fiat. Anything
// not listed here is classified as a crypto asset.
var fiatCodes = map[string]struct{}{
	"AED": {}, "ARS": {}, "AUD": {}, "BGN": {}, "BHD": {}, "BRL": {},
	"CAD": {}, "CHF": {}, "CLP": {}, "CNY": {}, "COP": {}, "CZK": {},
	"DKK": {}, "EGP": {}, "EUR": {}, "GBP": {}, "HKD": {}, "HRK": {},
	"HUF": {}, "IDR": {}, "ILS": {}, "INR": {}, "ISK": {}, "JPY": {},
	"KRW": {}, "KWD": {}, "MAD": {}, "MXN": {}, "MYR": {}, "NGN": {},
	"NOK": {}, "NZD": {}, "PEN": {}, "PHP": {}, "PKR": {}, "PLN": {},
	"RON": {}, "RSD": {}, "RUB": {}, "SAR": {}, "SEK": {}, "SGD": {},
	"THB": {}, "TRY": {}, "TWD": {}, "UAH": {}, "USD": {}, "VND": {},
	"ZAR": {},
}

// IsFiat reports whether the code is a known fiat currency.
func IsFiat(code string) bool {
	_, ok := fiatCodes[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// ClassOf classifies a currency code as fiat or crypto.
func ClassOf(code string) Class {
	if IsFiat(code) {
		return ClassFiat
	}
	return ClassCrypto
}
