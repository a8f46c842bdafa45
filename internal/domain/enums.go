package domain

// RiskLevel is the three-value ordinal describing assessed anomaly risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

var riskRank = map[RiskLevel]int{
	RiskLow:    0,
	RiskMedium: 1,
	RiskHigh:   2,
}

// Rank returns the ordinal position of the level. Unknown levels rank below low.
func (l RiskLevel) Rank() int {
	return riskRank[l]
}

// Valid reports whether l is one of the three known levels.
func (l RiskLevel) Valid() bool {
	_, ok := riskRank[l]
	return ok
}

// MaxRiskLevel returns the higher of two levels.
func MaxRiskLevel(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Currency is an ISO-4217 style currency code.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyUAH Currency = "UAH"
	CurrencyINR Currency = "INR"
	CurrencyJPY Currency = "JPY"
	CurrencyCHF Currency = "CHF"
	CurrencyPLN Currency = "PLN"
)

// Known reports whether c is one of the supported currency codes.
func (c Currency) Known() bool {
	return KnownCurrencies[c]
}

// KnownCurrencies lists every currency code extraction output may carry.
var KnownCurrencies = map[Currency]bool{
	CurrencyUSD: true,
	CurrencyEUR: true,
	CurrencyGBP: true,
	CurrencyUAH: true,
	CurrencyINR: true,
	CurrencyJPY: true,
	CurrencyCHF: true,
	CurrencyPLN: true,
}

// UpsertOutcome describes how the persistence gateway resolved an upsert.
type UpsertOutcome string

const (
	OutcomeInserted UpsertOutcome = "inserted"
	OutcomeMerged   UpsertOutcome = "merged"
)

// DocumentType names the contract categories known to the registry.
const (
	DocTypeStandardInvoice = "standard_invoice"
	DocTypeCreditNote      = "credit_note"
	DocTypeReceipt         = "receipt"
)
