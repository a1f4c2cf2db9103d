package snapshot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/executive-war-room/internal/domain/shared"
)

const (
	DefaultOrg          = "Portfolio"
	DefaultBusinessUnit = "All"
	DefaultPeriod       = PeriodMTD
	DefaultCurrency     = shared.CurrencyUSD
)

// Period is the reporting window ending at the snapshot's asOf
type Period string

const (
	PeriodMTD Period = "MTD"
	PeriodQTD Period = "QTD"
	PeriodYTD Period = "YTD"
)

// Start returns the first instant of the period containing asOf, in UTC
func (p Period) Start(asOf time.Time) time.Time {
	asOf = asOf.UTC()
	year, month, _ := asOf.Date()
	switch p {
	case PeriodYTD:
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	case PeriodQTD:
		first := time.Month((int(month)-1)/3*3 + 1)
		return time.Date(year, first, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	}
}

// Filters scope a snapshot. Use NormalizeFilters to build one from raw input.
type Filters struct {
	Org          string
	Period       Period
	Currency     shared.Currency
	BusinessUnit string
}

// NormalizeFilters applies defaults to absent values. Unrecognised periods
// and currencies fall back to the default rather than failing.
func NormalizeFilters(org, period, currency, businessUnit string) Filters {
	f := Filters{
		Org:          strings.TrimSpace(org),
		Period:       Period(strings.ToUpper(strings.TrimSpace(period))),
		BusinessUnit: strings.TrimSpace(businessUnit),
	}
	if f.Org == "" || strings.EqualFold(f.Org, DefaultOrg) {
		f.Org = DefaultOrg
	}
	if f.BusinessUnit == "" || strings.EqualFold(f.BusinessUnit, DefaultBusinessUnit) {
		f.BusinessUnit = DefaultBusinessUnit
	}
	switch f.Period {
	case PeriodMTD, PeriodQTD, PeriodYTD:
	default:
		f.Period = DefaultPeriod
	}
	if c, err := shared.ParseCurrency(currency); err == nil {
		f.Currency = c
	} else {
		f.Currency = DefaultCurrency
	}
	return f
}

// Rates holds the USD value of one unit of each supported currency
type Rates map[shared.Currency]float64

// ParseRates reads a CODE:rate list such as "USD:1,GBP:1.27,EUR:1.08".
// Every supported currency must be present with a positive rate.
func ParseRates(raw string) (Rates, error) {
	rates := make(Rates)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		code, value, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("invalid fx rate %q: expected CODE:rate", pair)
		}
		cur, err := shared.ParseCurrency(code)
		if err != nil {
			return nil, fmt.Errorf("invalid fx rate %q: %w", pair, err)
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("invalid fx rate %q: rate must be a positive number", pair)
		}
		rates[cur] = rate
	}

	for _, cur := range shared.Currencies {
		if _, ok := rates[cur]; !ok {
			return nil, fmt.Errorf("missing fx rate for %s", cur)
		}
	}
	return rates, nil
}

// Convert expresses amount (minor units of from) in minor units of to,
// rounded to the nearest unit
func (r Rates) Convert(amount int64, from, to shared.Currency) (int64, error) {
	if from == to {
		return amount, nil
	}
	fromRate, ok := r[from]
	if !ok {
		return 0, fmt.Errorf("missing fx rate for %s", from)
	}
	toRate, ok := r[to]
	if !ok {
		return 0, fmt.Errorf("missing fx rate for %s", to)
	}
	return roundToInt(float64(amount) * fromRate / toRate), nil
}
