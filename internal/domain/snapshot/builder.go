// Package snapshot rolls ledger state into the executive summary tiles.
// Build is pure: identical events, filters, asOf and rates give identical output.
package snapshot

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/executive-war-room/internal/domain/ledger"
	"github.com/executive-war-room/internal/domain/shared"
)

// Tile units
const (
	UnitCount      = "count"
	UnitRatio      = "ratio"
	UnitMinorUnits = "minor_units"
)

// Tile is one named figure of the snapshot
type Tile struct {
	Key      string          `json:"key"`
	Label    string          `json:"label"`
	Value    float64         `json:"value"`
	Unit     string          `json:"unit"`
	Currency shared.Currency `json:"currency,omitempty"`
}

// Snapshot is the filter-scoped projection returned to the dashboard
type Snapshot struct {
	Org          string          `json:"org"`
	Period       Period          `json:"period"`
	Currency     shared.Currency `json:"currency"`
	BusinessUnit string          `json:"businessUnit"`
	AsOf         time.Time       `json:"asOf"`
	PeriodStart  time.Time       `json:"periodStart"`
	Tiles        []Tile          `json:"tiles"`
}

// Build computes the snapshot for f over events created within the period
// ending at asOf. events is not modified.
func Build(events []*ledger.Event, f Filters, asOf time.Time, rates Rates) Snapshot {
	asOf = asOf.UTC()
	start := f.Period.Start(asOf)

	scoped := make([]*ledger.Event, 0, len(events))
	for _, e := range events {
		if inScope(e, f, start, asOf) {
			scoped = append(scoped, e)
		}
	}
	// Fixed order keeps floating point sums reproducible
	sort.Slice(scoped, func(i, j int) bool { return scoped[i].ID < scoped[j].ID })

	var (
		byStatus      = map[ledger.Status]int{}
		receipts      int
		verified      int
		confidenceSum float64
		confidenceN   int
		valueTotal    int64
		valueApproved int64
	)
	for _, e := range scoped {
		byStatus[e.Status]++

		for _, r := range e.Receipts {
			receipts++
			if r.Gate == ledger.GateVerified {
				verified++
			}
			if r.Confidence != nil {
				confidenceSum += *r.Confidence
				confidenceN++
			}
		}

		value, err := rates.Convert(e.Amount, e.Currency, f.Currency)
		if err != nil {
			continue
		}
		valueTotal += value
		if e.Status == ledger.StatusApproved {
			valueApproved += value
		}
	}

	total := len(scoped)
	approved := byStatus[ledger.StatusApproved]

	tiles := []Tile{
		countTile("events_total", "Events", total),
		countTile("events_new", "New", byStatus[ledger.StatusNew]),
		countTile("events_assigned", "Assigned", byStatus[ledger.StatusAssigned]),
		countTile("events_approved", "Approved", approved),
		ratioTile("approval_rate", "Approval rate", ratio(approved, total)),
		countTile("receipts_total", "Receipts", receipts),
		countTile("receipts_verified", "Verified receipts", verified),
		countTile("receipts_unverified", "Unverified receipts", receipts-verified),
		ratioTile("verification_rate", "Verification rate", ratio(verified, receipts)),
		moneyTile("value_total", "Total value", valueTotal, f.Currency),
		moneyTile("value_approved", "Approved value", valueApproved, f.Currency),
		ratioTile("receipt_confidence_avg", "Avg. receipt confidence", mean(confidenceSum, confidenceN)),
	}

	return Snapshot{
		Org:          f.Org,
		Period:       f.Period,
		Currency:     f.Currency,
		BusinessUnit: f.BusinessUnit,
		AsOf:         asOf,
		PeriodStart:  start,
		Tiles:        tiles,
	}
}

func inScope(e *ledger.Event, f Filters, start, asOf time.Time) bool {
	if f.Org != DefaultOrg && !strings.EqualFold(e.Org, f.Org) {
		return false
	}
	if f.BusinessUnit != DefaultBusinessUnit && !strings.EqualFold(e.BusinessUnit, f.BusinessUnit) {
		return false
	}
	created := e.CreatedAt.UTC()
	return !created.Before(start) && !created.After(asOf)
}

func countTile(key, label string, n int) Tile {
	return Tile{Key: key, Label: label, Value: float64(n), Unit: UnitCount}
}

func ratioTile(key, label string, v float64) Tile {
	return Tile{Key: key, Label: label, Value: v, Unit: UnitRatio}
}

func moneyTile(key, label string, v int64, c shared.Currency) Tile {
	return Tile{Key: key, Label: label, Value: float64(v), Unit: UnitMinorUnits, Currency: c}
}

func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round4(float64(part) / float64(whole))
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return round4(sum / float64(n))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func roundToInt(v float64) int64 {
	return int64(math.Round(v))
}
