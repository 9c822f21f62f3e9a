// Package stats maintains the per-year payroll rollup document as a side
// effect of payroll sync: monthly totals, per-employee totals, year totals,
// and the append-only rate/deduction histories.
//
// Recompute derives every total from the source payroll summaries on each
// run instead of incrementing counters, so running it twice over the same
// data writes the same document.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/paytally/paysync/internal/docstore"
	"github.com/paytally/paysync/internal/model"
)

const collection = "statistics"

// Aggregator writes statistics documents through the document-store gateway.
type Aggregator struct {
	gw  docstore.Gateway
	log *slog.Logger
}

// New wires the aggregator to the gateway.
func New(gw docstore.Gateway, logger *slog.Logger) *Aggregator {
	return &Aggregator{gw: gw, log: logger}
}

// monthlyTotal is one month's rollup.
type monthlyTotal struct {
	totalGrossPay float64
	totalNetPay   float64
	employeeIDs   []string
}

// employeeStat is one employee's year-to-date rollup.
type employeeStat struct {
	totalGrossPay   float64
	totalNetPay     float64
	payrollCount    int
	lastPayrollDate time.Time
	lastDailyRate   float64
	lastDeductions  map[string]float64
}

// Recompute rebuilds the statistics document for year from the given payroll
// summaries (summaries outside the year are ignored). History arrays from the
// existing document are carried over, with a new entry appended only when an
// employee's rate or deduction set changed since the last recorded entry.
func (a *Aggregator) Recompute(ctx context.Context, year int, summaries []model.PayrollSummary) error {
	months := make(map[int]*monthlyTotal)
	monthEmployees := make(map[int]map[string]bool)
	employees := make(map[string]*employeeStat)

	for _, p := range summaries {
		if p.Year != year {
			continue
		}
		if p.Month < 1 || p.Month > 12 {
			a.log.Warn("skipping payroll with invalid month", "payroll", p.ID, "month", p.Month)
			continue
		}

		mt := months[p.Month]
		if mt == nil {
			mt = &monthlyTotal{}
			months[p.Month] = mt
			monthEmployees[p.Month] = make(map[string]bool)
		}
		mt.totalGrossPay += p.GrossPay
		mt.totalNetPay += p.NetPay
		monthEmployees[p.Month][p.EmployeeID] = true

		es := employees[p.EmployeeID]
		if es == nil {
			es = &employeeStat{}
			employees[p.EmployeeID] = es
		}
		es.totalGrossPay += p.GrossPay
		es.totalNetPay += p.NetPay
		es.payrollCount++
		// Most recent by period end, not by iteration order.
		if p.PeriodEnd.After(es.lastPayrollDate) {
			es.lastPayrollDate = p.PeriodEnd
			es.lastDailyRate = p.DailyRate
			es.lastDeductions = p.Deductions
		}
	}

	for month, ids := range monthEmployees {
		sorted := make([]string, 0, len(ids))
		for id := range ids {
			sorted = append(sorted, id)
		}
		sort.Strings(sorted)
		months[month].employeeIDs = sorted
	}

	if err := validate(months, employees); err != nil {
		return fmt.Errorf("statistics for %d failed validation: %w", year, err)
	}

	docID := strconv.Itoa(year)
	existing, err := a.gw.Fetch(ctx, collection, docID)
	if err != nil {
		a.log.Warn("existing statistics unreadable, histories restart", "year", year, "error", err)
		existing = nil
	}
	rateHistory, deductionHistory := a.extendHistories(existing, employees)

	payload := buildDocument(year, months, employees, rateHistory, deductionHistory)
	if err := a.gw.Save(ctx, collection, docID, payload); err != nil {
		return fmt.Errorf("writing statistics for %d: %w", year, err)
	}
	return nil
}

// validate applies the basic shape checks before any write: no negative
// counts, no non-finite sums.
func validate(months map[int]*monthlyTotal, employees map[string]*employeeStat) error {
	finite := func(name string, v float64) error {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s is not finite", name)
		}
		return nil
	}
	for month, mt := range months {
		if err := finite(fmt.Sprintf("monthlyTotals[%d].totalGrossPay", month), mt.totalGrossPay); err != nil {
			return err
		}
		if err := finite(fmt.Sprintf("monthlyTotals[%d].totalNetPay", month), mt.totalNetPay); err != nil {
			return err
		}
	}
	for id, es := range employees {
		if es.payrollCount < 0 {
			return fmt.Errorf("employeeStats[%s].payrollCount is negative", id)
		}
		if err := finite(fmt.Sprintf("employeeStats[%s].totalGrossPay", id), es.totalGrossPay); err != nil {
			return err
		}
		if err := finite(fmt.Sprintf("employeeStats[%s].totalNetPay", id), es.totalNetPay); err != nil {
			return err
		}
	}
	return nil
}

// extendHistories carries the existing history arrays forward and appends an
// entry per employee whose latest rate/deductions differ from the last
// recorded entry. Unchanged data appends nothing, keeping recompute idempotent.
func (a *Aggregator) extendHistories(existing map[string]any, employees map[string]*employeeStat) (rates, deductions []any) {
	if existing != nil {
		rates, _ = existing["dailyRateHistory"].([]any)
		deductions, _ = existing["deductionsHistory"].([]any)
	}

	lastRate := make(map[string]float64)
	for _, raw := range rates {
		if entry, ok := raw.(map[string]any); ok {
			if id, ok := entry["employeeId"].(string); ok {
				lastRate[id] = toFloat(entry["dailyRate"])
			}
		}
	}
	lastDeductions := make(map[string]map[string]float64)
	for _, raw := range deductions {
		if entry, ok := raw.(map[string]any); ok {
			if id, ok := entry["employeeId"].(string); ok {
				lastDeductions[id] = toFloatMap(entry["deductions"])
			}
		}
	}

	ids := make([]string, 0, len(employees))
	for id := range employees {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	now := model.FormatDate(time.Now())
	for _, id := range ids {
		es := employees[id]
		if prev, seen := lastRate[id]; !seen || prev != es.lastDailyRate {
			rates = append(rates, map[string]any{
				"employeeId":    id,
				"dailyRate":     es.lastDailyRate,
				"effectiveDate": model.FormatDate(es.lastPayrollDate),
				"recordedAt":    now,
			})
		}
		if prev, seen := lastDeductions[id]; !seen || !reflect.DeepEqual(prev, normalizeFloatMap(es.lastDeductions)) {
			rows := make(map[string]any, len(es.lastDeductions))
			for k, v := range es.lastDeductions {
				rows[k] = v
			}
			deductions = append(deductions, map[string]any{
				"employeeId": id,
				"deductions": rows,
				"recordedAt": now,
			})
		}
	}
	return rates, deductions
}

// buildDocument assembles the full statistics payload. Year totals are the
// sum across monthly totals, so the invariant holds by construction.
func buildDocument(year int, months map[int]*monthlyTotal, employees map[string]*employeeStat, rateHistory, deductionHistory []any) map[string]any {
	monthly := make(map[string]any, len(months))
	var totalGross, totalNet float64
	for month, mt := range months {
		ids := make([]any, 0, len(mt.employeeIDs))
		for _, id := range mt.employeeIDs {
			ids = append(ids, id)
		}
		monthly[strconv.Itoa(month)] = map[string]any{
			"totalGrossPay":  mt.totalGrossPay,
			"totalNetPay":    mt.totalNetPay,
			"totalEmployees": len(mt.employeeIDs),
			"employeeIds":    ids,
		}
		totalGross += mt.totalGrossPay
		totalNet += mt.totalNetPay
	}

	perEmployee := make(map[string]any, len(employees))
	for id, es := range employees {
		perEmployee[id] = map[string]any{
			"totalGrossPay":   es.totalGrossPay,
			"totalNetPay":     es.totalNetPay,
			"payrollCount":    es.payrollCount,
			"lastPayrollDate": model.FormatDate(es.lastPayrollDate),
		}
	}

	if rateHistory == nil {
		rateHistory = []any{}
	}
	if deductionHistory == nil {
		deductionHistory = []any{}
	}

	return map[string]any{
		"meta": map[string]any{
			"year":         year,
			"lastModified": model.FormatDate(time.Now()),
		},
		"monthlyTotals": monthly,
		"employeeStats": perEmployee,
		"totals": map[string]any{
			"grossPay":      totalGross,
			"netPay":        totalNet,
			"employeeCount": len(employees),
		},
		"dailyRateHistory":  rateHistory,
		"deductionsHistory": deductionHistory,
	}
}

// --- helpers -----------------------------------------------------------------

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	default:
		return 0
	}
}

func toFloatMap(v any) map[string]float64 {
	raw, ok := v.(map[string]any)
	if !ok {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(raw))
	for k, val := range raw {
		out[k] = toFloat(val)
	}
	return out
}

func normalizeFloatMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
