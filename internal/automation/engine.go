// Package automation derives the salary deposit and recurring bills that are
// due in the current month.
//
// An evaluation pass is a pure function of its Input: the same Input always
// yields the same keys, and a key already present in ProcessedEvents never
// produces a second transaction. Evaluation only moves forward; editing a
// trigger day after its event fired does not undo or repeat it.
package automation

import (
	"fmt"
	"time"

	"nzql/internal/core"
)

const (
	SalaryNote          = "薪資自動入帳"
	recurringNoteFormat = "%s (訂閱)"
)

// Input is everything one evaluation pass looks at.
type Input struct {
	Now       time.Time
	Salary    core.SalaryConfig
	Recurring []core.RecurringItem
	Processed core.ProcessedEvents
	Accounts  []core.Account
}

// InputFrom collects the pass input from a snapshot. now should already be in
// the location whose calendar decides the month and day.
func InputFrom(now time.Time, d core.AppData) Input {
	return Input{
		Now:       now,
		Salary:    d.SalaryConfig,
		Recurring: d.Recurring,
		Processed: d.ProcessedEvents,
		Accounts:  d.Accounts,
	}
}

// Result holds the newly due transactions and the keys that fired them, in
// evaluation order.
type Result struct {
	Transactions []core.Transaction
	Keys         []string
}

func (r Result) Empty() bool {
	return len(r.Keys) == 0
}

// Engine evaluates salary and recurring rules.
type Engine struct {
	newID func() core.TransactionID
}

// NewEngine returns an engine that stamps transactions with time-ordered ids.
func NewEngine() *Engine {
	return &Engine{newID: core.NewTransactionID}
}

// Evaluate runs one pass. Salary is evaluated before recurring items, and
// recurring items in list order.
func (e *Engine) Evaluate(in Input) Result {
	month := core.MonthOf(in.Now)
	today := in.Now.Day()

	var res Result
	fired := make(map[string]struct{})
	seen := func(key string) bool {
		if _, ok := fired[key]; ok {
			return true
		}
		return in.Processed.Contains(key)
	}

	if salaryDue(in.Salary, today) {
		key := SalaryKey(month).String()
		if !seen(key) {
			res.Transactions = append(res.Transactions, core.Transaction{
				ID:       e.newID(),
				Type:     core.Income,
				Amount:   in.Salary.Amount,
				Note:     SalaryNote,
				Date:     month.DayStamp(in.Salary.Day),
				AcctFrom: resolveAccount(in.Salary.AccountID, in.Accounts),
			})
			res.Keys = append(res.Keys, key)
			fired[key] = struct{}{}
		}
	}

	for _, rec := range in.Recurring {
		if !recurringDue(rec, today) {
			continue
		}
		key := RecurringKey(month, rec.ID).String()
		if seen(key) {
			continue
		}
		res.Transactions = append(res.Transactions, core.Transaction{
			ID:       e.newID(),
			Type:     core.Expense,
			Amount:   rec.Amount,
			Note:     fmt.Sprintf(recurringNoteFormat, rec.Name),
			Date:     month.DayStamp(rec.Day),
			AcctFrom: resolveAccount(rec.AccountID, in.Accounts),
		})
		res.Keys = append(res.Keys, key)
		fired[key] = struct{}{}
	}

	return res
}

// Apply appends a result to a snapshot copy. An empty result returns d as is.
func Apply(d core.AppData, r Result) core.AppData {
	if r.Empty() {
		return d
	}
	out := d.Clone()
	out.Transactions = append(out.Transactions, r.Transactions...)
	out.ProcessedEvents = append(out.ProcessedEvents, r.Keys...)
	return out
}

func salaryDue(cfg core.SalaryConfig, today int) bool {
	return cfg.Enabled && cfg.Amount > 0 && today >= cfg.Day
}

func recurringDue(rec core.RecurringItem, today int) bool {
	return today >= rec.Day
}

// resolveAccount keeps a configured account that still exists and otherwise
// falls back to the first account. With no accounts at all it returns "".
func resolveAccount(id string, accounts []core.Account) string {
	if id != "" {
		for _, a := range accounts {
			if a.ID == id {
				return id
			}
		}
	}
	if len(accounts) > 0 {
		return accounts[0].ID
	}
	return ""
}
