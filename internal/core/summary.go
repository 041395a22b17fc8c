package core

import "github.com/shopspring/decimal"

// AccountFlow is the net movement of one account within a month.
type AccountFlow struct {
	AccountID string  `json:"accountId"`
	In        float64 `json:"in"`
	Out       float64 `json:"out"`
}

// MonthSummary is the dashboard overview for a single year-month.
type MonthSummary struct {
	Month        Month         `json:"month"`
	Income       float64       `json:"income"`
	Spent        float64       `json:"spent"`
	Budget       float64       `json:"budget"`
	Remaining    float64       `json:"remaining"`
	ShiftPay     float64       `json:"shiftPay"`
	ShiftDays    int           `json:"shiftDays"`
	DoubleShifts int           `json:"doubleShifts"`
	Accounts     []AccountFlow `json:"accounts"`
}

// SumAmounts adds amounts without float drift.
func SumAmounts(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total.InexactFloat64()
}

// SpentIn sums expense amounts dated within the month.
func SpentIn(txs []Transaction, m Month) float64 {
	spent := decimal.Zero
	for _, t := range txs {
		if t.Type == Expense && m.Includes(t.Date) {
			spent = spent.Add(decimal.NewFromFloat(t.Amount))
		}
	}
	return spent.InexactFloat64()
}

type flowTotals struct {
	in, out decimal.Decimal
}

// Summarize computes the month overview. Transfers move money between
// accounts and count toward neither income nor spend.
func Summarize(d AppData, m Month) MonthSummary {
	s := MonthSummary{Month: m, Budget: d.Budget}

	flows := make(map[string]*flowTotals, len(d.Accounts))
	order := make([]string, 0, len(d.Accounts))
	flow := func(id string) *flowTotals {
		if f, ok := flows[id]; ok {
			return f
		}
		f := &flowTotals{}
		flows[id] = f
		order = append(order, id)
		return f
	}
	for _, a := range d.Accounts {
		flow(a.ID)
	}

	income, spent := decimal.Zero, decimal.Zero
	for _, t := range d.Transactions {
		if !m.Includes(t.Date) {
			continue
		}
		amount := decimal.NewFromFloat(t.Amount)
		switch t.Type {
		case Income:
			income = income.Add(amount)
			f := flow(t.AcctFrom)
			f.in = f.in.Add(amount)
		case Expense:
			spent = spent.Add(amount)
			f := flow(t.AcctFrom)
			f.out = f.out.Add(amount)
		case Transfer:
			from := flow(t.AcctFrom)
			from.out = from.out.Add(amount)
			if t.AcctTo != "" {
				to := flow(t.AcctTo)
				to.in = to.in.Add(amount)
			}
		}
	}
	s.Income = income.InexactFloat64()
	s.Spent = spent.InexactFloat64()
	s.Remaining = decimal.NewFromFloat(s.Budget).Sub(spent).InexactFloat64()

	shiftPay := decimal.Zero
	for _, sh := range d.Shifts {
		if !m.Includes(sh.Date) {
			continue
		}
		s.ShiftDays++
		shiftPay = shiftPay.Add(decimal.NewFromFloat(sh.Pay()))
		if sh.IsDouble {
			s.DoubleShifts++
		}
	}
	s.ShiftPay = shiftPay.InexactFloat64()

	s.Accounts = make([]AccountFlow, 0, len(order))
	for _, id := range order {
		f := flows[id]
		s.Accounts = append(s.Accounts, AccountFlow{
			AccountID: id,
			In:        f.in.InexactFloat64(),
			Out:       f.out.InexactFloat64(),
		})
	}
	return s
}
