package state

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"nzql/internal/automation"
	"nzql/internal/core"
	"nzql/internal/log"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUnknownAccount = errors.New("unknown account")
	ErrInvalidURL     = errors.New("invalid sync url")
)

// NewAccount describes an account to create. A positive OpeningBalance is
// recorded as an income transaction on the new account.
type NewAccount struct {
	Name           string
	Type           core.AccountType
	OpeningBalance float64
}

// Settings is a partial update; nil fields are left unchanged.
type Settings struct {
	Budget       *float64
	SalaryConfig *core.SalaryConfig
	CloudSyncURL *string
	Tags         *[]string
}

// AddTransaction records a transaction. An empty id or date is filled in.
func (s *Store) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	now := s.Now()
	if tx.ID == "" {
		tx.ID = core.NewTransactionID()
	}
	if strings.TrimSpace(tx.Date) == "" {
		tx.Date = core.Timestamp(now)
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	_, err := s.Update(ctx, func(d *core.AppData) (Change, error) {
		if _, ok := d.AccountByID(tx.AcctFrom); !ok {
			return ChangeNone, fmt.Errorf("add transaction: %w %q", ErrUnknownAccount, tx.AcctFrom)
		}
		if tx.Type == core.Transfer {
			if _, ok := d.AccountByID(tx.AcctTo); !ok {
				return ChangeNone, fmt.Errorf("add transaction: %w %q", ErrUnknownAccount, tx.AcctTo)
			}
		} else {
			tx.AcctTo = ""
		}
		d.Transactions = append(d.Transactions, tx)
		return ChangeTransactions, nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	log.NewStructuredLogger(s.logger).LogTransactionCreated(ctx, tx.ID.String(), string(tx.Type), tx.Amount, tx.AcctFrom)
	return tx, nil
}

// AddAccount creates an account with a zero stored balance.
func (s *Store) AddAccount(ctx context.Context, in NewAccount) (core.Account, error) {
	acc := core.Account{Name: strings.TrimSpace(in.Name), Type: in.Type}
	if err := acc.Validate(); err != nil {
		return core.Account{}, fmt.Errorf("add account: %w", err)
	}
	if in.OpeningBalance < 0 {
		return core.Account{}, fmt.Errorf("add account: %w", core.ErrInvalidAmount)
	}

	now := s.Now()
	_, err := s.Update(ctx, func(d *core.AppData) (Change, error) {
		acc.ID = uniqueID("acc", now, func(id string) bool {
			_, ok := d.AccountByID(id)
			return ok
		})
		d.Accounts = append(d.Accounts, acc)

		changed := ChangeAccounts
		if in.OpeningBalance > 0 {
			d.Transactions = append(d.Transactions, core.Transaction{
				ID:       core.NewTransactionID(),
				Type:     core.Income,
				Amount:   in.OpeningBalance,
				Note:     core.OpeningBalanceNote,
				Date:     core.Timestamp(now),
				AcctFrom: acc.ID,
			})
			changed |= ChangeTransactions
		}
		return changed, nil
	})
	if err != nil {
		return core.Account{}, err
	}
	return acc, nil
}

// DeleteAccount removes an account. Transactions and rules that reference it
// are kept as they are.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	_, err := s.Update(ctx, func(d *core.AppData) (Change, error) {
		n := len(d.Accounts)
		d.Accounts = slices.DeleteFunc(d.Accounts, func(a core.Account) bool { return a.ID == id })
		if len(d.Accounts) == n {
			return ChangeNone, fmt.Errorf("account %q: %w", id, ErrNotFound)
		}
		return ChangeAccounts, nil
	})
	return err
}

// SaveShift stores the shift for its date, replacing any earlier one.
func (s *Store) SaveShift(ctx context.Context, shift core.DayShift) (core.DayShift, error) {
	if err := shift.Validate(); err != nil {
		return core.DayShift{}, fmt.Errorf("save shift: %w", err)
	}
	if shift.Items == nil {
		shift.Items = []core.ShiftItem{}
	}

	_, err := s.Update(ctx, func(d *core.AppData) (Change, error) {
		d.Shifts = slices.DeleteFunc(d.Shifts, func(sh core.DayShift) bool { return sh.Date == shift.Date })
		d.Shifts = append(d.Shifts, shift)
		return ChangeShifts, nil
	})
	if err != nil {
		return core.DayShift{}, err
	}
	return shift, nil
}

// AddShiftType adds a shift template and returns it with its new id.
func (s *Store) AddShiftType(ctx context.Context, st core.ShiftType) (core.ShiftType, error) {
	st.Name = strings.TrimSpace(st.Name)
	if err := st.Validate(); err != nil {
		return core.ShiftType{}, fmt.Errorf("add shift type: %w", err)
	}

	now := s.Now()
	_, err := s.Update(ctx, func(d *core.AppData) (Change, error) {
		st.ID = uniqueID("st", now, func(id string) bool {
			return slices.ContainsFunc(d.ShiftTypes, func(t core.ShiftType) bool { return t.ID == id })
		})
		d.ShiftTypes = append(d.ShiftTypes, st)
		return ChangeShiftTypes, nil
	})
	if err != nil {
		return core.ShiftType{}, err
	}
	return st, nil
}

func (s *Store) DeleteShiftType(ctx context.Context, id string) error {
	_, err := s.Update(ctx, func(d *core.AppData) (Change, error) {
		n := len(d.ShiftTypes)
		d.ShiftTypes = slices.DeleteFunc(d.ShiftTypes, func(t core.ShiftType) bool { return t.ID == id })
		if len(d.ShiftTypes) == n {
			return ChangeNone, fmt.Errorf("shift type %q: %w", id, ErrNotFound)
		}
		return ChangeShiftTypes, nil
	})
	return err
}

// AddRecurring adds a recurring bill. It is first evaluated on the next
// automation pass.
func (s *Store) AddRecurring(ctx context.Context, rec core.RecurringItem) (core.RecurringItem, error) {
	rec.Name = strings.TrimSpace(rec.Name)
	if err := rec.Validate(); err != nil {
		return core.RecurringItem{}, fmt.Errorf("add recurring: %w", err)
	}

	now := s.Now()
	_, err := s.Update(ctx, func(d *core.AppData) (Change, error) {
		rec.ID = uniqueID("rec", now, func(id string) bool {
			return slices.ContainsFunc(d.Recurring, func(r core.RecurringItem) bool { return r.ID == id })
		})
		d.Recurring = append(d.Recurring, rec)
		return ChangeRecurring, nil
	})
	if err != nil {
		return core.RecurringItem{}, err
	}
	return rec, nil
}

// DeleteRecurring removes a rule. Keys it already recorded stay in the
// processed log.
func (s *Store) DeleteRecurring(ctx context.Context, id string) error {
	_, err := s.Update(ctx, func(d *core.AppData) (Change, error) {
		n := len(d.Recurring)
		d.Recurring = slices.DeleteFunc(d.Recurring, func(r core.RecurringItem) bool { return r.ID == id })
		if len(d.Recurring) == n {
			return ChangeNone, fmt.Errorf("recurring %q: %w", id, ErrNotFound)
		}
		return ChangeRecurring, nil
	})
	return err
}

// UpdateSettings applies the non-nil fields of in.
func (s *Store) UpdateSettings(ctx context.Context, in Settings) (core.AppData, error) {
	if in.Budget != nil && *in.Budget < 0 {
		return core.AppData{}, fmt.Errorf("update settings: budget: %w", core.ErrInvalidAmount)
	}
	if in.SalaryConfig != nil {
		if err := in.SalaryConfig.Validate(); err != nil {
			return core.AppData{}, fmt.Errorf("update settings: salary: %w", err)
		}
	}
	if in.CloudSyncURL != nil {
		if err := validateSyncURL(*in.CloudSyncURL); err != nil {
			return core.AppData{}, fmt.Errorf("update settings: %w", err)
		}
	}

	return s.Update(ctx, func(d *core.AppData) (Change, error) {
		changed := ChangeNone
		if in.Budget != nil && *in.Budget != d.Budget {
			d.Budget = *in.Budget
			changed |= ChangeSettings
		}
		if in.SalaryConfig != nil && *in.SalaryConfig != d.SalaryConfig {
			d.SalaryConfig = *in.SalaryConfig
			changed |= ChangeSalary
		}
		if in.CloudSyncURL != nil {
			if u := strings.TrimSpace(*in.CloudSyncURL); u != d.CloudSyncURL {
				d.CloudSyncURL = u
				changed |= ChangeSettings
			}
		}
		if in.Tags != nil {
			tags := dedupeTags(*in.Tags)
			if !slices.Equal(tags, d.Tags) {
				d.Tags = tags
				changed |= ChangeTags
			}
		}
		return changed, nil
	})
}

// AddTag appends a tag unless it is already present. It reports whether the
// catalog changed.
func (s *Store) AddTag(ctx context.Context, tag string) (bool, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false, fmt.Errorf("add tag: %w", core.ErrEmptyName)
	}

	added := false
	_, err := s.Update(ctx, func(d *core.AppData) (Change, error) {
		if slices.Contains(d.Tags, tag) {
			return ChangeNone, nil
		}
		d.Tags = append(d.Tags, tag)
		added = true
		return ChangeTags, nil
	})
	return added, err
}

// SetLastSynced records the time of the last successful sync.
func (s *Store) SetLastSynced(ctx context.Context, ts string) error {
	_, err := s.Update(ctx, func(d *core.AppData) (Change, error) {
		if d.LastSynced == ts {
			return ChangeNone, nil
		}
		d.LastSynced = ts
		return ChangeLastSynced, nil
	})
	return err
}

// ApplyAutomation runs one automation pass against the current snapshot at
// the store's current time. Due transactions and their keys are committed
// together; when nothing is due the store is not written.
func (s *Store) ApplyAutomation(ctx context.Context) (automation.Result, error) {
	return s.ApplyAutomationAt(ctx, s.Now())
}

// ApplyAutomationAt is ApplyAutomation with an explicit time, converted to
// the store's location before evaluation.
func (s *Store) ApplyAutomationAt(ctx context.Context, now time.Time) (automation.Result, error) {
	now = now.In(s.loc)

	var res automation.Result
	_, err := s.Update(ctx, func(d *core.AppData) (Change, error) {
		res = s.engine.Evaluate(automation.InputFrom(now, *d))
		if res.Empty() {
			return ChangeNone, nil
		}
		d.Transactions = append(d.Transactions, res.Transactions...)
		d.ProcessedEvents = append(d.ProcessedEvents, res.Keys...)
		return ChangeTransactions | ChangeProcessedEvents, nil
	})
	if err != nil {
		return automation.Result{}, err
	}

	if !res.Empty() {
		log.NewStructuredLogger(s.logger).LogAutomationApplied(ctx, core.MonthOf(now).String(), res.Keys)
	}
	return res, nil
}

// MonthSummary summarizes the current snapshot for a month.
func (s *Store) MonthSummary(m core.Month) core.MonthSummary {
	return core.Summarize(s.Snapshot(), m)
}

// uniqueID returns prefix_<ms>, moving forward a millisecond at a time until
// the id is unused.
func uniqueID(prefix string, now time.Time, taken func(string) bool) string {
	for {
		id := core.PrefixedID(prefix, now)
		if !taken(id) {
			return id
		}
		now = now.Add(time.Millisecond)
	}
}

func dedupeTags(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func validateSyncURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}
