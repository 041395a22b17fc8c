package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"nzql/internal/core"
)

// envelope mirrors core.AppData with pointer fields so absent keys can be
// told apart from zero values.
type envelope struct {
	Budget          *float64              `json:"budget"`
	Transactions    *[]core.Transaction   `json:"transactions"`
	Accounts        *[]core.Account       `json:"accounts"`
	Shifts          *[]core.DayShift      `json:"shifts"`
	ShiftTypes      *[]core.ShiftType     `json:"shiftTypes"`
	Recurring       *[]core.RecurringItem `json:"recurring"`
	SalaryConfig    *core.SalaryConfig    `json:"salaryConfig"`
	Tags            *[]string             `json:"tags"`
	ProcessedEvents *core.ProcessedEvents `json:"processedEvents"`
	CloudSyncURL    *string               `json:"cloudSyncUrl"`
	LastSynced      *string               `json:"lastSynced"`
}

// Encode serializes a snapshot.
func Encode(d core.AppData) ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// Decode parses a snapshot, filling absent fields with defaults. Present
// values are kept as stored, including zero budgets and empty lists.
func Decode(raw []byte) (core.AppData, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return core.AppData{}, fmt.Errorf("decode snapshot: %w", err)
	}

	d := core.NewAppData()
	if env.Budget != nil {
		d.Budget = *env.Budget
	}
	if env.Transactions != nil {
		d.Transactions = orEmpty(*env.Transactions)
	}
	if env.Accounts != nil {
		d.Accounts = orEmpty(*env.Accounts)
	}
	if env.Shifts != nil {
		d.Shifts = orEmpty(*env.Shifts)
		for i := range d.Shifts {
			d.Shifts[i].Items = orEmpty(d.Shifts[i].Items)
		}
	}
	if env.ShiftTypes != nil {
		d.ShiftTypes = orEmpty(*env.ShiftTypes)
	}
	if env.Recurring != nil {
		d.Recurring = orEmpty(*env.Recurring)
	}
	if env.SalaryConfig != nil {
		d.SalaryConfig = *env.SalaryConfig
	}
	if env.Tags != nil {
		d.Tags = orEmpty(*env.Tags)
	}
	if env.ProcessedEvents != nil {
		d.ProcessedEvents = orEmpty(*env.ProcessedEvents)
	}
	if env.CloudSyncURL != nil {
		d.CloudSyncURL = *env.CloudSyncURL
	}
	if env.LastSynced != nil {
		d.LastSynced = *env.LastSynced
	}
	return d, nil
}

// LoadAppData reads the snapshot from repo. It always returns a usable
// snapshot: when nothing is stored, or the stored bytes cannot be read or
// decoded, it returns the default snapshot together with the reason.
func LoadAppData(ctx context.Context, repo Repository) (core.AppData, error) {
	raw, err := repo.Load(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		return core.NewAppData(), nil
	}
	if err != nil {
		return core.NewAppData(), fmt.Errorf("load snapshot: %w", err)
	}
	d, err := Decode(raw)
	if err != nil {
		return core.NewAppData(), err
	}
	return d, nil
}

// SaveAppData encodes and stores a snapshot.
func SaveAppData(ctx context.Context, repo Repository, d core.AppData) error {
	raw, err := Encode(d)
	if err != nil {
		return err
	}
	if err := repo.Save(ctx, raw); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func orEmpty[S ~[]E, E any](s S) S {
	if s == nil {
		return S{}
	}
	return s
}
