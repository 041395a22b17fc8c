package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

const (
	Bank AccountType = "bank"
	Cash AccountType = "cash"
	Card AccountType = "card"
)

// DateLayout is the calendar-day layout used for shifts and holidays.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	AccountType string

	// TransactionID is time-derived and unique. Older snapshots stored it as a
	// JSON number; both forms decode to the same textual value.
	TransactionID string

	Account struct {
		ID      string      `json:"id"`
		Name    string      `json:"name"`
		Type    AccountType `json:"type"`
		Balance float64     `json:"balance"`
	}

	Transaction struct {
		ID       TransactionID   `json:"id"`
		Type     TransactionType `json:"type"`
		Amount   float64         `json:"amount"`
		Note     string          `json:"note"`
		Date     string          `json:"date"`
		AcctFrom string          `json:"acctFrom"`
		AcctTo   string          `json:"acctTo,omitempty"`
	}

	ShiftType struct {
		ID    string  `json:"id"`
		Name  string  `json:"name"`
		Rate  float64 `json:"rate"`
		Start string  `json:"start"`
		End   string  `json:"end"`
		Color string  `json:"color"`
	}

	ShiftItem struct {
		Name  string  `json:"name"`
		Color string  `json:"color"`
		Pay   float64 `json:"pay"`
	}

	// DayShift is keyed by Date; a store holds at most one per date.
	DayShift struct {
		Date     string      `json:"date"`
		Items    []ShiftItem `json:"items"`
		IsDouble bool        `json:"isDouble"`
		Note     string      `json:"note"`
	}

	RecurringItem struct {
		ID        string  `json:"id"`
		Name      string  `json:"name"`
		Amount    float64 `json:"amount"`
		Day       int     `json:"day"`
		AccountID string  `json:"accountId"`
	}

	SalaryConfig struct {
		Amount    float64 `json:"amount"`
		Day       int     `json:"day"`
		AccountID string  `json:"accountId"`
		Enabled   bool    `json:"enabled"`
	}

	// ProcessedEvents is the append-only log of automation keys that already
	// produced a transaction.
	ProcessedEvents []string

	AppData struct {
		Budget          float64         `json:"budget"`
		Transactions    []Transaction   `json:"transactions"`
		Accounts        []Account       `json:"accounts"`
		Shifts          []DayShift      `json:"shifts"`
		ShiftTypes      []ShiftType     `json:"shiftTypes"`
		Recurring       []RecurringItem `json:"recurring"`
		SalaryConfig    SalaryConfig    `json:"salaryConfig"`
		Tags            []string        `json:"tags"`
		ProcessedEvents ProcessedEvents `json:"processedEvents"`
		CloudSyncURL    string          `json:"cloudSyncUrl"`
		LastSynced      string          `json:"lastSynced"`
	}
)

var (
	ErrInvalidDay             = errors.New("invalid day")
	ErrInvalidDate            = errors.New("invalid date")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrEmptyName              = errors.New("empty name")
	ErrEmptyAccount           = errors.New("empty account reference")
	ErrInvalidAccountType     = errors.New("invalid account type")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrSameAccountTransfer    = errors.New("transfer source and destination are the same account")
)

func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	default:
		return false
	}
}

func (t AccountType) IsValid() bool {
	switch t {
	case Bank, Cash, Card:
		return true
	default:
		return false
	}
}

func (id TransactionID) String() string {
	return string(id)
}

func (id *TransactionID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("transaction id: %w", err)
		}
		*id = TransactionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	*id = TransactionID(n.String())
	return nil
}

// Contains reports whether key has already been recorded.
func (p ProcessedEvents) Contains(key string) bool {
	for _, k := range p {
		if k == key {
			return true
		}
	}
	return false
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Type.IsValid() {
		return ErrInvalidAccountType
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidTransactionType
	}
	if t.Amount < 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Date) == "" {
		return ErrInvalidDate
	}
	if strings.TrimSpace(t.AcctFrom) == "" {
		return ErrEmptyAccount
	}
	if t.Type == Transfer {
		if strings.TrimSpace(t.AcctTo) == "" {
			return ErrEmptyAccount
		}
		if t.AcctTo == t.AcctFrom {
			return ErrSameAccountTransfer
		}
	}
	return nil
}

func (s ShiftType) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if s.Rate < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (d DayShift) Validate() error {
	if _, err := time.Parse(DateLayout, d.Date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, d.Date)
	}
	for _, item := range d.Items {
		if item.Pay < 0 {
			return ErrInvalidAmount
		}
	}
	return nil
}

func (r RecurringItem) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if r.Amount < 0 {
		return ErrInvalidAmount
	}
	if r.Day < 1 || r.Day > 31 {
		return ErrInvalidDay
	}
	return nil
}

func (s SalaryConfig) Validate() error {
	if s.Amount < 0 {
		return ErrInvalidAmount
	}
	if s.Day < 1 || s.Day > 31 {
		return ErrInvalidDay
	}
	return nil
}

// Pay returns the total pay of all shift items on the day.
func (d DayShift) Pay() float64 {
	pays := make([]float64, 0, len(d.Items))
	for _, item := range d.Items {
		pays = append(pays, item.Pay)
	}
	return SumAmounts(pays...)
}

// AccountByID returns the account with the given id, if present.
func (d AppData) AccountByID(id string) (Account, bool) {
	for _, a := range d.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

// ShiftOn returns the shift recorded for a calendar date, if any.
func (d AppData) ShiftOn(date string) (DayShift, bool) {
	for _, s := range d.Shifts {
		if s.Date == date {
			return s, true
		}
	}
	return DayShift{}, false
}

// Clone returns a deep copy so the result can be mutated without touching d.
func (d AppData) Clone() AppData {
	out := d
	out.Transactions = cloneSlice(d.Transactions)
	out.Accounts = cloneSlice(d.Accounts)
	out.ShiftTypes = cloneSlice(d.ShiftTypes)
	out.Recurring = cloneSlice(d.Recurring)
	out.Tags = cloneSlice(d.Tags)
	out.ProcessedEvents = cloneSlice(d.ProcessedEvents)
	out.Shifts = cloneSlice(d.Shifts)
	for i := range out.Shifts {
		out.Shifts[i].Items = cloneSlice(out.Shifts[i].Items)
	}
	return out
}

func cloneSlice[S ~[]E, E any](s S) S {
	if s == nil {
		return nil
	}
	out := make(S, len(s))
	copy(out, s)
	return out
}
