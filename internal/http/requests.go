package http

import (
	"nzql/internal/core"
	"nzql/internal/state"
)

type transactionRequest struct {
	Type     string  `json:"type" validate:"required,transaction_type"`
	Amount   float64 `json:"amount" validate:"gte=0"`
	Note     string  `json:"note" validate:"max=200"`
	Date     string  `json:"date" validate:"omitempty,datetime=2006-01-02T15:04"`
	AcctFrom string  `json:"acctFrom" validate:"required"`
	AcctTo   string  `json:"acctTo" validate:"required_if=Type transfer"`
}

func (r transactionRequest) toDomain() core.Transaction {
	return core.Transaction{
		Type:     core.TransactionType(r.Type),
		Amount:   r.Amount,
		Note:     sanitizeInput(r.Note),
		Date:     r.Date,
		AcctFrom: r.AcctFrom,
		AcctTo:   r.AcctTo,
	}
}

type accountRequest struct {
	Name           string  `json:"name" validate:"required,max=50"`
	Type           string  `json:"type" validate:"required,account_type"`
	OpeningBalance float64 `json:"openingBalance" validate:"gte=0"`
}

func (r accountRequest) toDomain() state.NewAccount {
	return state.NewAccount{
		Name:           sanitizeInput(r.Name),
		Type:           core.AccountType(r.Type),
		OpeningBalance: r.OpeningBalance,
	}
}

type shiftItemRequest struct {
	Name  string  `json:"name" validate:"required,max=50"`
	Color string  `json:"color" validate:"omitempty,hex_color"`
	Pay   float64 `json:"pay" validate:"gte=0"`
}

type shiftRequest struct {
	Items    []shiftItemRequest `json:"items" validate:"dive"`
	IsDouble bool               `json:"isDouble"`
	Note     string             `json:"note" validate:"max=200"`
}

func (r shiftRequest) toDomain(date string) core.DayShift {
	items := make([]core.ShiftItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, core.ShiftItem{Name: sanitizeInput(it.Name), Color: it.Color, Pay: it.Pay})
	}
	return core.DayShift{Date: date, Items: items, IsDouble: r.IsDouble, Note: sanitizeInput(r.Note)}
}

type shiftTypeRequest struct {
	Name  string  `json:"name" validate:"required,max=50"`
	Rate  float64 `json:"rate" validate:"gte=0"`
	Start string  `json:"start" validate:"omitempty,clock"`
	End   string  `json:"end" validate:"omitempty,clock"`
	Color string  `json:"color" validate:"omitempty,hex_color"`
}

func (r shiftTypeRequest) toDomain() core.ShiftType {
	return core.ShiftType{
		Name:  sanitizeInput(r.Name),
		Rate:  r.Rate,
		Start: r.Start,
		End:   r.End,
		Color: r.Color,
	}
}

type recurringRequest struct {
	Name      string  `json:"name" validate:"required,max=50"`
	Amount    float64 `json:"amount" validate:"gte=0"`
	Day       int     `json:"day" validate:"min=1,max=31"`
	AccountID string  `json:"accountId" validate:"required"`
}

func (r recurringRequest) toDomain() core.RecurringItem {
	return core.RecurringItem{
		Name:      sanitizeInput(r.Name),
		Amount:    r.Amount,
		Day:       r.Day,
		AccountID: r.AccountID,
	}
}

type salaryRequest struct {
	Amount    float64 `json:"amount" validate:"gte=0"`
	Day       int     `json:"day" validate:"min=1,max=31"`
	AccountID string  `json:"accountId"`
	Enabled   bool    `json:"enabled"`
}

// settingsRequest is a partial update; absent fields stay as they are.
type settingsRequest struct {
	Budget       *float64       `json:"budget" validate:"omitempty,gte=0"`
	SalaryConfig *salaryRequest `json:"salaryConfig"`
	CloudSyncURL *string        `json:"cloudSyncUrl"`
	Tags         *[]string      `json:"tags" validate:"omitempty,dive,required,max=30"`
}

func (r settingsRequest) toDomain() state.Settings {
	out := state.Settings{Budget: r.Budget, CloudSyncURL: r.CloudSyncURL}
	if r.SalaryConfig != nil {
		out.SalaryConfig = &core.SalaryConfig{
			Amount:    r.SalaryConfig.Amount,
			Day:       r.SalaryConfig.Day,
			AccountID: r.SalaryConfig.AccountID,
			Enabled:   r.SalaryConfig.Enabled,
		}
	}
	if r.Tags != nil {
		tags := make([]string, 0, len(*r.Tags))
		for _, t := range *r.Tags {
			tags = append(tags, sanitizeInput(t))
		}
		out.Tags = &tags
	}
	return out
}

type tagRequest struct {
	Tag string `json:"tag" validate:"required,max=30"`
}
