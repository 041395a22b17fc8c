package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultBudget      = 40000
	DefaultSalaryDay   = 5
	OpeningBalanceNote = "初始餘額"
)

// InitialAccounts seeds a fresh snapshot.
func InitialAccounts() []Account {
	return []Account{
		{ID: "cash", Name: "現金", Type: Cash},
		{ID: "taishin", Name: "台新銀行", Type: Bank},
		{ID: "post", Name: "郵局", Type: Bank},
	}
}

// InitialTags seeds the tag catalog of a fresh snapshot.
func InitialTags() []string {
	return []string{"早餐", "午餐", "晚餐", "飲料", "交通", "娛樂", "購物", "日用"}
}

// DefaultSalaryConfig is disabled with a zero amount.
func DefaultSalaryConfig() SalaryConfig {
	return SalaryConfig{Day: DefaultSalaryDay}
}

// NewAppData returns the snapshot used on first start or when the persisted
// one cannot be read.
func NewAppData() AppData {
	return AppData{
		Budget:          DefaultBudget,
		Transactions:    []Transaction{},
		Accounts:        InitialAccounts(),
		Shifts:          []DayShift{},
		ShiftTypes:      []ShiftType{},
		Recurring:       []RecurringItem{},
		SalaryConfig:    DefaultSalaryConfig(),
		Tags:            InitialTags(),
		ProcessedEvents: ProcessedEvents{},
	}
}

// NewTransactionID returns a time-ordered unique id.
func NewTransactionID() TransactionID {
	id, err := uuid.NewV7()
	if err != nil {
		return TransactionID(uuid.NewString())
	}
	return TransactionID(id.String())
}

// PrefixedID builds catalog ids like "acc_1712345678901".
func PrefixedID(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%d", prefix, now.UnixMilli())
}
