package state

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"nzql/internal/core"
	"nzql/internal/storage"
)

var fixedNow = time.Date(2026, time.March, 10, 8, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *storage.MemoryRepository) {
	t.Helper()
	repo := storage.NewMemoryRepository()
	s := Open(context.Background(), repo,
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(time.UTC))
	return s, repo
}

func TestOpen_FallsBackToDefaults(t *testing.T) {
	repo := storage.NewMemoryRepositoryWith([]byte("garbage"))
	s := Open(context.Background(), repo)
	if !reflect.DeepEqual(s.Snapshot(), core.NewAppData()) {
		t.Fatalf("expected default snapshot for undecodable data")
	}
	if repo.Saves() != 0 {
		t.Fatalf("Open should not write")
	}
}

func TestOpen_LoadsStoredSnapshot(t *testing.T) {
	d := core.NewAppData()
	d.Budget = 12345
	raw, err := storage.Encode(d)
	if err != nil {
		t.Fatal(err)
	}
	s := Open(context.Background(), storage.NewMemoryRepositoryWith(raw))
	if got := s.Snapshot().Budget; got != 12345 {
		t.Fatalf("budget = %v, want 12345", got)
	}
}

func TestAddTransaction(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	tx, err := s.AddTransaction(ctx, core.Transaction{Type: core.Expense, Amount: 85, Note: "午餐", AcctFrom: "cash", AcctTo: "post"})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if tx.ID == "" || tx.Date != "2026-03-10T08:30" || tx.AcctTo != "" {
		t.Errorf("unexpected transaction %+v", tx)
	}
	if got := s.Snapshot().Transactions; len(got) != 1 || got[0] != tx {
		t.Errorf("snapshot transactions = %+v", got)
	}
	if repo.Saves() != 1 {
		t.Errorf("saves = %d, want 1", repo.Saves())
	}

	tests := []struct {
		name string
		tx   core.Transaction
		want error
	}{
		{"unknown source", core.Transaction{Type: core.Expense, Amount: 1, AcctFrom: "nope"}, ErrUnknownAccount},
		{"unknown destination", core.Transaction{Type: core.Transfer, Amount: 1, AcctFrom: "cash", AcctTo: "nope"}, ErrUnknownAccount},
		{"negative", core.Transaction{Type: core.Expense, Amount: -1, AcctFrom: "cash"}, core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.AddTransaction(ctx, tt.tx); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if repo.Saves() != 1 {
		t.Errorf("rejected writes should not persist, saves = %d", repo.Saves())
	}
}

func TestAddAccount_OpeningBalance(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var changes []Change
	s.Subscribe(ChangeAll, func(_ core.AppData, c Change) { changes = append(changes, c) })

	acc, err := s.AddAccount(ctx, NewAccount{Name: " 國泰 ", Type: core.Card, OpeningBalance: 5000})
	if err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	if acc.ID != "acc_1773131400000" || acc.Name != "國泰" || acc.Balance != 0 {
		t.Errorf("unexpected account %+v", acc)
	}

	d := s.Snapshot()
	if len(d.Transactions) != 1 {
		t.Fatalf("expected opening balance transaction")
	}
	opening := d.Transactions[0]
	if opening.Type != core.Income || opening.Amount != 5000 || opening.Note != core.OpeningBalanceNote || opening.AcctFrom != acc.ID {
		t.Errorf("unexpected opening transaction %+v", opening)
	}
	if len(changes) != 1 || !changes[0].Has(ChangeAccounts) || !changes[0].Has(ChangeTransactions) {
		t.Errorf("changes = %v", changes)
	}

	second, err := s.AddAccount(ctx, NewAccount{Name: "永豐", Type: core.Bank})
	if err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	if second.ID == acc.ID {
		t.Errorf("ids collided within the same millisecond: %q", second.ID)
	}
	if len(s.Snapshot().Transactions) != 1 {
		t.Errorf("zero opening balance should not add a transaction")
	}

	if _, err := s.AddAccount(ctx, NewAccount{Name: "x", Type: "crypto"}); !errors.Is(err, core.ErrInvalidAccountType) {
		t.Errorf("err = %v, want ErrInvalidAccountType", err)
	}
}

func TestDeleteAccount_NoCascade(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AddTransaction(ctx, core.Transaction{Type: core.Expense, Amount: 10, AcctFrom: "post"}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteAccount(ctx, "post"); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	d := s.Snapshot()
	if _, ok := d.AccountByID("post"); ok {
		t.Error("account still present")
	}
	if len(d.Transactions) != 1 || d.Transactions[0].AcctFrom != "post" {
		t.Error("transactions referencing the account should be kept")
	}
	if err := s.DeleteAccount(ctx, "post"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveShift_ReplacesByDate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.SaveShift(ctx, core.DayShift{Date: "2026-03-02", Items: []core.ShiftItem{{Name: "早班", Pay: 1000}}}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveShift(ctx, core.DayShift{Date: "2026-03-03"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveShift(ctx, core.DayShift{Date: "2026-03-02", IsDouble: true, Items: []core.ShiftItem{{Pay: 1}, {Pay: 2}}}); err != nil {
		t.Fatal(err)
	}

	d := s.Snapshot()
	if len(d.Shifts) != 2 {
		t.Fatalf("shifts = %+v", d.Shifts)
	}
	got, ok := d.ShiftOn("2026-03-02")
	if !ok || !got.IsDouble || got.Pay() != 3 {
		t.Errorf("replacement not stored: %+v", got)
	}
	if _, err := s.SaveShift(ctx, core.DayShift{Date: "03/02"}); !errors.Is(err, core.ErrInvalidDate) {
		t.Errorf("err = %v, want ErrInvalidDate", err)
	}
}

func TestShiftTypesAndRecurring(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	st, err := s.AddShiftType(ctx, core.ShiftType{Name: "晚班", Rate: 1500, Start: "16:00", End: "24:00", Color: "#334455"})
	if err != nil {
		t.Fatal(err)
	}
	if st.ID != "st_1773131400000" {
		t.Errorf("shift type id = %q", st.ID)
	}
	if err := s.DeleteShiftType(ctx, st.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteShiftType(ctx, st.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	rec, err := s.AddRecurring(ctx, core.RecurringItem{Name: "Spotify", Amount: 149, Day: 8})
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID != "rec_1773131400000" {
		t.Errorf("recurring id = %q", rec.ID)
	}
	if _, err := s.AddRecurring(ctx, core.RecurringItem{Name: "Bad", Amount: 1, Day: 0}); !errors.Is(err, core.ErrInvalidDay) {
		t.Errorf("err = %v, want ErrInvalidDay", err)
	}
	if err := s.DeleteRecurring(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteRecurring(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateSettings(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	var changes []Change
	s.Subscribe(ChangeSalary|ChangeSettings|ChangeTags, func(_ core.AppData, c Change) { changes = append(changes, c) })

	budget := 30000.0
	salary := core.SalaryConfig{Amount: 42000, Day: 10, AccountID: "taishin", Enabled: true}
	syncURL := " https://script.example.test/exec "
	tags := []string{"早餐", " 早餐", "", "房租"}

	d, err := s.UpdateSettings(ctx, Settings{Budget: &budget, SalaryConfig: &salary, CloudSyncURL: &syncURL, Tags: &tags})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if d.Budget != 30000 || d.SalaryConfig != salary || d.CloudSyncURL != "https://script.example.test/exec" {
		t.Errorf("unexpected settings %+v", d)
	}
	if !reflect.DeepEqual(d.Tags, []string{"早餐", "房租"}) {
		t.Errorf("tags = %v", d.Tags)
	}
	if len(changes) != 1 || !changes[0].Has(ChangeSalary) || !changes[0].Has(ChangeTags) {
		t.Errorf("changes = %v", changes)
	}

	saves := repo.Saves()
	if _, err := s.UpdateSettings(ctx, Settings{Budget: &budget}); err != nil {
		t.Fatal(err)
	}
	if repo.Saves() != saves {
		t.Errorf("unchanged settings should not persist")
	}

	bad := "ftp://nowhere"
	if _, err := s.UpdateSettings(ctx, Settings{CloudSyncURL: &bad}); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("err = %v, want ErrInvalidURL", err)
	}
	negative := -1.0
	if _, err := s.UpdateSettings(ctx, Settings{Budget: &negative}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestAddTag_KeepsOrderWithoutDuplicates(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, tag := range []string{"房租", "早餐", " 房租 ", "保險"} {
		if _, err := s.AddTag(ctx, tag); err != nil {
			t.Fatal(err)
		}
	}
	want := append(core.InitialTags(), "房租", "保險")
	if got := s.Snapshot().Tags; !reflect.DeepEqual(got, want) {
		t.Errorf("tags = %v, want %v", got, want)
	}
	if _, err := s.AddTag(ctx, "  "); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("err = %v, want ErrEmptyName", err)
	}
}

func TestApplyAutomation(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	salary := core.SalaryConfig{Amount: 50000, Day: 5, AccountID: "cash", Enabled: true}
	if _, err := s.UpdateSettings(ctx, Settings{SalaryConfig: &salary}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddRecurring(ctx, core.RecurringItem{Name: "Netflix", Amount: 390, Day: 20}); err != nil {
		t.Fatal(err)
	}

	res, err := s.ApplyAutomation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Keys, []string{"2026-03-SALARY"}) {
		t.Fatalf("keys = %v", res.Keys)
	}

	saves := repo.Saves()
	res, err = s.ApplyAutomation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Empty() || repo.Saves() != saves {
		t.Fatalf("second pass should be a no-op without a write, got %v", res.Keys)
	}

	res, err = s.ApplyAutomationAt(ctx, time.Date(2026, time.March, 21, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Keys) != 1 || len(s.Snapshot().ProcessedEvents) != 2 || len(s.Snapshot().Transactions) != 2 {
		t.Fatalf("recurring should fire once its day arrives: %v", s.Snapshot().ProcessedEvents)
	}
}

func TestApplyAutomation_UsesStoreLocation(t *testing.T) {
	taipei := time.FixedZone("UTC+8", 8*3600)
	repo := storage.NewMemoryRepository()
	// 2026-03-31 20:00 UTC is already 2026-04-01 in UTC+8.
	s := Open(context.Background(), repo,
		WithClock(func() time.Time { return time.Date(2026, time.March, 31, 20, 0, 0, 0, time.UTC) }),
		WithLocation(taipei))

	salary := core.SalaryConfig{Amount: 1, Day: 1, Enabled: true}
	if _, err := s.UpdateSettings(context.Background(), Settings{SalaryConfig: &salary}); err != nil {
		t.Fatal(err)
	}
	res, err := s.ApplyAutomation(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Keys, []string{"2026-04-SALARY"}) {
		t.Fatalf("keys = %v, want April in the store location", res.Keys)
	}
}

func TestPersistFailureKeepsMemoryState(t *testing.T) {
	s, repo := newTestStore(t)
	repo.FailWrites(errors.New("read-only filesystem"))

	if _, err := s.AddTag(context.Background(), "新標籤"); err != nil {
		t.Fatalf("write failure should not surface: %v", err)
	}
	tags := s.Snapshot().Tags
	if tags[len(tags)-1] != "新標籤" {
		t.Fatalf("in-memory state lost: %v", tags)
	}
}

func TestSubscribe_MaskAndUnsubscribe(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var tagCalls, syncCalls int
	s.Subscribe(ChangeTags, func(core.AppData, Change) { tagCalls++ })
	unsubscribe := s.Subscribe(ChangeLastSynced, func(core.AppData, Change) { syncCalls++ })

	if _, err := s.AddTag(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetLastSynced(ctx, "2026-03-10T08:30:00Z"); err != nil {
		t.Fatal(err)
	}
	unsubscribe()
	if err := s.SetLastSynced(ctx, "2026-03-10T09:00:00Z"); err != nil {
		t.Fatal(err)
	}

	if tagCalls != 1 || syncCalls != 1 {
		t.Fatalf("tagCalls=%d syncCalls=%d", tagCalls, syncCalls)
	}
	if s.Snapshot().LastSynced != "2026-03-10T09:00:00Z" {
		t.Fatalf("last synced = %q", s.Snapshot().LastSynced)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s, _ := newTestStore(t)
	before := s.Snapshot()
	if _, err := s.AddTag(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if len(before.Tags) != len(core.InitialTags()) {
		t.Fatalf("earlier snapshot changed after a write")
	}
}

func TestMonthSummary(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if _, err := s.AddTransaction(ctx, core.Transaction{Type: core.Expense, Amount: 100, AcctFrom: "cash"}); err != nil {
		t.Fatal(err)
	}
	sum := s.MonthSummary("2026-03")
	if sum.Spent != 100 || sum.Remaining != core.DefaultBudget-100 {
		t.Fatalf("summary = %+v", sum)
	}
}
