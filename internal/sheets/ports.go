package sheets

import (
	"context"

	"nzql/internal/core"
)

// SnapshotMirror copies the transaction ledger of a snapshot to an external
// sheet. A mirror is write-only; the local snapshot stays authoritative.
type SnapshotMirror interface {
	Mirror(ctx context.Context, d core.AppData) error
}

// LedgerHeader names the mirrored columns.
var LedgerHeader = []any{"date", "type", "amount", "note", "from", "to", "id"}

// LedgerRows renders the header and one row per transaction, in ledger
// order. Account ids are replaced by account names when the account still
// exists.
func LedgerRows(d core.AppData) [][]any {
	rows := make([][]any, 0, len(d.Transactions)+1)
	rows = append(rows, LedgerHeader)
	for _, t := range d.Transactions {
		rows = append(rows, []any{
			t.Date,
			string(t.Type),
			t.Amount,
			t.Note,
			accountName(d, t.AcctFrom),
			accountName(d, t.AcctTo),
			t.ID.String(),
		})
	}
	return rows
}

func accountName(d core.AppData, id string) string {
	if id == "" {
		return ""
	}
	if a, ok := d.AccountByID(id); ok {
		return a.Name
	}
	return id
}
