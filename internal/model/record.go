package model

import "time"

// Layouts used for the split date and time columns.
const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05"
	TimestampLayout = "2006-01-02 15:04:05"
)

// CleanColumns is the fixed output schema of the record cleaner. Downstream
// consumers depend on this order.
var CleanColumns = []string{
	"Invoice",
	"StockCode",
	"Description",
	"OrigDescription",
	"Customer ID",
	"Country",
	"Quantity",
	"Price",
	"InvoiceDate",
	"Date",
	"Time",
	"CancelledOrder",
	"IssueWithItem",
	"IssueCategory",
	"QuantityLeqZero",
	"NoDescriptionOrPrice",
	"PriceIsCredit",
}

// CleanRecord is a transaction after cleaning, carrying its reconciled
// description, the original description and the derived flags.
type CleanRecord struct {
	OrigDescription *string
	Date            string
	Time            string
	IssueCategory   IssueCategory
	Transaction
	Cancelled            bool
	IsIssue              bool
	QuantityLeqZero      bool
	NoDescriptionOrPrice bool
	PriceIsCredit        bool
}

// Source rebuilds the pre-reconciliation transaction, so a cleaned table can be
// fed back through the cleaner.
func (r *CleanRecord) Source() Transaction {
	txn := r.Transaction.Clone()
	txn.Description = nil
	if r.OrigDescription != nil {
		txn.Description = StringPtr(*r.OrigDescription)
	}
	return txn
}

// Flags returns the derived boolean columns in schema order.
func (r *CleanRecord) Flags() [5]bool {
	return [5]bool{r.Cancelled, r.IsIssue, r.QuantityLeqZero, r.NoDescriptionOrPrice, r.PriceIsCredit}
}

// Row renders the record in CleanColumns order. Missing values are nil.
func (r *CleanRecord) Row() []any {
	row := make([]any, 0, len(CleanColumns))
	row = append(row,
		r.Invoice,
		r.StockCode,
		optionalString(r.Description),
		optionalString(r.OrigDescription),
		optionalInt(r.CustomerID),
		r.Country,
		optionalInt(r.Quantity),
	)
	if r.Price != nil {
		row = append(row, *r.Price)
	} else {
		row = append(row, nil)
	}
	if r.InvoiceDate != nil {
		row = append(row, r.InvoiceDate.Format(TimestampLayout))
	} else {
		row = append(row, nil)
	}
	return append(row,
		r.Date,
		r.Time,
		r.Cancelled,
		r.IsIssue,
		string(r.IssueCategory),
		r.QuantityLeqZero,
		r.NoDescriptionOrPrice,
		r.PriceIsCredit,
	)
}

// PurchaseDate truncates the invoice timestamp to its calendar date in UTC.
func (r *CleanRecord) PurchaseDate() (time.Time, bool) {
	if r.InvoiceDate == nil {
		return time.Time{}, false
	}
	y, m, d := r.InvoiceDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
}

func optionalString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func optionalInt(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}
