// Package model defines the core domain models used throughout the application.
package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a single invoice line item as loaded from the source.
// Nil pointers are missing values; they are flagged downstream, never dropped.
type Transaction struct {
	InvoiceDate *time.Time
	CustomerID  *int64
	Quantity    *int64
	Price       *decimal.Decimal
	Description *string
	Invoice     string
	StockCode   string
	Country     string
}

// Key renders every field so that two rows share a key exactly when they are
// identical, including which values are missing.
func (t *Transaction) Key() string {
	var b strings.Builder
	field := func(s string, ok bool) {
		if ok {
			b.WriteByte('=')
			b.WriteString(s)
		} else {
			b.WriteByte('~')
		}
		b.WriteByte('\x1f')
	}

	field(t.Invoice, true)
	field(t.StockCode, true)
	field(deref(t.Description), t.Description != nil)
	field(t.Country, true)
	if t.CustomerID != nil {
		field(strconv.FormatInt(*t.CustomerID, 10), true)
	} else {
		field("", false)
	}
	if t.Quantity != nil {
		field(strconv.FormatInt(*t.Quantity, 10), true)
	} else {
		field("", false)
	}
	if t.Price != nil {
		field(t.Price.String(), true)
	} else {
		field("", false)
	}
	if t.InvoiceDate != nil {
		field(t.InvoiceDate.Format(time.RFC3339Nano), true)
	} else {
		field("", false)
	}
	return b.String()
}

// HasDescription reports whether the description is present.
func (t *Transaction) HasDescription() bool {
	return t.Description != nil
}

// DescriptionOrEmpty returns the description or "" when missing.
func (t *Transaction) DescriptionOrEmpty() string {
	return deref(t.Description)
}

// TotalPrice is price times quantity, zero when either is missing.
func (t *Transaction) TotalPrice() decimal.Decimal {
	if t.Price == nil || t.Quantity == nil {
		return decimal.Zero
	}
	return t.Price.Mul(decimal.NewFromInt(*t.Quantity))
}

// Clone returns a deep copy so callers can change pointer targets freely.
func (t Transaction) Clone() Transaction {
	if t.InvoiceDate != nil {
		v := *t.InvoiceDate
		t.InvoiceDate = &v
	}
	if t.CustomerID != nil {
		v := *t.CustomerID
		t.CustomerID = &v
	}
	if t.Quantity != nil {
		v := *t.Quantity
		t.Quantity = &v
	}
	if t.Price != nil {
		v := *t.Price
		t.Price = &v
	}
	if t.Description != nil {
		v := *t.Description
		t.Description = &v
	}
	return t
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// Int64Ptr returns a pointer to n.
func Int64Ptr(n int64) *int64 { return &n }

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time { return &t }

// DecimalPtr returns a pointer to d.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
