package transactions

import (
	"fmt"
	"strings"
	"time"

	"github.com/josh-kwaku/grey-bank-client/internal/domain"
)

const dateLayout = "2006-01-02"

// Filter narrows a transaction list. Zero fields match everything; set
// fields are combined with AND.
type Filter struct {
	AccountID int64
	Type      domain.TransactionType
	Search    string
	Start     time.Time
	End       time.Time
}

func (f Filter) IsZero() bool {
	return f.AccountID == 0 && f.Type == "" && strings.TrimSpace(f.Search) == "" && f.Start.IsZero() && f.End.IsZero()
}

// ListFiltered returns the transactions matching f in their input order.
// End is inclusive; an End at midnight is taken as a date and covers that
// whole day.
func ListFiltered(txs []domain.Transaction, f Filter) []domain.Transaction {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	end, endExclusive := f.End, false
	if !end.IsZero() && isDateOnly(end) {
		end = end.AddDate(0, 0, 1)
		endExclusive = true
	}

	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.AccountID != 0 && tx.AccountID != f.AccountID {
			continue
		}
		if f.Type != "" && tx.Type != f.Type {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(tx.Description), search) {
			continue
		}
		if !f.Start.IsZero() && tx.CreatedAt.Before(f.Start) {
			continue
		}
		if !end.IsZero() {
			if endExclusive && !tx.CreatedAt.Before(end) {
				continue
			}
			if !endExclusive && tx.CreatedAt.After(end) {
				continue
			}
		}
		out = append(out, tx)
	}
	return out
}

func isDateOnly(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}

// ParseDate reads a YYYY-MM-DD filter bound in UTC. An empty string is the
// zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseDate: %q: %w", s, err)
	}
	return t, nil
}
