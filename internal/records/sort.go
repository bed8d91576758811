package records

import (
	"cmp"
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/noah-isme/parkconnect-api/internal/booking"
)

// SortKey names a sortable column.
type SortKey string

const (
	KeyID               SortKey = "id"
	KeyFullName         SortKey = "fullName"
	KeyDateOfVisit      SortKey = "dateOfVisit"
	KeyNumberOfVisitors SortKey = "numberOfVisitors"
	KeyTotalPrice       SortKey = "totalPrice"
	KeyPaymentStatus    SortKey = "paymentStatus"
	KeyCheckInStatus    SortKey = "checkInStatus"
	KeyCountry          SortKey = "country"
)

// SortKeys lists every supported key.
var SortKeys = []SortKey{KeyID, KeyFullName, KeyDateOfVisit, KeyNumberOfVisitors, KeyTotalPrice, KeyPaymentStatus, KeyCheckInStatus, KeyCountry}

// Valid reports whether k is a supported key.
func (k SortKey) Valid() bool { return slices.Contains(SortKeys, k) }

// Direction is the sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort is a single-key ordering.
type Sort struct {
	Key SortKey   `json:"key"`
	Dir Direction `json:"direction"`
}

// DefaultSort shows the most recent visit dates first.
var DefaultSort = Sort{Key: KeyDateOfVisit, Dir: Desc}

// Toggle returns the ordering after a column header is clicked: the same key
// flips direction, a new key starts ascending.
func (s Sort) Toggle(key SortKey) Sort {
	if s.Key == key && s.Dir == Asc {
		return Sort{Key: key, Dir: Desc}
	}
	return Sort{Key: key, Dir: Asc}
}

type valueKind int

const (
	kindMissing valueKind = iota
	kindNumber
	kindTime
	kindBadTime
	kindText
	kindNoVisitors
)

type sortValue struct {
	kind valueKind
	num  int64
	at   time.Time
	text string
}

func extract(b booking.Booking, key SortKey) sortValue {
	switch key {
	case KeyID:
		return sortValue{kind: kindText, text: b.ID}
	case KeyFullName:
		return sortValue{kind: kindText, text: b.FullName}
	case KeyNumberOfVisitors:
		return sortValue{kind: kindNumber, num: int64(b.NumberOfVisitors)}
	case KeyTotalPrice:
		return sortValue{kind: kindNumber, num: b.TotalPrice}
	case KeyDateOfVisit:
		if b.DateOfVisit == "" {
			return sortValue{kind: kindMissing}
		}
		t, ok := b.VisitDate(time.UTC)
		if !ok {
			return sortValue{kind: kindBadTime}
		}
		return sortValue{kind: kindTime, at: t}
	case KeyPaymentStatus:
		return optionalText(string(b.PaymentStatus))
	case KeyCheckInStatus:
		return optionalText(string(b.CheckInStatus))
	case KeyCountry:
		if len(b.Visitors) == 0 {
			return sortValue{kind: kindNoVisitors}
		}
		return sortValue{kind: kindText, text: string(b.Visitors[0].Country)}
	default:
		return sortValue{kind: kindMissing}
	}
}

func optionalText(s string) sortValue {
	if s == "" {
		return sortValue{kind: kindMissing}
	}
	return sortValue{kind: kindText, text: s}
}

// compareAsc orders two values ascending. Missing values come first;
// unparsable dates and bookings without visitors come after every real value.
func compareAsc(col *collate.Collator, a, b sortValue) int {
	if a.kind != b.kind {
		return cmp.Compare(rank(a.kind), rank(b.kind))
	}
	switch a.kind {
	case kindNumber:
		return cmp.Compare(a.num, b.num)
	case kindTime:
		return a.at.Compare(b.at)
	case kindText:
		return col.CompareString(a.text, b.text)
	default:
		return 0
	}
}

func rank(k valueKind) int {
	switch k {
	case kindMissing:
		return 0
	case kindBadTime, kindNoVisitors:
		return 2
	default:
		return 1
	}
}

// SortRecords orders records in place. The sort is stable so equal keys keep
// their incoming order.
func SortRecords(records []booking.Booking, s Sort) {
	if !s.Key.Valid() {
		s = DefaultSort
	}
	col := collate.New(language.English, collate.IgnoreCase)
	sign := 1
	if s.Dir == Desc {
		sign = -1
	}
	slices.SortStableFunc(records, func(a, b booking.Booking) int {
		return sign * compareAsc(col, extract(a, s.Key), extract(b, s.Key))
	})
}
