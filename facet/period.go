package facet

import "time"

// =============================================================================
// PERIOD BUCKET - Canonical form of a stored period value
// =============================================================================

// BucketKind tags a PeriodBucket as day- or month-granular.
type BucketKind string

const (
	BucketDay   BucketKind = "day"
	BucketMonth BucketKind = "month"
)

// PeriodBucket is the canonical representation of a period.
// Keys are "YYYY-MM-DD" (day) or "YYYY-MM" (month) and sort lexicographically,
// so a descending sort yields the most recent period first.
type PeriodBucket struct {
	Kind BucketKind
	Key  string
}

// BucketCount pairs a bucket with the number of records in it.
type BucketCount struct {
	Bucket PeriodBucket
	Count  int
}

const (
	monthKeyLen = len("2006-01")
	dayKeyLen   = len("2006-01-02")
)

// Normalize classifies a raw period value.
//
// The check is on shape only (digits and dashes in the right places). Calendar
// validity is a data-quality concern of the ingestion path.
func Normalize(raw string) (PeriodBucket, error) {
	switch {
	case len(raw) == dayKeyLen && isDigits(raw[0:4]) && raw[4] == '-' &&
		isDigits(raw[5:7]) && raw[7] == '-' && isDigits(raw[8:10]):
		return PeriodBucket{Kind: BucketDay, Key: raw}, nil
	case len(raw) == monthKeyLen && isDigits(raw[0:4]) && raw[4] == '-' && isDigits(raw[5:7]):
		return PeriodBucket{Kind: BucketMonth, Key: raw}, nil
	}
	return PeriodBucket{}, &PeriodFormatError{Raw: raw}
}

// MonthKey returns the year-month this bucket rolls up to.
// Month buckets, and day buckets too short to hold a month, return their own key.
func (b PeriodBucket) MonthKey() string {
	if b.Kind == BucketDay && len(b.Key) >= monthKeyLen {
		return b.Key[:monthKeyLen]
	}
	return b.Key
}

// Month returns the month-kind bucket this bucket rolls up to.
func (b PeriodBucket) Month() PeriodBucket {
	return PeriodBucket{Kind: BucketMonth, Key: b.MonthKey()}
}

// Contains reports whether a stored bucket falls inside a selected bucket:
// a month contains itself and all its days, a day contains only itself.
func (b PeriodBucket) Contains(stored PeriodBucket) bool {
	if b.Kind == BucketMonth {
		return stored.MonthKey() == b.Key
	}
	return stored.Kind == BucketDay && stored.Key == b.Key
}

// Label is the display label used by the filter sidebar.
func (b PeriodBucket) Label() string {
	switch b.Kind {
	case BucketDay:
		if t, err := time.Parse("2006-01-02", b.Key); err == nil {
			return t.Format("02 Jan 2006")
		}
	case BucketMonth:
		if t, err := time.Parse("2006-01", b.Key); err == nil {
			return t.Format("Jan 2006")
		}
	}
	return b.Key
}

func (b PeriodBucket) String() string {
	return string(b.Kind) + ":" + b.Key
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
