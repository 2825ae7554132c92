package facet

import "sort"

// MonthSummary is the roll-up of every bucket falling in one month.
type MonthSummary struct {
	Month         string   // "YYYY-MM"
	UniqueDayKeys []string // day buckets seen in the month, most recent first
	TotalCount    int      // day counts plus any month-kind count
}

// SummarizeByMonth rolls day buckets up into their month. Month buckets are
// reported standalone: they add to the month's total but contribute no day key.
// The result is ordered by month descending.
func SummarizeByMonth(buckets []BucketCount) []MonthSummary {
	byMonth := make(map[string]*MonthSummary)
	days := make(map[string]map[string]bool)

	for _, bc := range buckets {
		month := bc.Bucket.MonthKey()
		s, ok := byMonth[month]
		if !ok {
			s = &MonthSummary{Month: month, UniqueDayKeys: []string{}}
			byMonth[month] = s
			days[month] = make(map[string]bool)
		}
		s.TotalCount += bc.Count
		if bc.Bucket.Kind == BucketDay && !days[month][bc.Bucket.Key] {
			days[month][bc.Bucket.Key] = true
			s.UniqueDayKeys = append(s.UniqueDayKeys, bc.Bucket.Key)
		}
	}

	out := make([]MonthSummary, 0, len(byMonth))
	for _, s := range byMonth {
		sort.Sort(sort.Reverse(sort.StringSlice(s.UniqueDayKeys)))
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}
