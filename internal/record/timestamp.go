package record

import (
	"fmt"
	"time"
)

// timestampLayout renders as Y<year>m<month>d<day>H<hour>M<min>S<sec>,
// for example Y2026m10d19H14M03S07. Consumers of the repo parse this
// layout, so it must not change.
const timestampLayout = "Y2006m01d02H15M04S05"

// FormatTimestamp renders t in UTC using the record timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
