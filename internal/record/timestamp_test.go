package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 10, 19, 14, 3, 7, 999, time.UTC)
	assert.Equal(t, "Y2026m10d19H14M03S07", FormatTimestamp(ts))

	est := time.FixedZone("EST", -5*3600)
	assert.Equal(t, "Y2026m10d19H14M03S07", FormatTimestamp(ts.In(est)), "always rendered in UTC")
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("Y2026m01d02H03M04S05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), ts)

	_, err = ParseTimestamp("2026-01-02")
	assert.Error(t, err)
}
