package booking

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	idPrefix     = "CNP"
	timeSuffix   = 4
	randomSuffix = 8
	base36Digits = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NewID builds a booking identifier of the form CNP-XXXX-YYYYYYYY. The first
// group is the tail of the base36 creation time in milliseconds, the second
// is random.
func NewID(now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 36)
	if len(ts) > timeSuffix {
		ts = ts[len(ts)-timeSuffix:]
	}
	for len(ts) < timeSuffix {
		ts = "0" + ts
	}
	return strings.ToUpper(idPrefix + "-" + ts + "-" + randomBase36(randomSuffix))
}

func randomBase36(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	max := big.NewInt(int64(len(base36Digits)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			idx = big.NewInt(time.Now().UnixNano() % int64(len(base36Digits)))
		}
		sb.WriteByte(base36Digits[idx.Int64()])
	}
	return sb.String()
}
