package booking

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDPrefix starts every booking identifier.
const IDPrefix = "GR-"

// IDFunc produces a booking identifier for a confirmation made at now.
type IDFunc func(now time.Time) string

// NewID returns "GR-" + base-36 Unix milliseconds + "-" + 6 random hex chars.
// Two confirmations in the same millisecond differ by the random suffix.
func NewID(now time.Time) string {
	token := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return IDPrefix + token + "-" + strings.ToUpper(suffix)
}
