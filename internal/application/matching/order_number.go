package matching

import (
	"regexp"
	"strings"
)

// Upstream order numbers sometimes arrive with a marketplace prefix and a
// numeric sub-order suffix bolted onto the number stored locally, e.g.
// "MKT-20240115001-2" for local "20240115001". NormalizeOrderNumber strips
// both so the secondary composite lookup can still find the line. It is the
// only tolerant matching in the core and is applied explicitly by callers;
// the ProductMatcher cascade itself stays exact.

var (
	knownPrefixes = []string{"MKT-", "MP-", "PO-"}

	numericSuffix = regexp.MustCompile(`-\d{1,3}$`)
)

// NormalizeOrderNumber strips a known marketplace prefix and a trailing
// numeric sub-order suffix. The input is returned unchanged when neither
// applies.
func NormalizeOrderNumber(orderNumber string) string {
	out := orderNumber
	for _, p := range knownPrefixes {
		if strings.HasPrefix(out, p) {
			out = strings.TrimPrefix(out, p)
			break
		}
	}
	return numericSuffix.ReplaceAllString(out, "")
}
