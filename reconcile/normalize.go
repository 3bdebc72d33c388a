// Package reconcile matches operator-entered batches against scanner-share
// records and derives the per-batch status. Everything here is a pure
// function of its inputs.
package reconcile

import (
	"strings"

	"bitbucket.org/wescanlabs/corescan_backend/models"
	"github.com/shopspring/decimal"
)

// NormalizeString canonicalizes an identifier for comparison. The batch file
// and the share disagree on surrounding whitespace, so every string
// comparison goes through here.
func NormalizeString(v string) string {
	return strings.TrimSpace(v)
}

// NormalizeNumber parses a decimal out of heterogeneous input. ok is false
// when the value is empty or unparsable; such an absent value never compares
// equal to anything, including another absent value.
func NormalizeNumber(v string) (decimal.Decimal, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// NormalizeDepth applies numeric normalization to a stored depth token.
func NormalizeDepth(d models.Depth) (decimal.Decimal, bool) {
	return NormalizeNumber(d.Text())
}

// depthsEqual compares two stored depth tokens under normalization.
func depthsEqual(a models.Depth, b models.Depth) bool {
	av, aok := NormalizeDepth(a)
	bv, bok := NormalizeDepth(b)
	return aok && bok && av.Equal(bv)
}
