package models

import "github.com/shopspring/decimal"

// RemoteScanRecord is one machine-observed measurement derived from the
// scanner share. It is rebuilt on every pass and never persisted on its own.
type RemoteScanRecord struct {
	// HoleID comes from a directory name one level below the base path.
	HoleID string

	// From is read from the depth marker file. nil means the marker was
	// missing, unreadable, or unparsable; that is not the same as zero.
	From *decimal.Decimal

	// To is the numeric suffix of the batch folder name.
	To decimal.Decimal

	Machine string
}
