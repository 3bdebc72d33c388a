// Package smbscan walks the scanner share and turns its hole/batch folder
// tree into remote scan records. The share is an external system that may be
// slow, partially malformed, or changing mid-walk; the reader absorbs all of
// that and only ever hands the pipeline a best-effort record list.
package smbscan

import (
	"fmt"

	"bitbucket.org/wescanlabs/corescan_backend/models"
)

type SkipReason string

const (
	// SkipHoleUnreadable marks a hole directory that could not be listed;
	// the rest of the walk continues without it.
	SkipHoleUnreadable SkipReason = "hole_unreadable"

	// SkipBadBatchName marks a batch- folder whose numeric suffix did not
	// parse; no record is produced for it.
	SkipBadBatchName SkipReason = "bad_batch_name"

	// SkipDepthUnreadable marks a batch folder whose depth marker could not
	// be read; its record is still produced, with the from-depth absent.
	SkipDepthUnreadable SkipReason = "depth_unreadable"

	// SkipDepthUnparsable marks a depth marker whose first line was empty or
	// not a number; same handling as SkipDepthUnreadable.
	SkipDepthUnparsable SkipReason = "depth_unparsable"
)

// Skip is one entry the walk could not fully process. Skips are kept for
// logging and inspection instead of being discarded.
type Skip struct {
	Path   string
	Reason SkipReason
	Err    error
}

func (s Skip) String() string {
	if s.Err != nil {
		return fmt.Sprintf("%s %s: %v", s.Reason, s.Path, s.Err)
	}
	return fmt.Sprintf("%s %s", s.Reason, s.Path)
}

// Report is the outcome of one scan pass. Failure is set only when the pass
// as a whole could not run (connect/auth/base-listing failure); the record
// list is empty in that case.
type Report struct {
	Records []models.RemoteScanRecord
	Skips   []Skip
	Failure error
}
