package reconcile

import (
	"bitbucket.org/wescanlabs/corescan_backend/models"
)

// Apply joins the batches against the remote records on normalized
// (hole_id, to) and recomputes status and machine_values for every batch. It
// is total and deterministic: every batch comes back exactly once, and an
// ambiguous key resolves to the earliest remote record in enumeration order.
//
// The share is the sole source of truth for current state, so statuses are
// recomputed from scratch on every pass; a batch can move backward when the
// share changes under it.
func Apply(batches []models.BatchRecord, remote []models.RemoteScanRecord) []models.BatchRecord {
	out := make([]models.BatchRecord, len(batches))
	copy(out, batches)

	for i := range out {
		batch := &out[i]

		match := findMatch(*batch, remote)
		if match == nil {
			batch.Status = models.StatusPending
			batch.MachineValues = models.NoMatchMachineValues()
			continue
		}

		mv := &models.MachineValues{
			HoleID:  match.HoleID,
			From:    models.PlaceholderDepth(),
			To:      models.DepthFromDecimal(match.To),
			Machine: match.Machine,
		}

		if match.From == nil {
			// Batch folder exists but the depth marker is not there yet.
			batch.Status = models.StatusInProgress
			batch.MachineValues = mv
			continue
		}

		// The machine-observed from-depth is authoritative once available.
		mv.From = models.DepthFromDecimal(*match.From)
		batch.From = models.DepthFromDecimal(*match.From)
		batch.Status = models.StatusCorrect
		batch.MachineValues = mv
	}

	return out
}

func findMatch(batch models.BatchRecord, remote []models.RemoteScanRecord) *models.RemoteScanRecord {
	hole := NormalizeString(batch.HoleID)
	to, toOK := NormalizeDepth(batch.To)
	if !toOK {
		// An unparsable to-depth can never match.
		return nil
	}

	for i := range remote {
		if NormalizeString(remote[i].HoleID) == hole && remote[i].To.Equal(to) {
			return &remote[i]
		}
	}
	return nil
}

// FieldMismatch flags, per field, where the operator entry disagrees with the
// matched machine values. Used only for UI highlighting, never for the status
// enum.
type FieldMismatch struct {
	HoleID  bool `json:"hole_id"`
	From    bool `json:"from"`
	To      bool `json:"to"`
	Machine bool `json:"machine"`
}

// Mismatches compares a batch against its stored machine_values projection
// under the same normalization as matching. A missing or placeholder machine
// value counts as a mismatch.
func Mismatches(batch models.BatchRecord) FieldMismatch {
	mv := batch.MachineValues
	if mv == nil {
		return FieldMismatch{HoleID: true, From: true, To: true, Machine: true}
	}
	return FieldMismatch{
		HoleID:  NormalizeString(batch.HoleID) != NormalizeString(mv.HoleID),
		From:    !depthsEqual(batch.From, mv.From),
		To:      !depthsEqual(batch.To, mv.To),
		Machine: NormalizeString(batch.Machine) != NormalizeString(mv.Machine),
	}
}
