package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type BatchStatus string

const (
	StatusPending    BatchStatus = "pending"
	StatusInProgress BatchStatus = "in_progress"
	StatusCorrect    BatchStatus = "correct"
)

// MachineLabel tags every record the scanner share reports; the share only
// ever carries one machine type.
const MachineLabel = "OREXPLORE"

// Placeholder is what machine_values fields carry when the scanner reported
// nothing. The frontend renders it verbatim.
const Placeholder = "-"

// Depth holds a depth value exactly as it appeared in JSON. Operators have
// entered both numbers and quoted strings over time, and existing batch files
// must round-trip byte for byte, so the raw token is preserved instead of
// forcing a numeric type.
type Depth struct {
	raw string
}

func DepthFromDecimal(d decimal.Decimal) Depth {
	return Depth{raw: d.String()}
}

func DepthFromString(s string) Depth {
	b, _ := json.Marshal(s)
	return Depth{raw: string(b)}
}

// PlaceholderDepth renders as "-" like the rest of machine_values.
func PlaceholderDepth() Depth {
	return DepthFromString(Placeholder)
}

func (d *Depth) UnmarshalJSON(b []byte) error {
	d.raw = string(b)
	return nil
}

func (d Depth) MarshalJSON() ([]byte, error) {
	if d.raw == "" {
		return []byte(`""`), nil
	}
	return []byte(d.raw), nil
}

// Text returns the value without JSON quoting: `12.5` and `"12.5"` both come
// back as 12.5. null and empty come back as "".
func (d Depth) Text() string {
	raw := strings.TrimSpace(d.raw)
	if raw == "" || raw == "null" {
		return ""
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err == nil {
			return s
		}
	}
	return raw
}

type MachineValues struct {
	HoleID  string `json:"hole_id"`
	From    Depth  `json:"from"`
	To      Depth  `json:"to"`
	Machine string `json:"machine"`
}

// NoMatchMachineValues is the explicit "no data" projection stored when
// reconciliation finds nothing for a batch.
func NoMatchMachineValues() *MachineValues {
	return &MachineValues{
		HoleID:  Placeholder,
		From:    PlaceholderDepth(),
		To:      PlaceholderDepth(),
		Machine: Placeholder,
	}
}

// BatchRecord is one operator-submitted scan entry. Field names follow the
// persisted JSON layout of the original batch files, comentarios included.
type BatchRecord struct {
	BatchNumber   int            `json:"batch_number"`
	HoleID        string         `json:"hole_id"`
	From          Depth          `json:"from"`
	To            Depth          `json:"to"`
	Machine       string         `json:"machine"`
	Comments      string         `json:"comentarios"`
	Status        BatchStatus    `json:"status"`
	MachineValues *MachineValues `json:"machine_values,omitempty"`
	CreatedAt     string         `json:"created_at"`
}

type NewBatch struct {
	HoleID   string `json:"hole_id" validate:"required"`
	From     Depth  `json:"from"`
	To       Depth  `json:"to"`
	Machine  string `json:"machine" validate:"required"`
	Comments string `json:"comentarios"`
}

// UpdateBatchInput carries a partial edit; nil fields keep their stored value.
type UpdateBatchInput struct {
	HoleID   *string `json:"hole_id"`
	From     *Depth  `json:"from"`
	To       *Depth  `json:"to"`
	Machine  *string `json:"machine"`
	Comments *string `json:"comentarios"`
}

const timestampLayout = "2006-01-02T15:04:05.000000"

// NewTimestamp formats like the timestamps already stored in batch files
// (ISO 8601, microseconds, no zone).
func NewTimestamp() string {
	return time.Now().Format(timestampLayout)
}

func ParseTimestamp(s string) (time.Time, error) {
	layouts := []string{
		timestampLayout,
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
		time.RFC3339,
	}
	var firstErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
