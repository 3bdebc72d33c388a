package smbscan

import (
	"context"
	"errors"
	"strings"

	"bitbucket.org/wescanlabs/corescan_backend/config"
	"bitbucket.org/wescanlabs/corescan_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	batchFolderPrefix = "batch-"

	// maxDepthRead bounds the marker-file read; one line of text is all that
	// is ever needed.
	maxDepthRead = 2048
)

var errEmptyMarker = errors.New("depth marker has no content")

// Reader walks the two-level hole -> batch-folder tree and extracts one
// record per batch folder. Scan never returns an error to its caller; a pass
// that cannot run degrades to an empty report with Failure set, and
// individual malformed or inaccessible entries become Skips.
type Reader struct {
	Dialer    Dialer
	BasePath  string
	DepthFile string
	Logger    *logrus.Logger
}

func NewReader(cfg config.SMBConfig, logger *logrus.Logger) *Reader {
	return &Reader{
		Dialer:    &SMBDialer{Config: cfg},
		BasePath:  cfg.BasePath,
		DepthFile: cfg.DepthFile,
		Logger:    logger,
	}
}

func (r *Reader) Scan(ctx context.Context) Report {
	sess, err := r.Dialer.Dial(ctx)
	if err != nil {
		config.LogError(r.Logger, "smbscan", "Scan", "dial", nil, err)
		return Report{Failure: err}
	}
	defer func() {
		if err := sess.Close(); err != nil {
			config.LogError(r.Logger, "smbscan", "Scan", "close session", nil, err)
		}
	}()

	report := Report{}

	entries, err := sess.ReadDir(r.BasePath)
	if err != nil {
		config.LogError(r.Logger, "smbscan", "Scan", "list base path", r.BasePath, err)
		return Report{Failure: err}
	}

	for _, entry := range entries {
		name := entry.Name()
		if name == "." || name == ".." {
			continue
		}
		// Entries with a dot are plain files, not hole directories.
		if strings.Contains(name, ".") {
			continue
		}
		r.scanHole(sess, name, &report)
	}

	r.Logger.WithFields(logrus.Fields{
		"module":  "smbscan",
		"records": len(report.Records),
		"skips":   len(report.Skips),
	}).Info("scanner share walk finished")

	return report
}

// scanHole lists one hole directory. A hole that cannot be listed is skipped
// in full; it must not abort the rest of the walk.
func (r *Reader) scanHole(sess Session, hole string, report *Report) {
	holePath := JoinPath(r.BasePath, hole)

	entries, err := sess.ReadDir(holePath)
	if err != nil {
		report.skip(holePath, SkipHoleUnreadable, err, r.Logger)
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, batchFolderPrefix) || !entry.IsDir() {
			continue
		}

		batchPath := JoinPath(holePath, name)
		to, err := decimal.NewFromString(strings.TrimPrefix(name, batchFolderPrefix))
		if err != nil {
			report.skip(batchPath, SkipBadBatchName, err, r.Logger)
			continue
		}

		record := models.RemoteScanRecord{
			HoleID:  strings.TrimSpace(hole),
			To:      to.Round(2),
			Machine: models.MachineLabel,
		}

		if from, skipReason, err := r.readDepth(sess, batchPath); err != nil {
			// The batch folder itself is real; it just has no readable
			// depth yet. The record goes out with the from-depth absent.
			report.skip(JoinPath(batchPath, r.DepthFile), skipReason, err, r.Logger)
		} else {
			record.From = from
		}

		report.Records = append(report.Records, record)
	}
}

func (r *Reader) readDepth(sess Session, batchPath string) (*decimal.Decimal, SkipReason, error) {
	raw, err := sess.ReadFile(JoinPath(batchPath, r.DepthFile), maxDepthRead)
	if err != nil {
		return nil, SkipDepthUnreadable, err
	}

	line := firstNonEmptyLine(raw)
	if line == "" {
		return nil, SkipDepthUnparsable, errEmptyMarker
	}
	from, err := decimal.NewFromString(line)
	if err != nil {
		return nil, SkipDepthUnparsable, err
	}
	rounded := from.Round(2)
	return &rounded, "", nil
}

func firstNonEmptyLine(raw []byte) string {
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

func (rep *Report) skip(path string, reason SkipReason, err error, logger *logrus.Logger) {
	s := Skip{Path: path, Reason: reason, Err: err}
	rep.Skips = append(rep.Skips, s)
	logger.WithFields(logrus.Fields{
		"module": "smbscan",
		"path":   path,
		"reason": string(reason),
	}).Warn(s.String())
}
