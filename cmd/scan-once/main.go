// scan-once runs a single reconcile pass against the scanner share and
// prints the resulting report. Useful for checking share connectivity and
// credentials without starting the full backend.
package main

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/wescanlabs/corescan_backend/config"
	"bitbucket.org/wescanlabs/corescan_backend/monitor"
	"bitbucket.org/wescanlabs/corescan_backend/smbscan"
	"bitbucket.org/wescanlabs/corescan_backend/store"
)

func main() {
	cfg := config.FromEnv()
	logger := config.NewLogger()

	reader := smbscan.NewReader(cfg.SMB, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ScanTimeout)
	defer cancel()

	report := reader.Scan(ctx)
	if report.Failure != nil {
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", report.Failure)
		os.Exit(1)
	}

	for _, record := range report.Records {
		from := "-"
		if record.From != nil {
			from = record.From.String()
		}
		fmt.Printf("hole=%s from=%s to=%s machine=%s\n", record.HoleID, from, record.To.String(), record.Machine)
	}
	for _, skip := range report.Skips {
		fmt.Printf("skipped: %s\n", skip.String())
	}

	// With -apply, write the derived statuses back to the batch store.
	if len(os.Args) > 1 && os.Args[1] == "-apply" {
		batches := store.NewBatchStore(cfg.BatchesFile)
		if err := batches.Init(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize batch store: %v\n", err)
			os.Exit(1)
		}
		m := monitor.New(batches, reader, logger, cfg)
		if err := m.RunOnce(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "apply failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("statuses updated")
	}
}
