package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"bitbucket.org/wescanlabs/corescan_backend/config"
	"bitbucket.org/wescanlabs/corescan_backend/models"
	"bitbucket.org/wescanlabs/corescan_backend/reconcile"
	"bitbucket.org/wescanlabs/corescan_backend/smbscan"
	"bitbucket.org/wescanlabs/corescan_backend/store"
	"bitbucket.org/wescanlabs/corescan_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	batchesPerPage       = 20
	statusCheckerPerPage = 30
)

func isStorageError(err error) bool {
	var storageErr *store.StorageError
	return errors.As(err, &storageErr)
}

func (app *application) storeFailure(c *gin.Context, funcName string, err error) {
	config.LogError(app.logger, "batchHandlers.go", funcName, "batch store", nil, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "batch store unavailable"})
}

func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func batchNumberParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("batch_number"))
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch number"})
		return 0, false
	}
	return n, true
}

func (app *application) listBatchesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUsername(c); !ok {
			return
		}

		records, err := app.batches.Load()
		if err != nil {
			app.storeFailure(c, "listBatchesHandler", err)
			return
		}

		// Newest first. The stored timestamps sort lexicographically.
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].CreatedAt > records[j].CreatedAt
		})

		page := pageParam(c)
		c.JSON(http.StatusOK, gin.H{
			"batches":      utils.Paginate(records, page, batchesPerPage),
			"total_pages":  utils.TotalPages(len(records), batchesPerPage),
			"current_page": page,
		})
	}
}

func (app *application) createBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUsername(c); !ok {
			return
		}

		var input models.NewBatch
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := utils.ValidateStruct(input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}

		created, err := app.batches.Append(input)
		if err != nil {
			app.storeFailure(c, "createBatchHandler", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "batch": created})
	}
}

func (app *application) updateBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUsername(c); !ok {
			return
		}
		batchNumber, ok := batchNumberParam(c)
		if !ok {
			return
		}

		var input models.UpdateBatchInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		updated, err := app.batches.Update(batchNumber, input)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
				return
			}
			app.storeFailure(c, "updateBatchHandler", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "batch": updated})
	}
}

func (app *application) deleteBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUsername(c); !ok {
			return
		}
		batchNumber, ok := batchNumberParam(c)
		if !ok {
			return
		}

		if err := app.batches.Delete(batchNumber); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
				return
			}
			app.storeFailure(c, "deleteBatchHandler", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// previewHandler returns the share path of the low-res preview image the
// scanner writes next to each batch folder.
func (app *application) previewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUsername(c); !ok {
			return
		}
		batchNumber, ok := batchNumberParam(c)
		if !ok {
			return
		}

		records, err := app.batches.Load()
		if err != nil {
			app.storeFailure(c, "previewHandler", err)
			return
		}

		for _, record := range records {
			if record.BatchNumber != batchNumber {
				continue
			}
			smb := app.cfg.SMB
			imagePath := fmt.Sprintf("smb://%s/%s/%s",
				smb.Server,
				smb.Share,
				smbscan.JoinPath(smb.BasePath, record.HoleID,
					"batch-"+record.To.Text(), "sample-1", "rec-low-res-thumb-x.jpg"),
			)
			c.JSON(http.StatusOK, gin.H{"image_path": imagePath})
			return
		}

		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
	}
}

type statusCheckerItem struct {
	models.BatchRecord
	Mismatches reconcile.FieldMismatch `json:"mismatches"`
}

// statusCheckerDataHandler runs the same scan -> reconcile -> persist
// pipeline as the background monitor, synchronously, then returns a page of
// the refreshed batches with per-field mismatch flags for highlighting.
func (app *application) statusCheckerDataHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUsername(c); !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), app.cfg.ScanTimeout)
		defer cancel()

		report := app.reader.Scan(ctx)

		var refreshed []models.BatchRecord
		err := app.batches.Mutate(func(records []models.BatchRecord) ([]models.BatchRecord, error) {
			refreshed = reconcile.Apply(records, report.Records)
			return refreshed, nil
		})
		if err != nil {
			app.storeFailure(c, "statusCheckerDataHandler", err)
			return
		}

		items := make([]statusCheckerItem, len(refreshed))
		for i, record := range refreshed {
			items[i] = statusCheckerItem{
				BatchRecord: record,
				Mismatches:  reconcile.Mismatches(record),
			}
		}

		page := pageParam(c)
		c.JSON(http.StatusOK, gin.H{
			"batches":      utils.Paginate(items, page, statusCheckerPerPage),
			"total_pages":  utils.TotalPages(len(items), statusCheckerPerPage),
			"current_page": page,
		})
	}
}

// scannedInterval returns to-from for a batch when both depths parse.
func scannedInterval(record models.BatchRecord) (decimal.Decimal, bool) {
	from, fromOK := reconcile.NormalizeDepth(record.From)
	to, toOK := reconcile.NormalizeDepth(record.To)
	if !fromOK || !toOK {
		return decimal.Decimal{}, false
	}
	return to.Sub(from), true
}

func (app *application) metrosTotalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUsername(c); !ok {
			return
		}

		records, err := app.batches.Load()
		if err != nil {
			app.storeFailure(c, "metrosTotalHandler", err)
			return
		}

		total := decimal.Zero
		for _, record := range records {
			if record.Status != models.StatusPending {
				continue
			}
			if meters, ok := scannedInterval(record); ok {
				total = total.Add(meters)
			}
		}

		c.JSON(http.StatusOK, gin.H{"total": total.Round(2).InexactFloat64()})
	}
}

func (app *application) metrosDataHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireUsername(c); !ok {
			return
		}

		records, err := app.batches.Load()
		if err != nil {
			app.storeFailure(c, "metrosDataHandler", err)
			return
		}

		now := time.Now()

		type intervalAt struct {
			at     time.Time
			meters decimal.Decimal
		}
		var scanned []intervalAt
		for _, record := range records {
			if record.Status != models.StatusCorrect {
				continue
			}
			at, err := models.ParseTimestamp(record.CreatedAt)
			if err != nil {
				continue
			}
			if meters, ok := scannedInterval(record); ok {
				scanned = append(scanned, intervalAt{at: at, meters: meters})
			}
		}

		// Cumulative meters per hour for today.
		daily := make([]gin.H, 0, 24)
		for hour := 0; hour < 24; hour++ {
			meters := decimal.Zero
			for _, s := range scanned {
				if sameDay(s.at, now) && s.at.Hour() <= hour {
					meters = meters.Add(s.meters)
				}
			}
			daily = append(daily, gin.H{"hour": hour, "metros": meters.Round(2).InexactFloat64()})
		}

		// Per-day meters for the trailing 30 days.
		monthly := make([]gin.H, 0, 30)
		for day := 0; day < 30; day++ {
			datePoint := now.AddDate(0, 0, -(29 - day))
			meters := decimal.Zero
			for _, s := range scanned {
				if sameDay(s.at, datePoint) {
					meters = meters.Add(s.meters)
				}
			}
			monthly = append(monthly, gin.H{
				"day":    datePoint.Format("02/01"),
				"metros": meters.Round(2).InexactFloat64(),
			})
		}

		c.JSON(http.StatusOK, gin.H{"daily": daily, "monthly": monthly})
	}
}

func sameDay(a time.Time, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
