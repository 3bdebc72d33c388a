package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/wescanlabs/corescan_backend/config"
	"bitbucket.org/wescanlabs/corescan_backend/middlewares"
	"bitbucket.org/wescanlabs/corescan_backend/monitor"
	"bitbucket.org/wescanlabs/corescan_backend/smbscan"
	"bitbucket.org/wescanlabs/corescan_backend/store"
	"bitbucket.org/wescanlabs/corescan_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// application bundles the constructed dependencies the handlers need. There
// is no ambient global state; everything is wired here and passed down.
type application struct {
	cfg     config.Config
	logger  *logrus.Logger
	batches *store.BatchStore
	users   *store.UserStore
	reader  *smbscan.Reader
}

func main() {
	cfg := config.FromEnv()
	logger := config.NewLogger()

	batches := store.NewBatchStore(cfg.BatchesFile)
	users := store.NewUserStore(cfg.UsersFile)
	if err := batches.Init(); err != nil {
		logger.WithFields(logrus.Fields{"field": "store"}).Panic(err.Error())
	}
	if err := users.Init(); err != nil {
		logger.WithFields(logrus.Fields{"field": "store"}).Panic(err.Error())
	}

	app := &application{
		cfg:     cfg,
		logger:  logger,
		batches: batches,
		users:   users,
		reader:  smbscan.NewReader(cfg.SMB, logger),
	}

	// Shutdown coordination: handle SIGTERM for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	r := app.router()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Background reconciliation runs for the life of the process.
	monitorCtx, cancelMonitor := context.WithCancel(context.Background())
	defer cancelMonitor()
	go monitor.New(batches, app.reader, logger, cfg).Run(monitorCtx)

	logger.WithFields(logrus.Fields{
		"port":     cfg.Port,
		"interval": cfg.ScanInterval.String(),
	}).Info("operator backend started")
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop the monitor first so it doesn't start a pass while we drain.
	cancelMonitor()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}

func (app *application) router() *gin.Engine {
	r := gin.New()

	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})

	corsConfig := cors.DefaultConfig()
	// In production require an explicit allowlist; allow all otherwise.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(app.logger))
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.POST("/login", app.loginHandler())
	r.POST("/create_user", app.createUserHandler())

	api := r.Group("/api")
	api.GET("/batches", app.listBatchesHandler())
	api.POST("/batches", app.createBatchHandler())
	api.PUT("/batches/:batch_number", app.updateBatchHandler())
	api.DELETE("/batches/:batch_number", app.deleteBatchHandler())
	api.GET("/preview/:batch_number", app.previewHandler())
	api.GET("/status_checker_data", app.statusCheckerDataHandler())
	api.GET("/metros_total", app.metrosTotalHandler())
	api.GET("/metros_data", app.metrosDataHandler())

	return r
}

// customErrorLogger logs only requests that recorded errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
