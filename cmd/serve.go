package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/SAP-F-2025/exam-pipeline-service/internal/handlers"
	"github.com/SAP-F-2025/exam-pipeline-service/internal/utils"
	"github.com/SAP-F-2025/exam-pipeline-service/pkg"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().Bool("auto-migrate", false, "Apply schema migrations before serving")
}

func runServe(cmd *cobra.Command) error {
	ctx := context.Background()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}

	if autoMigrate, _ := cmd.Flags().GetBool("auto-migrate"); autoMigrate {
		if err := pkg.Migrate(a.db); err != nil {
			a.close(ctx)
			return err
		}
	}

	logger := utils.NewSlogLogger(a.logger)

	handlerManager := handlers.NewHandlerManager(
		a.serviceManager,
		a.repoManager.GetRepository(),
		a.validator,
		logger,
		handlers.NewCasdoorAuthMiddleware(a.cfg.Casdoor),
		a.cfg.UploadMaxBytes,
	)

	if a.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", a.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "port", a.cfg.Port, "environment", a.cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
	case runErr = <-serverErr:
		logger.Error("Server failed", "error", runErr)
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// drains running pipeline stages before connections go away
	a.close(shutdownCtx)

	logger.Info("Server exited")
	return runErr
}
