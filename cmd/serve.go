package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/valikhov/intervue/internal/ai"
	"github.com/valikhov/intervue/internal/ai/gemini"
	"github.com/valikhov/intervue/internal/dialog"
	"github.com/valikhov/intervue/internal/logger"
	"github.com/valikhov/intervue/internal/metrics"
	"github.com/valikhov/intervue/internal/scenario"
	"github.com/valikhov/intervue/internal/secrets"
	"github.com/valikhov/intervue/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	defaultListen          = ":8004"
	serverShutdownGrace    = 10 * time.Second
	serverReadHeaderLimit  = 10 * time.Second
	defaultMetricsTimeoutS = 2
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dialog engine HTTP server",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", defaultListen, "address to listen on")
	serveCmd.Flags().StringP("scenario-dir", "s", "", "directory with scenario artifacts. Default is unset: every category is generated.")
	serveCmd.Flags().StringP("phrase-bank", "p", "", "phrase bank file. Default is the built-in bank.")

	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("scenario-dir", serveCmd.Flags().Lookup("scenario-dir"))
	viper.BindPFlag("phrase-bank", serveCmd.Flags().Lookup("phrase-bank"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the intervue server", zap.String("version", version))

	engine := buildEngine(ctx, config, logger)

	listen := config.Listen
	if listen == "" {
		listen = defaultListen
	}

	httpServer := &http.Server{
		Addr:              listen,
		Handler:           server.New(engine, logger).Router(),
		ReadHeaderTimeout: serverReadHeaderLimit,
	}

	go func() {
		logger.Info("listening", zap.String("address", listen))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownGrace)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown was not clean", zap.Error(err))
	}
}

// buildEngine assembles the orchestrator from the config: scenario
// store, phrase bank, optional generative stages and the optional
// metrics client.
func buildEngine(ctx context.Context, config *Config, logger *zap.Logger) *dialog.Orchestrator {
	store := scenario.NewStore(config.ScenarioDir, logger)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	phrases, err := dialog.LoadPhraseBank(config.PhraseBank, rng)
	if err != nil {
		logger.Fatal("loading phrase bank", zap.Error(err))
	}

	var judge ai.Judge
	var planner ai.Planner
	if config.AI != nil && config.AI.Enabled {
		j, p, err := newGeminiStages(ctx, config.AI, logger)
		if err != nil {
			logger.Warn("generative stages unavailable, running heuristic only", zap.Error(err))
		} else {
			judge, planner = j, p
		}
	}

	var metricsClient *metrics.Client
	if config.Metrics != nil {
		timeout := config.Metrics.TimeoutSeconds
		if timeout <= 0 {
			timeout = defaultMetricsTimeoutS
		}
		metricsClient = metrics.New(config.Metrics.BaseURL, time.Duration(timeout)*time.Second, logger)
	}

	return dialog.New(judge, planner, store, phrases, metricsClient, logger)
}

func newGeminiStages(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Judge, ai.Planner, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	if cfg.Gemini == nil {
		return nil, nil, errors.New("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	stageLogger := logger.With(
		zap.String("provider", "gemini"),
		zap.String("model", cfg.Gemini.Model),
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, stageLogger)
	if err != nil {
		return nil, nil, err
	}

	judge := gemini.NewJudge(generator, stageLogger, cfg.Gemini.MaxLogLength)
	planner := gemini.NewPlanner(generator, stageLogger, cfg.Gemini.MaxLogLength)

	return judge, planner, nil
}
