package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"scripture-quiz-service/internal/app"
	"scripture-quiz-service/internal/config"
	"scripture-quiz-service/internal/grader"
	"scripture-quiz-service/internal/infra/memory"
	redisinfra "scripture-quiz-service/internal/infra/redis"
	transport "scripture-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	loader, closeLoader, err := openQuestionLoader(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLoader()

	redisClient := newRedisClient(cfg)
	if redisClient != nil {
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var questionRepo app.QuestionRepository
	if redisClient != nil {
		questionRepo = redisinfra.NewQuestionRepository(redisClient, loader, questionTTL)
	} else {
		questionRepo = memory.NewQuestionRepository(loader, questionTTL)
	}

	sessionTTL := config.TTLDuration(cfg.Session.TTL, config.TTLDuration(cfg.Redis.TTL, 2*time.Hour))
	var (
		sessions    app.SessionRepository
		memSessions *memory.SessionStore
	)
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		memSessions = memory.NewSessionStore(sessionTTL)
		sessions = memSessions
	}

	graderTimeout := config.TTLDuration(cfg.Grader.Timeout, grader.DefaultTimeout)
	if cfg.Grader.APIKey == "" {
		logger.Warn("grader api key is empty; open answers will fail unless the endpoint needs no key")
	}
	openAI, err := grader.NewOpenAIGrader(grader.Config{
		BaseURL:         cfg.Grader.BaseURL,
		APIKey:          cfg.Grader.APIKey,
		Model:           cfg.Grader.Model,
		ReasoningModel:  cfg.Grader.ReasoningModel,
		LongAnswerRunes: cfg.Grader.LongAnswerRunes,
		Topic:           cfg.Grader.Topic,
		Timeout:         graderTimeout,
	})
	if err != nil {
		return err
	}

	var opts []app.Option
	if cfg.Grader.MaxAnswerLength > 0 {
		opts = append(opts, app.WithMaxAnswerLength(cfg.Grader.MaxAnswerLength))
	}
	questions := app.NewQuestionService(questionRepo, openAI, logger, opts...)
	play := app.NewPlayService(sessions, questions)

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(questions, play, transport.RouterConfig{
			AllowedOrigins: cfg.Server.CORSOrigins,
			Logger:         logger,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: graderTimeout + 15*time.Second,
	}

	go func() {
		logger.Info("starting quiz service", "port", finalPort, "max_answer_length", questions.MaxAnswerLength())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}
	if memSessions != nil {
		logger.Info("dropping in-memory sessions", "count", memSessions.Len())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
