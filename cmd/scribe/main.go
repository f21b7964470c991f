package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	_ "github.com/lib/pq"

	"ehr-scribe/internal/audio"
	"ehr-scribe/internal/config"
	"ehr-scribe/internal/console"
	"ehr-scribe/internal/core"
	"ehr-scribe/internal/db"
	httpserver "ehr-scribe/internal/http"
	"ehr-scribe/internal/llm"
	"ehr-scribe/internal/stt"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scribe",
		Short: "EHR consultation assistant",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(consoleCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

// buildGenerators constructs the three model-backed components. They share
// one LLM client, built once at startup and injected explicitly.
func buildGenerators(cfg *config.Config, logger zerolog.Logger) (*core.SOAPGenerator, *core.ExamRecommender, *core.DrugChecker) {
	client := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel,
		llm.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout()}))
	return core.NewSOAPGenerator(client, logger),
		core.NewExamRecommender(client, logger),
		core.NewDrugChecker(client, logger)
}

// openStore connects the optional archive. A missing DATABASE_URL disables
// archiving; a configured but unreachable database is a startup error.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*db.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, consultation archive disabled")
		return nil, func() {}, nil
	}
	conn, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	return db.NewStore(conn), func() { conn.Close() }, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and static front end",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			srv := &httpserver.Server{
				Reports:   core.ReportWriter{Dir: cfg.OutputDir},
				StaticDir: cfg.StaticDir,
				Log:       logger,
			}

			// Without a key the server still starts; the generator
			// endpoints answer 500 until one is configured.
			if cfg.HasAPIKey() {
				srv.Soap, srv.Exams, srv.Drugs = buildGenerators(cfg, logger)
			} else {
				logger.Warn().Msg("OPENAI_API_KEY not set, generation endpoints will be unavailable")
			}

			store, closeStore, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()
			srv.Store = store

			ln, port, err := listenWithFallback(cfg.Port)
			if err != nil {
				return err
			}

			e := srv.Router()
			e.Listener = ln
			logger.Info().Str("port", port).Msg("listening")
			return e.Start("")
		},
	}
}

// listenWithFallback binds the configured port, scanning a small range of
// alternates when it is taken. Ports 5000-5002 are skipped in the scan
// because other local tooling commonly claims them.
func listenWithFallback(port string) (net.Listener, string, error) {
	if ln, err := net.Listen("tcp", ":"+port); err == nil {
		return ln, port, nil
	}

	var start int
	if _, err := fmt.Sscanf(port, "%d", &start); err != nil {
		return nil, "", fmt.Errorf("invalid port %q", port)
	}
	for p := start; p < start+10; p++ {
		if p >= 5000 && p <= 5002 {
			continue
		}
		alt := fmt.Sprintf("%d", p)
		if ln, err := net.Listen("tcp", ":"+alt); err == nil {
			return ln, alt, nil
		}
	}
	return nil, "", fmt.Errorf("no free port found in range %d-%d", start, start+9)
}

func consoleCmd() *cobra.Command {
	var recent int
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Run an interactive consultation session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			// The console flow is useless without the model; refuse to
			// start, unlike serve which degrades.
			if !cfg.HasAPIKey() {
				return fmt.Errorf("OPENAI_API_KEY is not set; the console flow requires a valid API key")
			}

			store, closeStore, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			if recent > 0 {
				if store == nil {
					return fmt.Errorf("--recent requires DATABASE_URL")
				}
				return printRecent(cmd.Context(), store, recent)
			}

			agent := &console.Agent{
				Reports:       core.ReportWriter{Dir: cfg.OutputDir},
				Store:         store,
				RecordingsDir: cfg.RecordingsDir,
				Log:           logger,
				Capture: audio.CaptureOptions{
					ListenTimeout:   cfg.ListenWindow(),
					PhraseLimit:     cfg.PhraseWindow(),
					EnergyThreshold: 300,
				},
			}
			agent.Soap, agent.Exams, agent.Drugs = buildGenerators(cfg, logger)

			if cfg.SpeechAPIKey != "" {
				tr, err := stt.NewGoogleTranscriber(stt.GoogleConfig{APIKey: cfg.SpeechAPIKey})
				if err != nil {
					return err
				}
				agent.Transcriber = tr
				// Device capture is platform-specific; phrases are replayed
				// from WAV files dropped into the recordings inbox.
				agent.NewSource = func() (audio.Source, error) {
					return audio.NewFileSource(filepath.Join(cfg.RecordingsDir, "inbox.wav"), cfg.ChunkSize)
				}
			} else {
				logger.Warn().Msg("SPEECH_API_KEY not set, voice capture disabled")
			}

			return agent.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&recent, "recent", 0, "List the N most recent archived consultations and exit")
	return cmd
}

func printRecent(ctx context.Context, store *db.Store, n int) error {
	items, err := store.ListRecent(ctx, n)
	if err != nil {
		return err
	}
	for _, c := range items {
		preview := c.Transcript
		if len(preview) > 60 {
			preview = preview[:60] + "..."
		}
		fmt.Printf("%s  %s  %-12s %s\n",
			c.CreatedAt.Format("2006-01-02 15:04"), c.ID, c.PatientName, preview)
	}
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the consultation archive schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for migrate")
			}
			conn, err := sql.Open("postgres", cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer conn.Close()

			if err := db.Migrate(cmd.Context(), conn); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
			fmt.Println("Archive schema applied.")
			return nil
		},
	}
}
