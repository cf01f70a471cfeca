package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/poiesic/sessionrag"
	"github.com/poiesic/sessionrag/ai/cache"
	"github.com/poiesic/sessionrag/api"
	"github.com/poiesic/sessionrag/config"
	"github.com/poiesic/sessionrag/core"
	"github.com/poiesic/sessionrag/ingestion"
	"github.com/poiesic/sessionrag/rag"
	"github.com/poiesic/sessionrag/reembed"
	"github.com/poiesic/sessionrag/retrieval"
	"github.com/poiesic/sessionrag/sessions"
)

var errMissingArgument = errors.New("missing argument")

// components is everything a command may need, built from the loaded config.
type components struct {
	db       *sessionrag.Database
	pipeline *ingestion.Pipeline
	sessions *sessions.Service
	engine   *retrieval.Engine
	answerer *rag.Answerer
}

func (c *components) Close() error {
	if c.pipeline != nil {
		c.pipeline.Release()
	}
	return c.db.Close()
}

func openDatabase(cfg *config.AppConfig, extra ...sessionrag.DatabaseOption) (*sessionrag.Database, error) {
	opts := []sessionrag.DatabaseOption{sessionrag.WithAIConfig(cfg.AIConfig())}
	if cfg.Cache.Enabled {
		opts = append(opts, sessionrag.WithEmbeddingCache(cache.WithTTL(cfg.Cache.TTL)))
	}
	opts = append(opts, extra...)

	db, err := sessionrag.NewDatabase(cfg.Database.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func buildComponents(cfg *config.AppConfig, extra ...sessionrag.DatabaseOption) (*components, error) {
	db, err := openDatabase(cfg, extra...)
	if err != nil {
		return nil, err
	}
	comp := &components{db: db}

	comp.pipeline, err = db.NewPipeline(
		ingestion.WithPoolSize(cfg.Ingestion.PoolSize),
		ingestion.WithBatchSize(cfg.Ingestion.BatchSize),
	)
	if err != nil {
		comp.Close()
		return nil, fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}

	comp.sessions, err = db.NewSessionService(comp.pipeline)
	if err != nil {
		comp.Close()
		return nil, fmt.Errorf("failed to create session service: %w", err)
	}

	comp.engine, err = db.NewEngine(
		retrieval.WithWeights(cfg.Weights()),
		retrieval.WithDefaultTopK(cfg.Retrieval.TopK),
		retrieval.WithPoolFactor(cfg.Retrieval.PoolFactor),
	)
	if err != nil {
		comp.Close()
		return nil, fmt.Errorf("failed to create retrieval engine: %w", err)
	}

	comp.answerer, err = db.NewAnswerer(comp.engine)
	if err != nil {
		comp.Close()
		return nil, fmt.Errorf("failed to create answerer: %w", err)
	}
	return comp, nil
}

func serveCommand(c *cli.Context) error {
	cfg := appConfig(c)
	listen := cfg.Server.Listen
	if c.IsSet("listen") {
		listen = c.String("listen")
	}

	comp, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	defer comp.Close()

	srv, err := api.New(comp.sessions, comp.engine, comp.answerer)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "Listening on %s\n", listen)
		return srv.Listen(listen)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		fmt.Fprintln(os.Stderr, "Shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func sessionCreateCommand(c *cli.Context) error {
	comp, err := buildComponents(appConfig(c))
	if err != nil {
		return err
	}
	defer comp.Close()

	session, err := comp.sessions.CreateSession(c.Context, c.String("name"), c.String("description"))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	fmt.Println(session.Id)
	return nil
}

func sessionListCommand(c *cli.Context) error {
	comp, err := buildComponents(appConfig(c))
	if err != nil {
		return err
	}
	defer comp.Close()

	list, err := comp.sessions.ListSessions(c.Context)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No sessions")
		return nil
	}

	idColor := color.New(color.FgCyan)
	for _, s := range list {
		fmt.Printf("%s  %s", idColor.Sprint(s.Id), s.Name)
		if s.Description != "" {
			fmt.Printf(" - %s", s.Description)
		}
		fmt.Printf(" (%s)\n", s.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func sessionDeleteCommand(c *cli.Context) error {
	comp, err := buildComponents(appConfig(c))
	if err != nil {
		return err
	}
	defer comp.Close()

	if c.Bool("all") {
		count, err := comp.sessions.DeleteAllSessions(c.Context)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d session(s)\n", count)
		return nil
	}

	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("%w: session id", errMissingArgument)
	}
	if err := comp.sessions.DeleteSession(c.Context, core.SessionID(id)); err != nil {
		return err
	}
	fmt.Printf("Deleted session %s\n", id)
	return nil
}

func saveCommand(c *cli.Context) error {
	text, err := joinedArgs(c, "text")
	if err != nil {
		return err
	}

	comp, err := buildComponents(appConfig(c))
	if err != nil {
		return err
	}
	defer comp.Close()

	doc, err := comp.sessions.AddConversation(c.Context, core.SessionID(c.String("session")), text, nil)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	fmt.Printf("Saved document %d\n", doc.Id)
	return nil
}

func searchCommand(c *cli.Context) error {
	query, err := joinedArgs(c, "query")
	if err != nil {
		return err
	}

	comp, err := buildComponents(appConfig(c))
	if err != nil {
		return err
	}
	defer comp.Close()

	topK := c.Int("top-k")
	if topK == 0 {
		topK = comp.engine.DefaultTopK()
	}

	results, err := comp.engine.RetrieveDocuments(c.Context, query, core.SessionID(c.String("session")), topK)
	if err != nil {
		return err
	}

	fmt.Printf("Found %d hits\n", len(results))
	scoreColor := color.New(color.FgGreen, color.Bold)
	detailColor := color.New(color.Faint)
	for i, r := range results {
		fmt.Printf("%d: %s %s '%s' (%d)\n",
			i,
			scoreColor.Sprintf("[%0.3f]", r.Score),
			detailColor.Sprintf("dense=%0.3f sparse=%0.3f", r.Dense, r.Sparse),
			r.Document.Text,
			r.Document.Id,
		)
	}
	return nil
}

func askCommand(c *cli.Context) error {
	question, err := joinedArgs(c, "question")
	if err != nil {
		return err
	}

	comp, err := buildComponents(appConfig(c))
	if err != nil {
		return err
	}
	defer comp.Close()

	err = comp.answerer.StreamAnswer(c.Context, question, core.SessionID(c.String("session")), func(chunk string) error {
		_, err := fmt.Fprint(os.Stdout, chunk)
		return err
	})
	fmt.Println()
	return err
}

func reembedCommand(c *cli.Context) error {
	cfg := appConfig(c)

	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintf(os.Stderr, "Database: %s\n", cfg.Database.Path)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", cfg.AI.EmbeddingHost)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(os.Stderr)

	if _, err := db.NewReembedder(reembedConfig, os.Stderr).Run(c.Context); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func joinedArgs(c *cli.Context, name string) (string, error) {
	text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if text == "" {
		return "", fmt.Errorf("%w: %s", errMissingArgument, name)
	}
	return text, nil
}
