package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"paperbase/internal/chunker"
	"paperbase/internal/config"
	"paperbase/internal/embedding"
	"paperbase/internal/generation"
	"paperbase/internal/logging"
	"paperbase/internal/manager"
	"paperbase/internal/parser"
	"paperbase/internal/providers"
	"paperbase/internal/retrieval"
	"paperbase/internal/shell"
	"paperbase/internal/storage"
)

var configPath string

func main() {
	// Missing .env is fine; explicit environment always wins.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "paperbase",
		Short:         "Personal research-paper knowledge base",
		Long:          "paperbase ingests PDFs, indexes their text, and answers questions grounded in your own library.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				sh := shell.New(app.mgr, os.Stdin, os.Stdout, app.log)
				return sh.Run(ctx)
			})
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "paperbase.yaml", "path to the config file")

	root.AddCommand(addCmd(), queryCmd(), summarizeCmd(), listCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "paperbase: %v\n", err)
		os.Exit(1)
	}
}

type application struct {
	mgr *manager.PaperManager
	log *zap.Logger
}

// withApp wires the full stack, runs fn, and tears the stack down. Any
// wiring failure surfaces as the command's error and a non-zero exit.
func withApp(ctx context.Context, fn func(ctx context.Context, app *application) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer log.Sync()

	db, err := storage.Open(ctx, cfg.DatabaseDir, cfg.DatabaseName)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	embedProvider, err := providers.BuildEmbedding(cfg)
	if err != nil {
		return fmt.Errorf("build embedding provider: %w", err)
	}
	llm, err := providers.BuildLLM(cfg)
	if err != nil {
		return fmt.Errorf("build llm provider: %w", err)
	}
	embedder, err := embedding.NewPort(embedProvider, cfg.Embedding.Dimension)
	if err != nil {
		return fmt.Errorf("build embedder: %w", err)
	}

	chunks := storage.NewChunkRepo(db)
	mgr := manager.New(manager.Deps{
		Papers:     storage.NewPaperRepo(db),
		Chunks:     chunks,
		Tags:       storage.NewTagRepo(db),
		References: storage.NewReferenceRepo(db),
		Extractor:  parser.NewPDFParser(),
		Metadata:   parser.NewMetadataExtractor(llm),
		Embedder:   embedder,
		Retriever:  retrieval.NewRetriever(chunks),
		Generator:  generation.NewGenerator(llm, log),
		LLM:        llm,
		Chunk:      chunker.Chunk,
		Config:     cfg,
		Log:        log,
	})

	return fn(ctx, &application{mgr: mgr, log: log})
}

func addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>...",
		Short: "Ingest one or more PDFs without entering the shell",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				for _, path := range args {
					paper, err := app.mgr.Ingest(ctx, path)
					if err != nil {
						return fmt.Errorf("add %s: %w", path, err)
					}
					fmt.Printf("Added [%d] %s (%d)\n", paper.ID, paper.Title, paper.PublicationYear)
				}
				return nil
			})
		},
	}
}

func queryCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Ask one question and print the grounded answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				question := strings.Join(args, " ")
				res, err := app.mgr.Query(ctx, question)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(res)
				}
				fmt.Println(res.Answer)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func summarizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <id>",
		Short: "Print a paper's summary, generating it on first use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				var id int64
				if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
					return fmt.Errorf("invalid paper id %q", args[0])
				}
				summary, err := app.mgr.Summarize(ctx, id)
				if err != nil {
					return err
				}
				fmt.Println(summary)
				return nil
			})
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every paper in the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				papers, err := app.mgr.List(ctx)
				if err != nil {
					return err
				}
				if len(papers) == 0 {
					fmt.Println("No papers found.")
					return nil
				}
				for _, p := range papers {
					fmt.Printf("[%d] %s (%d) %s\n", p.ID, p.Title, p.PublicationYear, p.Authors)
				}
				return nil
			})
		},
	}
}
