package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vito/tern/pkg/config"
	"github.com/vito/tern/pkg/def"
	"github.com/vito/tern/pkg/infer"
	"github.com/vito/tern/pkg/ioctx"
	"github.com/vito/tern/pkg/query"
)

// Config holds the application configuration
type Config struct {
	Debug   bool
	Config  string
	Defs    []string
	Timeout time.Duration
}

func main() {
	var cfg Config

	rootCmd := &cobra.Command{
		Use:   "tern",
		Short: "Type inference over environment documents",
		Long: `Tern loads environment documents describing JavaScript globals and
answers questions about the types they define.

Definition files are taken from tern.toml, found by walking up from the
working directory, followed by any --def flags.`,
		Example: `  # Describe a global
  tern --def ecma5.json type Array.prototype.map

  # Complete the properties of an instance
  tern complete Point.prototype d

  # Condense a library back into a document
  tern --def lib.json condense lib > lib.condensed.json

  # Serve queries over stdio
  tern serve --lsp`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(setupLogging(cmd.Context(), cfg.Debug))
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&cfg.Debug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&cfg.Config, "config", "c", "", "Path to tern.toml (searched for if not specified)")
	rootCmd.PersistentFlags().StringArrayVar(&cfg.Defs, "def", nil, "Environment document to load (repeatable)")
	rootCmd.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", 0, "Bound each query, overriding tern.toml")

	rootCmd.AddCommand(
		typeCmd(&cfg),
		completeCmd(&cfg),
		condenseCmd(&cfg),
		serveCmd(&cfg),
		dumpCmd(&cfg),
	)

	ctx := context.Background()
	ctx = ioctx.StdoutToContext(ctx, os.Stdout)
	ctx = ioctx.StderrToContext(ctx, os.Stderr)
	if err := fang.Execute(ctx, rootCmd,
		fang.WithVersion("v0.1.0"),
		fang.WithCommit("dev"),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			_, _ = fmt.Fprintln(w, err.Error())
		}),
	); err != nil {
		os.Exit(1)
	}
}

func setupLogging(ctx context.Context, debug bool) context.Context {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if f, ok := ioctx.StderrFromContext(ctx).(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		handler = tint.NewHandler(f, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		handler = slog.NewTextHandler(ioctx.StderrFromContext(ctx), &slog.HandlerOptions{
			Level: level,
		})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	return ioctx.LoggerToContext(ctx, logger)
}

func projectConfig(cfg *Config) (*config.Config, error) {
	if cfg.Config != "" {
		return config.Load(cfg.Config)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	path, project, err := config.Find(cwd)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return config.Default(), nil
	}
	slog.Debug("using project config", "path", path)
	return project, nil
}

// readDefs reads and decodes the documents concurrently. The results keep
// the order of paths.
func readDefs(ctx context.Context, paths []string) ([]*def.Object, error) {
	docs := make([]*def.Object, len(paths))
	eg, _ := errgroup.WithContext(ctx)
	for i, path := range paths {
		eg.Go(func() error {
			doc, err := def.ReadFile(path)
			if err != nil {
				return errors.Wrapf(err, "reading %s", path)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// loadEngine builds an analysis from the project configuration and the
// command line.
func loadEngine(ctx context.Context, cfg *Config) (*query.Engine, error) {
	logger := ioctx.LoggerFromContext(ctx)

	project, err := projectConfig(cfg)
	if err != nil {
		return nil, err
	}

	paths := append(project.DefPaths(), cfg.Defs...)
	docs, err := readDefs(ctx, paths)
	if err != nil {
		return nil, err
	}

	cx := infer.NewContext(project.Policy)
	cx.Logger = logger
	for i, doc := range docs {
		if err := def.Load(cx, doc, nil); err != nil {
			return nil, errors.Wrapf(err, "loading %s", paths[i])
		}
	}
	logger.DebugContext(ctx, "loaded definitions", "files", len(paths), "origins", cx.Origins())

	engine := query.New(cx)
	engine.Timeout = project.Timeout
	if cfg.Timeout > 0 {
		engine.Timeout = cfg.Timeout
	}
	return engine, nil
}
