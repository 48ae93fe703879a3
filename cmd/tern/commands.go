package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/creachadair/jrpc2/channel"
	"github.com/kr/pretty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/vito/tern/pkg/condense"
	"github.com/vito/tern/pkg/def"
	"github.com/vito/tern/pkg/ioctx"
	"github.com/vito/tern/pkg/query"
)

func typeCmd(cfg *Config) *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "type PATH",
		Short: "Describe the type at a path",
		Example: `  tern type Point.prototype.dist
  tern type --depth 2 config`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, err := loadEngine(ctx, cfg)
			if err != nil {
				return err
			}
			desc, err := engine.TypeOf(ctx, args[0], depth)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(ioctx.StdoutFromContext(ctx), desc)
			return err
		},
	}

	cmd.Flags().IntVar(&depth, "depth", query.DefaultDepth, "Levels of nested types to expand")

	return cmd
}

func completeCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete PATH [PREFIX]",
		Short: "List the properties of the value at a path",
		Long: `List the properties of the value at a path, nearest prototype first.

Use an empty PATH to complete global variables. Guessed properties are
marked with a trailing '?'.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, err := loadEngine(ctx, cfg)
			if err != nil {
				return err
			}
			prefix := ""
			if len(args) > 1 {
				prefix = args[1]
			}
			completions, err := engine.Complete(ctx, args[0], prefix)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(ioctx.StdoutFromContext(ctx), 0, 4, 2, ' ', 0)
			for _, c := range completions {
				name := c.Name
				if c.Guessed {
					name += "?"
				}
				fmt.Fprintf(tw, "%s\t%s\n", name, c.Type)
			}
			return tw.Flush()
		},
	}

	return cmd
}

func condenseCmd(cfg *Config) *cobra.Command {
	var (
		name      string
		sortKeys  bool
		omitSpans bool
		format    string
	)

	cmd := &cobra.Command{
		Use:   "condense ORIGIN...",
		Short: "Emit the types of some origins as an environment document",
		Long: `Condense walks everything reachable from the global scope and emits the
types that belong to the given origins as an environment document. Types
from earlier origins are referred to by name.`,
		Example: `  tern --def ecma5.json --def lib.json condense lib
  tern --def lib.yaml condense --format yaml --sort lib`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, err := loadEngine(ctx, cfg)
			if err != nil {
				return err
			}
			cx := engine.Context()
			for _, origin := range args {
				if cx.OriginIndex(origin) < 0 {
					return errors.Errorf("unknown origin %q (have %v)", origin, cx.Origins())
				}
			}

			out := condense.Condense(cx, args, name, condense.Options{
				Sort:      sortKeys,
				OmitSpans: omitSpans,
			})

			w := ioctx.StdoutFromContext(ctx)
			switch format {
			case "json":
				return def.EncodeJSON(w, out)
			case "yaml":
				return def.EncodeYAML(w, out)
			default:
				return errors.Errorf("unknown format %q", format)
			}
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name of the emitted document (defaults to the first origin)")
	cmd.Flags().BoolVar(&sortKeys, "sort", false, "Sort keys alphabetically")
	cmd.Flags().BoolVar(&omitSpans, "no-spans", false, "Leave out source spans")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or yaml")

	return cmd
}

func serveCmd(cfg *Config) *cobra.Command {
	var lsp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Answer JSON-RPC queries on stdin and stdout",
		Long: `Serve answers tern.type, tern.hover, tern.complete and tern.define
requests over stdio. Messages are newline delimited unless --lsp selects
Content-Length headers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := ioctx.LoggerFromContext(ctx)

			engine, err := loadEngine(ctx, cfg)
			if err != nil {
				return err
			}

			framing := channel.Line
			if lsp {
				framing = channel.LSP
			}

			logger.InfoContext(ctx, "starting server", "lsp", lsp)
			srv := query.NewServer(engine, logger).Start(framing(stdrwc{}, stdrwc{}))
			logger.InfoContext(ctx, "server closed", "error", srv.Wait())
			return nil
		},
	}

	cmd.Flags().BoolVar(&lsp, "lsp", false, "Use LSP-style Content-Length framing")

	return cmd
}

type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdrwc) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}

func dumpCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "dump PATH",
		Short:  "Print everything known about a path, for debugging",
		Args:   cobra.ExactArgs(1),
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, err := loadEngine(ctx, cfg)
			if err != nil {
				return err
			}
			hover, err := engine.Hover(ctx, args[0])
			if err != nil {
				return err
			}
			completions, err := engine.Complete(ctx, args[0], "")
			if err != nil {
				return err
			}

			w := ioctx.StdoutFromContext(ctx)
			pretty.Fprintf(w, "%# v\n", hover)
			pretty.Fprintf(w, "%# v\n", completions)
			return nil
		},
	}

	return cmd
}
