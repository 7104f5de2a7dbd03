package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/filesearch/internal/finder"
	"github.com/Aman-CERP/filesearch/internal/mcp"
	"github.com/Aman-CERP/filesearch/internal/output"
	"github.com/Aman-CERP/filesearch/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	start      int
	rows       int
	sort       string
	fields     []string
	filter     string
	highlight  bool
	jsonOutput bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <selector> <text...>",
		Short: "Search the files attached to the selected records",
		Long: `Run a text query against the files of the records a selector picks out.

The selector is a comma-separated list of terms that all have to match:
  template=report         field equals a value
  title%=annual|yearly    field contains one of the values
  files>0                 record has attachments

Hits are grouped by record. Hits from page-indexed files carry a page number.`,
		Example: `  filesearch search "template=report,files>0" quarterly revenue
  filesearch search "files>0" invoice --rows 20 --highlight
  filesearch search "files>0" invoice --json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, args[0], strings.Join(args[1:], " "), opts)
		},
	}

	cmd.Flags().IntVar(&opts.start, "start", 0, "Offset of the first hit")
	cmd.Flags().IntVarP(&opts.rows, "rows", "n", search.DefaultRows, "Maximum number of hits")
	cmd.Flags().StringVar(&opts.sort, "sort", "", "Backend sort clause, e.g. \"score desc\"")
	cmd.Flags().StringSliceVar(&opts.fields, "fields", nil, "Fields to return (default: id, name, record, page)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Extra backend filter query")
	cmd.Flags().BoolVar(&opts.highlight, "highlight", false, "Include highlighted snippets")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, selector, text string, opts searchOptions) error {
	a, err := openApp(cmd, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	slog.Info("search_started",
		slog.String("selector", selector),
		slog.String("text", text),
		slog.Int("rows", opts.rows))
	started := time.Now()

	result, err := a.finder.Find(ctx, selector, text, finder.Options{
		Fields:    opts.fields,
		Filter:    opts.filter,
		Sort:      opts.sort,
		Highlight: search.Highlight{Enabled: opts.highlight},
		Start:     opts.start,
		Rows:      opts.rows,
	})
	if err != nil {
		slog.Warn("search_failed", slog.String("error", err.Error()))
		return err
	}

	slog.Info("search_completed",
		slog.Int("hits", result.HitCount()),
		slog.Int64("num_found", result.Raw.NumFound),
		slog.Duration("duration", time.Since(started)))

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(mcp.ToSearchFilesOutput(result))
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), mcp.FormatSearchResults(text, result))
	return err
}

// browseOutput is the JSON form of one browse page.
type browseOutput struct {
	NumFound  int64   `json:"num_found"`
	Start     int     `json:"start"`
	RecordIDs []int64 `json:"record_ids"`
}

func newBrowseCmd() *cobra.Command {
	var (
		start      int
		rows       int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "browse <selector>",
		Short: "List the records a selector picks out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			page, err := a.finder.Browse(cmd.Context(), args[0], start, rows)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(browseOutput{NumFound: page.NumFound, Start: page.Start, RecordIDs: page.RecordIDs})
			}

			out := output.New(cmd.OutOrStdout())
			if len(page.RecordIDs) == 0 {
				out.Warningf("No records match %q", args[0])
				return nil
			}
			out.Statusf("📁", "%d record%s match %q (showing %d from %d)",
				page.NumFound, plural(int(page.NumFound)), args[0], len(page.RecordIDs), page.Start)
			out.Records(page.RecordIDs)
			return nil
		},
	}

	cmd.Flags().IntVar(&start, "start", 0, "Offset of the first record")
	cmd.Flags().IntVarP(&rows, "rows", "n", search.DefaultRows, "Maximum number of records")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
