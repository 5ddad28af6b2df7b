package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tidewise/tidewise/internal/activity"
	"github.com/tidewise/tidewise/internal/api/models"
	"github.com/tidewise/tidewise/internal/app"
	"github.com/tidewise/tidewise/internal/conditions"
	"github.com/tidewise/tidewise/internal/grouping"
	"github.com/tidewise/tidewise/internal/slot"
	"github.com/tidewise/tidewise/internal/suggest"
	"github.com/tidewise/tidewise/internal/validation"
)

type suggestOptions struct {
	dataPath       string
	activitiesPath string
	grouping       string
	limit          int
	workingHours   string
	feasibleOnly   bool
	jsonOutput     bool
}

func newSuggestCommand(root *rootOptions) *cobra.Command {
	opts := &suggestOptions{}

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Rank activities for one day of conditions",
		Long: `Score every activity against each hour of the day described by --data and
print the grouped time windows, best first.

Activities come from --activities, or from the configured catalog when the
flag is omitted.`,
		Example: `  tidewise suggest --data day.json --activities activities.json --grouping time
  tidewise suggest --data day.json --working-hours 8-18 --feasible-only --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSuggest(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dataPath, "data", "d", "", "Path to the day's conditions as JSON (required)")
	cmd.Flags().StringVarP(&opts.activitiesPath, "activities", "a", "", "Path to a JSON array of activities")
	cmd.Flags().StringVarP(&opts.grouping, "grouping", "g", string(grouping.ModeTime), "Grouping mode: none, time or timeAndActivity")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of rows (0 = no limit)")
	cmd.Flags().StringVar(&opts.workingHours, "working-hours", "", "Only consider hours in START-END, e.g. 8-18")
	cmd.Flags().BoolVar(&opts.feasibleOnly, "feasible-only", false, "Drop hours where a constraint is entirely unmet")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the full result as JSON")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func runSuggest(cmd *cobra.Command, root *rootOptions, opts *suggestOptions) error {
	mode, err := grouping.ParseMode(opts.grouping)
	if err != nil {
		return err
	}
	if opts.limit < 0 {
		return errors.New("--limit must not be negative")
	}
	wh, err := parseWorkingHours(opts.workingHours)
	if err != nil {
		return err
	}

	data, err := loadDataContext(opts.dataPath)
	if err != nil {
		return err
	}

	cfg, logger, err := root.load(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	var (
		activities []activity.Activity
		catalog    suggest.Catalog
	)
	if opts.activitiesPath != "" {
		activities, err = activity.LoadSeedFile(opts.activitiesPath)
		if err != nil {
			return err
		}
	} else {
		c, err := app.OpenCatalog(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer c.Close()
		catalog = c
	}

	svc, err := app.NewSuggester(cfg, catalog, logger)
	if err != nil {
		return err
	}

	result, err := svc.Suggest(ctx, suggest.Request{
		Data:         data,
		Activities:   activities,
		WorkingHours: wh,
		Grouping:     mode,
		Limit:        opts.limit,
		FeasibleOnly: opts.feasibleOnly,
	})
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(models.ComputeSuggestionsResponse{
			GeneratedAt: models.Timestamp(result.GeneratedAt),
			Ranked:      result.Ranked,
			Grouped:     result.Grouped,
		})
	}
	return writeTable(cmd.OutOrStdout(), result.Grouped)
}

func loadDataContext(path string) (conditions.DataContext, error) {
	var data conditions.DataContext

	raw, err := os.ReadFile(path)
	if err != nil {
		return data, fmt.Errorf("reading conditions: %w", err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("decoding conditions: %w", err)
	}
	if data.ReferenceDate.IsZero() {
		return data, errors.New("conditions: referenceDate is required")
	}
	if err := validation.Struct(data); err != nil {
		return data, fmt.Errorf("conditions: %w", err)
	}
	return data, nil
}

// parseWorkingHours parses "START-END" in hours of day. An empty string
// disables the filter.
func parseWorkingHours(s string) (*slot.WorkingHours, error) {
	if s == "" {
		return nil, nil
	}

	start, end, ok := strings.Cut(s, "-")
	if !ok {
		return nil, fmt.Errorf("invalid --working-hours %q: want START-END", s)
	}
	startHour, err := strconv.ParseFloat(strings.TrimSpace(start), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid --working-hours start %q: %w", start, err)
	}
	endHour, err := strconv.ParseFloat(strings.TrimSpace(end), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid --working-hours end %q: %w", end, err)
	}

	wh := &slot.WorkingHours{StartHour: startHour, EndHour: endHour, Enabled: true}
	if err := validation.Struct(wh); err != nil {
		return nil, fmt.Errorf("invalid --working-hours %q: %w", s, err)
	}
	return wh, nil
}

func writeTable(w io.Writer, groups []grouping.EnrichedActivityScore) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTIVITY\tFROM\tTO\tSCORE\tFEASIBLE\tWINDOWS")
	for _, g := range groups {
		windows := max(len(g.Intervals), 1)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%d\n",
			g.Activity.Name,
			g.Interval.Start.Format("15:04"),
			g.Interval.End.Format("15:04"),
			bestOf(g),
			yesNo(g.Feasible),
			windows,
		)
	}
	return tw.Flush()
}

// bestOf is the highest score within a group, including its sub-intervals.
func bestOf(g grouping.EnrichedActivityScore) float64 {
	best := g.Score
	for _, sub := range g.Intervals {
		best = max(best, sub.Score)
	}
	return best
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
