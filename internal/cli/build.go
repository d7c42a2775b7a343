package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/screenflow/screenflow/pkg/graph"
	"github.com/screenflow/screenflow/pkg/pipeline"
)

// buildCommand creates the build command that turns a recording into a flow.
func (c *CLI) buildCommand() *cobra.Command {
	var (
		predictions string
		noCache     bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "build [frames-dir]",
		Short: "Build a flow from the frames of a recording",
		Long: `Build a flow from the frames of a recording.

The frames in the directory are sent in name order to the screen detection
service. Detections of the same frame become one screen; consecutive
detections close enough in time become a connection. The graph is laid out
on a grid and saved to the configured store.

With --flow the detections are merged into an existing flow instead: screens
whose frame was already seen are reused and a transition seen in both
directions becomes bidirectional.

Use --predictions to replay a recorded detection answer without calling the
service.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.FramesDir = args[0]
			if predictions != "" {
				preds, err := graph.ReadPredictionsFile(predictions)
				if err != nil {
					return fmt.Errorf("load predictions: %w", err)
				}
				opts.Predictions = preds
			}
			return c.runBuild(cmd.Context(), opts, noCache)
		},
	}

	cmd.Flags().StringVar(&predictions, "predictions", "", "JSON or YAML list of recorded predictions")
	cmd.Flags().StringVar(&opts.FlowID, "flow", "", "extend the stored flow with this ID")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title of a new flow (default: frames directory name)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description of a new flow")
	cmd.Flags().IntVar(&opts.Interval, "interval", 0, "frame sampling interval in seconds (default: from config)")
	cmd.Flags().Float64Var(&opts.MaxGap, "max-gap", 0, "largest time between detections that counts as a transition (default: from config)")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached predictions")
	cmd.Flags().StringVar(&opts.AssetsDir, "assets", "", "copy each new screen's frame into this directory")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runBuild builds the flow and prints a summary.
func (c *CLI) runBuild(ctx context.Context, opts pipeline.Options, noCache bool) error {
	s, err := c.newSession(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer s.Close()

	if opts.Interval == 0 {
		opts.Interval = s.cfg.Oracle.ImagesInterval
	}
	if opts.MaxGap == 0 {
		opts.MaxGap = s.cfg.Build.MaxGap
	}
	opts.Logger = c.Logger

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, "Building flow...")
	spinner.Start()

	res, err := s.Build(ctx, opts)
	if err != nil {
		spinner.StopWithError("Build failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	prog.done("Built flow", "flow", res.Flow.ID)

	printSuccess("Built %s", StyleHighlight.Render(res.Flow.Title))
	printKeyValue("Flow", res.Flow.ID)
	printKeyValue("Frames", fmt.Sprintf("%d (%d predictions)", res.Stats.Frames, res.Stats.Predictions))
	printKeyValue("New screens", fmt.Sprintf("%d", res.Stats.NewScreens))
	bs := res.Build.Stats
	printKeyValue("Transitions", fmt.Sprintf("%d created, %d promoted, %d existing", bs.Created, bs.Promoted, bs.Existing))
	if bs.SkippedGap > 0 {
		printDetail("%d transitions skipped: gap above %g", bs.SkippedGap, opts.MaxGap)
	}
	printStats(res.Stats.Screens, res.Stats.Connections, res.CacheInfo.PredictionsHit)
	if opts.AssetsDir != "" {
		printFile(opts.AssetsDir)
	}
	printNewline()
	printNextStep("Render", fmt.Sprintf("%s render %s -f svg", appName, res.Flow.ID))

	return nil
}
