package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/pipeline"
)

// layoutFlags holds the flags shared by layout and inspect.
type layoutFlags struct {
	engine  string
	hidden  []string
	noCache bool
	timeout time.Duration
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.engine, "engine", "e", "", fmt.Sprintf("layout engine: %v (default from config)", pipeline.Engines()))
	cmd.Flags().StringSliceVar(&f.hidden, "hide", nil, "node IDs to hide, comma-separated (e.g. task-1/arm-0)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "layout timeout (default from config)")
}

// layoutCommand creates the layout command for computing diagram positions.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output string
		flags  layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [workflow.yaml]",
		Short: "Compute a positioned diagram from a workflow definition",
		Long: `Compute a positioned diagram from a workflow definition.

The layout command reads a workflow (JSON or YAML), builds its node graph,
sizes every container bottom-up and lets the layout engine position the
children of each container. The output is a layout.json file listing every
visible node with its position relative to its parent, plus the sequence
edges to draw.

Solver results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], output, flags)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	flags.register(cmd)

	return cmd
}

// runLayout loads the workflow, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, input, output string, flags layoutFlags) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	wf, err := readWorkflow(input)
	if err != nil {
		return fmt.Errorf("load workflow %s: %w", input, err)
	}

	runner, err := c.newRunner(ctx, cfg, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	timeout := flags.timeout
	if timeout == 0 {
		timeout = cfg.Layout.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	opts := c.pipelineOptions(cfg, flags.engine, flags.hidden)
	opts.SetDefaults()

	spinner := newSpinner(ctx, fmt.Sprintf("Computing %s layout...", opts.Engine))
	spinner.Start()

	result, err := runner.Execute(ctx, wf.Tasks, opts)
	if err != nil {
		spinner.StopWithError("No diagram")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	path := outputPath(input, output, ".layout.json")
	if err := graph.WriteLayoutFile(result.Layout, path); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}

	printSuccess("Layout complete")
	printFile(path)
	printStats(result)
	for _, id := range result.UnknownHidden {
		printWarning("No node %s to hide", id)
	}
	printNewline()
	printNextStep("Explore", appName+" inspect "+input)

	return nil
}

// graphCommand creates the graph command that writes the unsized node graph.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		output string
		hidden []string
	)

	cmd := &cobra.Command{
		Use:   "graph [workflow.yaml]",
		Short: "Write the node and edge structure of a workflow",
		Long: `Write the node and edge structure of a workflow.

Every node is listed, hidden ones included, together with all edges. Ordering
hint edges between conditional arms are marked with kind "hint". Use "-o -"
to write to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(args[0], output, hidden)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.graph.json)")
	cmd.Flags().StringSliceVar(&hidden, "hide", nil, "node IDs to mark hidden, comma-separated")

	return cmd
}

func (c *CLI) runGraph(input, output string, hidden []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	wf, err := readWorkflow(input)
	if err != nil {
		return fmt.Errorf("load workflow %s: %w", input, err)
	}

	prog := newProgress(c.Logger)
	g, _, err := pipeline.BuildGraph(wf.Tasks, c.pipelineOptions(cfg, "", hidden))
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}

	if output == "-" {
		return graph.WriteGraph(graph.FromFlow(g), os.Stdout)
	}
	path := outputPath(input, output, ".graph.json")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := graph.WriteGraph(graph.FromFlow(g), f); err != nil {
		f.Close()
		return fmt.Errorf("write output %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Wrote %d nodes", g.NodeCount()))
	printFile(path)
	return nil
}
