// Package pipeline provides the layout pipeline shared by the CLI and the API.
//
// This package chains the four layout stages into one stateless call so that
// every entry point computes identical diagrams for identical input.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Build: turn the task tree into a node/edge graph ([flow.Build])
//  2. Size: compute container sizes bottom-up ([flow.Size])
//  3. Solve: position every container's children ([layout.Solver])
//  4. Flatten: turn the nested solver result into records ([layout.Flatten])
//
// Only the solve stage blocks and only the solve stage is cached. A run either
// returns a complete [Result] or an error; there are no partial results.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	defer runner.Close()
//
//	result, err := runner.Execute(ctx, wf.Tasks, pipeline.Options{
//	    Engine: "graphviz",
//	    Hidden: []string{"task-2/arm-0"},
//	})
//	if err != nil {
//	    // show "no diagram"
//	}
//	_ = graph.WriteLayoutFile(result.Layout, "workflow.layout.json")
//
// Callers that re-run the pipeline on every visibility toggle use [Epoch] to
// drop completions that were overtaken by a newer request.
package pipeline

import (
	"io"
	"slices"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/flow"
	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/layout"
	"github.com/matzehuels/taskgraph/pkg/layout/graphviz"
	"github.com/matzehuels/taskgraph/pkg/layout/stack"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultEngine is the layout solver used when none is requested.
	DefaultEngine = graphviz.Engine

	// DefaultMaxDepth is the deepest nesting accepted from a task tree.
	DefaultMaxDepth = 32

	// DefaultMaxNodes is the largest graph the pipeline will lay out.
	DefaultMaxNodes = 5000
)

// ValidEngines is the set of supported layout engines.
var ValidEngines = map[string]bool{
	graphviz.Engine: true,
	stack.Engine:    true,
}

// Engines returns the supported engine names in sorted order.
func Engines() []string {
	names := make([]string, 0, len(ValidEngines))
	for name := range ValidEngines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	Engine string     `json:"engine,omitempty"`
	Theme  flow.Theme `json:"theme,omitempty"`

	// Hidden lists node IDs to exclude from sizing, solving and output.
	// IDs that match no node are reported in [Result.UnknownHidden].
	Hidden []string `json:"hidden,omitempty"`

	Limits flow.Limits `json:"limits,omitempty"`

	// KnownTypes, when set, restricts leaf task types to this set.
	KnownTypes []string `json:"known_types,omitempty"`

	// NoCache bypasses the solve cache for this run.
	NoCache bool `json:"no_cache,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Graph is the sized graph, positions set on visible nodes.
	Graph *flow.Graph

	// Records are the flattened visible nodes, parents before children,
	// with positions relative to the parent frame.
	Records []layout.Record

	// Layout is the serializable diagram handed to renderers.
	Layout graph.Layout

	// UnknownHidden lists hidden IDs that matched no node.
	UnknownHidden []string

	// Stats contains timing and size information.
	Stats Stats

	// CacheHit reports whether the solver result came from the cache.
	CacheHit bool
}

// Stats contains pipeline execution statistics.
type Stats struct {
	TaskCount    int
	NodeCount    int
	EdgeCount    int
	VisibleCount int
	BuildTime    time.Duration
	SizeTime     time.Duration
	SolveTime    time.Duration
	FlattenTime  time.Duration
}

// Total returns the summed duration of all stages.
func (s Stats) Total() time.Duration {
	return s.BuildTime + s.SizeTime + s.SolveTime + s.FlattenTime
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateEngine checks that an engine name is supported.
func ValidateEngine(engine string) error {
	if !ValidEngines[engine] {
		return errors.New(errors.ErrCodeInvalidEngine, "invalid engine: %q (must be one of: %v)", engine, Engines())
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// SetDefaults fills unset fields. It is idempotent.
func (o *Options) SetDefaults() {
	if o.Engine == "" {
		o.Engine = DefaultEngine
	}
	if o.Theme.IsZero() {
		o.Theme = flow.DefaultTheme()
	}
	if o.Limits.MaxDepth == 0 {
		o.Limits.MaxDepth = DefaultMaxDepth
	}
	if o.Limits.MaxNodes == 0 {
		o.Limits.MaxNodes = DefaultMaxNodes
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate sets defaults and checks the options.
func (o *Options) Validate() error {
	o.SetDefaults()
	if err := ValidateEngine(o.Engine); err != nil {
		return err
	}
	if err := o.Theme.Validate(); err != nil {
		return err
	}
	if o.Limits.MaxDepth < 0 || o.Limits.MaxNodes < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "limits must not be negative")
	}
	return errors.ValidateNodeIDs(o.Hidden)
}

// BuildOptions returns the builder options these options imply.
func (o *Options) BuildOptions() []flow.BuildOption {
	opts := []flow.BuildOption{flow.WithLimits(o.Limits)}
	if len(o.KnownTypes) > 0 {
		opts = append(opts, flow.WithKnownTypes(o.KnownTypes...))
	}
	return opts
}

// SortedHidden returns the hidden IDs sorted and deduplicated.
func (o *Options) SortedHidden() []string {
	if len(o.Hidden) == 0 {
		return nil
	}
	ids := slices.Clone(o.Hidden)
	slices.Sort(ids)
	return slices.Compact(ids)
}
