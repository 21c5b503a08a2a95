package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/flow"
	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/layout"
	"github.com/matzehuels/taskgraph/pkg/pipeline"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listErrorStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

// inspectCommand creates the interactive inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		output string
		flags  layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "inspect [workflow.yaml]",
		Short: "Browse a workflow and toggle node visibility interactively",
		Long: `Browse a workflow and toggle node visibility interactively.

Every toggle re-runs the layout in the background. Results of runs that were
overtaken by a newer toggle are discarded. Press w to write the current
layout to disk.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), args[0], output, flags)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file written by w (default: <input>.layout.json)")
	flags.register(cmd)

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, input, output string, flags layoutFlags) error {
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

	opts := c.pipelineOptions(cfg, flags.engine, flags.hidden)
	g, _, err := pipeline.BuildGraph(wf.Tasks, opts)
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}

	timeout := flags.timeout
	if timeout == 0 {
		timeout = cfg.Layout.Timeout
	}
	// The TUI owns the terminal, so pipeline logs below warnings would garble it.
	quiet := c.Logger.With()
	quiet.SetLevel(log.WarnLevel)
	opts.Logger = quiet

	run := func(ctx context.Context, hidden []string) (*pipeline.Result, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		o := opts
		o.Hidden = hidden
		return runner.Execute(ctx, wf.Tasks, o)
	}
	path := outputPath(input, output, ".layout.json")
	save := func(l graph.Layout) (string, error) {
		return path, graph.WriteLayoutFile(l, path)
	}

	m := newInspectModel(ctx, g, flags.hidden, run, save)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// =============================================================================
// inspectModel - Interactive visibility toggling
// =============================================================================

// inspectRow is one node of the task tree as listed by the TUI.
type inspectRow struct {
	id     string
	parent string
	label  string
	kind   flow.Kind
	depth  int
}

// layoutDoneMsg carries the outcome of one background layout run.
type layoutDoneMsg struct {
	ticket uint64
	result *pipeline.Result
	err    error
}

type layoutFunc func(ctx context.Context, hidden []string) (*pipeline.Result, error)

// inspectModel is the bubbletea model of the inspect command.
type inspectModel struct {
	ctx    context.Context
	rows   []inspectRow
	hidden map[string]bool
	cursor int
	offset int
	height int

	run  layoutFunc
	save func(graph.Layout) (string, error)

	epoch   *pipeline.Epoch
	ticket  uint64
	pending bool
	result  *pipeline.Result
	records map[string]layout.Record
	err     error
	status  string
}

// newInspectModel lists g in pre-order and schedules the first layout run.
func newInspectModel(ctx context.Context, g *flow.Graph, hidden []string, run layoutFunc, save func(graph.Layout) (string, error)) inspectModel {
	m := inspectModel{
		ctx:     ctx,
		rows:    treeRows(g),
		hidden:  make(map[string]bool),
		height:  20,
		run:     run,
		save:    save,
		epoch:   &pipeline.Epoch{},
		pending: true,
	}
	for _, id := range hidden {
		m.hidden[id] = true
	}
	m.ticket = m.epoch.Next()
	return m
}

func treeRows(g *flow.Graph) []inspectRow {
	var rows []inspectRow
	top := g.TopLevel()
	stack := make([]*flow.Node, 0, len(top))
	for i := len(top) - 1; i >= 0; i-- {
		stack = append(stack, top[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		rows = append(rows, inspectRow{id: n.ID, parent: n.ParentID, label: n.Label, kind: n.Kind, depth: n.Depth})
		children := g.Children(n.ID)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return rows
}

func (m inspectModel) Init() tea.Cmd {
	return m.layoutCmd(m.ticket)
}

// layoutCmd runs the pipeline for the current hidden set in the background.
func (m inspectModel) layoutCmd(ticket uint64) tea.Cmd {
	hidden := m.hiddenIDs()
	ctx, run := m.ctx, m.run
	return func() tea.Msg {
		res, err := run(ctx, hidden)
		return layoutDoneMsg{ticket: ticket, result: res, err: err}
	}
}

func (m inspectModel) hiddenIDs() []string {
	ids := make([]string, 0, len(m.hidden))
	for id, h := range m.hidden {
		if h {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (m inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case " ", "enter":
			if len(m.rows) == 0 {
				return m, nil
			}
			id := m.rows[m.cursor].id
			m.hidden[id] = !m.hidden[id]
			m.ticket = m.epoch.Next()
			m.pending = true
			m.status = ""
			return m, m.layoutCmd(m.ticket)
		case "w":
			if m.result == nil {
				m.status = "nothing to write"
				return m, nil
			}
			path, err := m.save(m.result.Layout)
			if err != nil {
				m.status = "write failed: " + err.Error()
			} else {
				m.status = "wrote " + path
			}
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 7
		if m.height < 5 {
			m.height = 5
		}
	case layoutDoneMsg:
		if !m.epoch.IsCurrent(msg.ticket) {
			return m, nil
		}
		m.pending = false
		m.err = msg.err
		m.result = msg.result
		m.records = nil
		if msg.result != nil {
			m.records = make(map[string]layout.Record, len(msg.result.Records))
			for _, r := range msg.result.Records {
				m.records[r.ID] = r
			}
		}
	}
	return m, nil
}

// effectivelyHidden reports whether row i or one of its ancestors is hidden.
func (m inspectModel) effectivelyHidden(i int) bool {
	index := make(map[string]string, len(m.rows))
	for _, r := range m.rows {
		index[r.id] = r.parent
	}
	for id := m.rows[i].id; id != ""; id = index[id] {
		if m.hidden[id] {
			return true
		}
	}
	return false
}

func (m inspectModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Inspect Workflow"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space toggle  w write  q quit"))
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.rows) {
		end = len(m.rows)
	}
	for i := m.offset; i < end; i++ {
		r := m.rows[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		mark := "●"
		if m.hidden[r.id] {
			mark = "○"
		}
		line := fmt.Sprintf("%s%s%s %s %s", cursor, strings.Repeat("  ", r.depth), mark, r.label, listDimStyle.Render(r.kind.String()))
		if rec, ok := m.records[r.id]; ok {
			line += listDimStyle.Render(fmt.Sprintf("  %g,%g %g×%g", rec.Position.X, rec.Position.Y, rec.Size.Width, rec.Size.Height))
		}

		switch {
		case i == m.cursor:
			b.WriteString(listSelectedStyle.Render(line))
		case m.effectivelyHidden(i):
			b.WriteString(listDimStyle.Render(line))
		default:
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m inspectModel) footer() string {
	var parts []string
	switch {
	case m.pending:
		parts = append(parts, "laying out…")
	case m.err != nil:
		parts = append(parts, listErrorStyle.Render("no diagram: "+errors.UserMessage(m.err)))
	case m.result != nil:
		l := m.result.Layout
		status := iconFresh
		if m.result.CacheHit {
			status = iconCached
		}
		parts = append(parts, fmt.Sprintf("%d nodes · %g×%g · %s · %s",
			len(l.Nodes), l.Width, l.Height, status, m.result.Stats.Total().Round(time.Microsecond)))
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	return listDimStyle.Render(fmt.Sprintf("  [%d/%d] ", m.cursor+1, len(m.rows)) + strings.Join(parts, "  "))
}
