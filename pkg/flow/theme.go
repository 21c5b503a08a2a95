package flow

import (
	"math"

	"github.com/matzehuels/taskgraph/pkg/errors"
)

// Default theme values in pixels.
const (
	DefaultHeaderHeight   = 40.0
	DefaultContentPadding = 16.0
	DefaultBorderWidth    = 1.0
	DefaultMinNodeWidth   = 240.0
	DefaultMinNodeHeight  = 64.0
	DefaultNodeSpacing    = 24.0
)

// Theme holds the visual constants sizing depends on. All values are pixels.
type Theme struct {
	HeaderHeight   float64 `json:"header_height" toml:"header_height"`
	ContentPadding float64 `json:"content_padding" toml:"content_padding"`
	BorderWidth    float64 `json:"border_width" toml:"border_width"`
	MinNodeWidth   float64 `json:"min_node_width" toml:"min_node_width"`
	MinNodeHeight  float64 `json:"min_node_height" toml:"min_node_height"`
	NodeSpacing    float64 `json:"node_spacing" toml:"node_spacing"`
}

// DefaultTheme returns the standard theme.
func DefaultTheme() Theme {
	return Theme{
		HeaderHeight:   DefaultHeaderHeight,
		ContentPadding: DefaultContentPadding,
		BorderWidth:    DefaultBorderWidth,
		MinNodeWidth:   DefaultMinNodeWidth,
		MinNodeHeight:  DefaultMinNodeHeight,
		NodeSpacing:    DefaultNodeSpacing,
	}
}

// IsZero reports whether no theme value has been set.
func (t Theme) IsZero() bool { return t == Theme{} }

// Inset is the distance from a container's outer edge to its content area on
// the sides and bottom: padding plus border.
func (t Theme) Inset() float64 { return t.ContentPadding + t.BorderWidth }

// HChrome is the horizontal space a non-empty container adds around its children.
func (t Theme) HChrome() float64 { return 2 * t.Inset() }

// VChrome is the vertical space a non-empty container adds around its children.
func (t Theme) VChrome() float64 { return t.HeaderHeight + 2*t.Inset() }

// EmptyHeight is the height of a container with no visible children:
// the header bar and its border.
func (t Theme) EmptyHeight() float64 { return t.HeaderHeight + 2*t.BorderWidth }

// Validate checks that every value is finite and non-negative and that the
// minimum node dimensions are positive.
func (t Theme) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"header_height", t.HeaderHeight},
		{"content_padding", t.ContentPadding},
		{"border_width", t.BorderWidth},
		{"min_node_width", t.MinNodeWidth},
		{"min_node_height", t.MinNodeHeight},
		{"node_spacing", t.NodeSpacing},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "theme %s must be a finite non-negative number, got %v", f.name, f.v)
		}
	}
	if t.MinNodeWidth == 0 || t.MinNodeHeight == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "theme min_node_width and min_node_height must be positive")
	}
	return nil
}
