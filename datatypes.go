package forecastprep

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// Reserved column names of the normalized series format
const (
	ColUniqueID = "unique_id"
	ColDS       = "ds"
	ColY        = "y"
	ColCutoff   = "cutoff"

	// Root of every hierarchy spec and the value stored in its column
	ColTotal   = "Total"
	TotalValue = "total"

	// Separator used to join grouping values into a unique_id
	IDSeparator = "/"

	// Placeholder group_by used by callers that have no real grouping
	NoGroupBy = "__group_by"

	// Suffix marker the bottom-up reconciler puts on its columns
	MethodBottomUp = "BottomUp"

	DefaultFrequency = "D"
)

var (
	ErrUnavailableCapability = errors.New("hierarchical reconciliation is not available")
	ErrCoercion              = errors.New("value cannot be coerced")
	ErrUnknownColumn         = errors.New("unknown column")
	ErrLengthMismatch        = errors.New("length mismatch")
	ErrInvalidFrequency      = errors.New("invalid frequency")
)

// Settings describes how a wide table maps onto the normalized format.
// It is shared by the format converter and the hierarchy builder.
type Settings struct {
	// Period code used for resampling, e.g. "D", "H", "MS"
	Frequency string `yaml:"frequency" envconfig:"FREQUENCY" default:"D" validate:"required"`
	// Grouping columns, joined into unique_id in this order
	GroupBy []string `yaml:"group_by" envconfig:"GROUP_BY"`
	// Time column
	OrderBy string `yaml:"order_by" envconfig:"ORDER_BY" validate:"required"`
	// Target column
	Target string `yaml:"target" envconfig:"TARGET" validate:"required"`
	// Hierarchy levels, top to bottom
	Hierarchy []string `yaml:"hierarchy" envconfig:"HIERARCHY"`
	// Numeric exogenous columns passed through normalization
	ExogVars []string `yaml:"exog_vars" envconfig:"EXOG_VARS"`
}

// grouped reports whether rows should be split into groups and resampled.
func (s Settings) grouped() bool {
	if len(s.GroupBy) == 0 {
		return false
	}
	return !(len(s.GroupBy) == 1 && s.GroupBy[0] == NoGroupBy)
}

// HierarchyMatrix is the summation matrix of a hierarchy.
type HierarchyMatrix struct {
	// Node ids, aggregates first then leaves
	Rows []string
	// Leaf ids, one per column
	Leaves []string
	// S[i][j] is 1 when leaf j rolls up into node i
	S *mat.Dense
}

// RowIndex returns the row of a node id, or -1.
func (m *HierarchyMatrix) RowIndex(id string) int {
	for i, r := range m.Rows {
		if r == id {
			return i
		}
	}
	return -1
}

// LeafIndex returns the column of a leaf id, or -1.
func (m *HierarchyMatrix) LeafIndex(id string) int {
	for j, l := range m.Leaves {
		if l == id {
			return j
		}
	}
	return -1
}

// Level is one hierarchy level: its key (e.g. "Total/region") and node ids.
type Level struct {
	Key string
	IDs []string
}

// Tags lists the node ids of every level in spec order.
type Tags []Level

// Hierarchy is the output of tree aggregation.
type Hierarchy struct {
	// Aggregated series indexed by unique_id with ds and y columns
	Frame  *Frame
	Matrix *HierarchyMatrix
	Tags   Tags
}

// HierarchyEngine aggregates series over a hierarchy and reconciles
// forecasts made for its nodes.
type HierarchyEngine interface {
	// Aggregate sums y over every level of spec and builds the matrix.
	Aggregate(f *Frame, spec [][]string) (*Hierarchy, error)
	// Reconcile adds reconciled forecast columns to forecasts.
	Reconcile(forecasts, base *Frame, m *HierarchyMatrix, tags Tags) (*Frame, error)
}

// ModelScore is the score of one forecast column.
type ModelScore struct {
	Model string
	Score float64
}

// Accuracy holds model scores in column order.
type Accuracy []ModelScore

// Metric scores predicted values against actual values.
type Metric func(actual, predicted []float64) (float64, error)
