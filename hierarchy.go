package forecastprep

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// SpecFromLevels turns hierarchy levels [L1..Ln] into the cumulative spec
// [[Total], [Total L1], ..., [Total L1..Ln]].
func SpecFromLevels(levels []string) [][]string {
	spec := [][]string{{ColTotal}}
	for i := range levels {
		path := append([]string{ColTotal}, levels[:i+1]...)
		spec = append(spec, path)
	}
	return spec
}

// Reconciler runs the hierarchical steps through an engine. A Reconciler
// without an engine reports ErrUnavailableCapability from every call.
type Reconciler struct {
	engine HierarchyEngine
	logger *zap.Logger
}

// NewReconciler captures the engine once; pass nil when no engine is
// available. A nil logger discards logs.
func NewReconciler(engine HierarchyEngine, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{engine: engine, logger: logger}
}

// Available reports whether hierarchical operations can run.
func (r *Reconciler) Available() bool { return r.engine != nil }

func (r *Reconciler) unavailable(op string) error {
	r.logger.Warn("hierarchical reconciliation engine is not configured", zap.String("operation", op))
	return fmt.Errorf("%s: %w", op, ErrUnavailableCapability)
}

// BuildHierarchy prepares a wide table for aggregation and aggregates it
// over s.Hierarchy: order/target become ds/y, grouping columns become
// strings and a leading Total column roots the tree.
func (r *Reconciler) BuildHierarchy(f *Frame, s Settings) (*Hierarchy, error) {
	if r.engine == nil {
		return nil, r.unavailable("build hierarchy")
	}
	spec := SpecFromLevels(s.Hierarchy)

	df := f.Rename(map[string]string{s.OrderBy: ColDS, s.Target: ColY})
	ds, err := df.Times(ColDS)
	if err != nil {
		return nil, fmt.Errorf("order column %q: %w", s.OrderBy, err)
	}
	if err := df.AddColumn(ColDS, timeCells(ds)); err != nil {
		return nil, err
	}
	for _, col := range s.GroupBy {
		vals, err := df.Strings(col)
		if err != nil {
			return nil, err
		}
		if err := df.AddColumn(col, stringCells(vals)); err != nil {
			return nil, err
		}
	}
	total := make([]any, df.Len())
	for i := range total {
		total[i] = TotalValue
	}
	if err := df.InsertColumn(0, ColTotal, total); err != nil {
		return nil, err
	}

	h, err := r.engine.Aggregate(df, spec)
	if err != nil {
		return nil, fmt.Errorf("aggregate hierarchy: %w", err)
	}
	r.logger.Debug("hierarchy built",
		zap.Int("nodes", len(h.Matrix.Rows)),
		zap.Int("leaves", len(h.Matrix.Leaves)),
		zap.Int("levels", len(h.Tags)))
	return h, nil
}

// Reconcile makes forecasts coherent bottom-up and unpacks the result to
// leaf series with their original names.
func (r *Reconciler) Reconcile(base, forecasts *Frame, m *HierarchyMatrix, tags Tags) (*Frame, error) {
	if r.engine == nil {
		return nil, r.unavailable("reconcile forecasts")
	}
	reconciled, err := r.engine.Reconcile(forecasts, base, m, tags)
	if err != nil {
		return nil, fmt.Errorf("reconcile forecasts: %w", err)
	}
	return UnpackReconciled(reconciled, m)
}

// UnpackReconciled turns a reconciled table back into a plain results
// table. The first forecast column without the BottomUp marker (the raw
// forecast) is dropped, rows above the leaf level are removed and the
// "total/" root prefix is stripped from the remaining ids.
func UnpackReconciled(reconciled *Frame, m *HierarchyMatrix) (*Frame, error) {
	out := reconciled
	for _, col := range reconciled.Columns() {
		if col == ColDS || col == ColY || col == ColUniqueID {
			continue
		}
		if !strings.Contains(col, MethodBottomUp) {
			out = reconciled.Drop(col)
			break
		}
	}

	ids, indexed, err := out.ids()
	if err != nil {
		return nil, err
	}
	leaves := make(map[string]bool, len(m.Leaves))
	for _, l := range m.Leaves {
		leaves[l] = true
	}
	keep := make([]string, 0, len(ids))
	out = out.Filter(func(i int) bool {
		if !leaves[ids[i]] {
			return false
		}
		keep = append(keep, strings.ReplaceAll(ids[i], TotalValue+IDSeparator, ""))
		return true
	})

	if indexed {
		if err := out.SetIndexValues(keep); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := out.AddColumn(ColUniqueID, stringCells(keep)); err != nil {
		return nil, err
	}
	return out, nil
}
