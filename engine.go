package forecastprep

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
)

// BottomUpEngine is the built-in HierarchyEngine. It sums series over the
// tree and reconciles forecasts by summing leaf forecasts through S.
type BottomUpEngine struct{}

// DefaultEngine returns the engine used when the caller does not bring one.
func DefaultEngine() HierarchyEngine { return BottomUpEngine{} }

type nodeKey struct {
	id string
	ds int64
}

// Aggregate sums y per level of spec and ds. Node ids are the level's
// values joined by "/"; nodes are ordered by level, then by id.
func (BottomUpEngine) Aggregate(f *Frame, spec [][]string) (*Hierarchy, error) {
	if len(spec) == 0 {
		return nil, fmt.Errorf("empty hierarchy spec")
	}
	if f.Len() == 0 {
		return nil, fmt.Errorf("no rows to aggregate")
	}
	ds, err := f.Times(ColDS)
	if err != nil {
		return nil, err
	}
	y, err := f.Floats(ColY)
	if err != nil {
		return nil, err
	}

	// node id of every row at every level
	levelIDs := make([][]string, len(spec))
	for l, cols := range spec {
		parts := make([][]string, len(cols))
		for k, col := range cols {
			if parts[k], err = f.Strings(col); err != nil {
				return nil, fmt.Errorf("level %q: %w", strings.Join(cols, IDSeparator), err)
			}
		}
		ids := make([]string, f.Len())
		for i := range ids {
			vals := make([]string, len(cols))
			for k := range cols {
				vals[k] = parts[k][i]
			}
			ids[i] = strings.Join(vals, IDSeparator)
		}
		levelIDs[l] = ids
	}

	bottom := levelIDs[len(spec)-1]
	leaves := uniqueSorted(bottom)
	leafCol := make(map[string]int, len(leaves))
	for j, l := range leaves {
		leafCol[l] = j
	}

	tags := make(Tags, len(spec))
	var rows []string
	rowOf := make(map[string]int)
	for l, cols := range spec {
		ids := uniqueSorted(levelIDs[l])
		tags[l] = Level{Key: strings.Join(cols, IDSeparator), IDs: ids}
		for _, id := range ids {
			if _, dup := rowOf[id]; dup {
				continue
			}
			rowOf[id] = len(rows)
			rows = append(rows, id)
		}
	}

	S := mat.NewDense(len(rows), len(leaves), nil)
	sums := make(map[nodeKey]float64)
	stamps := make(map[int64]time.Time)
	for i := 0; i < f.Len(); i++ {
		j := leafCol[bottom[i]]
		stamps[ds[i].UnixNano()] = ds[i]
		for l := range spec {
			id := levelIDs[l][i]
			S.Set(rowOf[id], j, 1)
			k := nodeKey{id: id, ds: ds[i].UnixNano()}
			if !math.IsNaN(y[i]) {
				sums[k] += y[i]
			} else if _, ok := sums[k]; !ok {
				sums[k] = 0
			}
		}
	}

	keys := make([]nodeKey, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		ra, rb := rowOf[keys[a].id], rowOf[keys[b].id]
		if ra != rb {
			return ra < rb
		}
		return keys[a].ds < keys[b].ds
	})
	out := NewFrame(ColDS, ColY)
	for _, k := range keys {
		out.AppendIndexedRow(k.id, map[string]any{ColDS: stamps[k.ds], ColY: sums[k]})
	}

	return &Hierarchy{
		Frame:  out,
		Matrix: &HierarchyMatrix{Rows: rows, Leaves: leaves, S: S},
		Tags:   tags,
	}, nil
}

// Reconcile appends "<model>/BottomUp" for every model column: at each ds
// the leaf forecasts are multiplied by S and every forecast row receives
// the value of its node. base is not read by the bottom-up method.
func (BottomUpEngine) Reconcile(forecasts, base *Frame, m *HierarchyMatrix, tags Tags) (*Frame, error) {
	if m == nil || m.S == nil {
		return nil, fmt.Errorf("missing hierarchy matrix")
	}
	ids, indexed, err := forecasts.ids()
	if err != nil {
		return nil, err
	}
	var out *Frame
	if indexed {
		out = forecasts.Copy()
	} else if out, err = forecasts.SetIndex(ColUniqueID); err != nil {
		return nil, err
	}
	ds, err := forecasts.Times(ColDS)
	if err != nil {
		return nil, err
	}

	rowOf := make([]int, len(ids))
	for i, id := range ids {
		if rowOf[i] = m.RowIndex(id); rowOf[i] < 0 {
			return nil, fmt.Errorf("forecast for %q: node not in hierarchy", id)
		}
	}
	steps := make(map[int64][]int)
	var order []int64
	for i, t := range ds {
		k := t.UnixNano()
		if _, ok := steps[k]; !ok {
			order = append(order, k)
		}
		steps[k] = append(steps[k], i)
	}

	nodes, leaves := m.S.Dims()
	for _, model := range forecasts.Columns() {
		if reservedColumns[model] {
			continue
		}
		raw, err := forecasts.Floats(model)
		if err != nil {
			return nil, err
		}
		reconciled := make([]any, len(ids))
		for _, k := range order {
			bottom := mat.NewVecDense(leaves, nil)
			seen := make([]bool, leaves)
			for _, i := range steps[k] {
				if j := m.LeafIndex(ids[i]); j >= 0 {
					bottom.SetVec(j, raw[i])
					seen[j] = true
				}
			}
			for j, ok := range seen {
				if !ok {
					return nil, fmt.Errorf("model %q: no forecast for leaf %q at %s", model, m.Leaves[j], ds[steps[k][0]].Format(time.RFC3339))
				}
			}
			coherent := mat.NewVecDense(nodes, nil)
			coherent.MulVec(m.S, bottom)
			for _, i := range steps[k] {
				reconciled[i] = coherent.AtVec(rowOf[i])
			}
		}
		if err := out.AddColumn(model+IDSeparator+MethodBottomUp, reconciled); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func uniqueSorted(v []string) []string {
	seen := make(map[string]bool, len(v))
	var out []string
	for _, s := range v {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
