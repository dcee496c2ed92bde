// Package impact turns per-entry impact records into stage, category and
// indicator trees and loads those records from the data host.
package impact

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/trueprice/internal/model"
)

// FlatRootName names the root of a tree built from a flat impact list.
const FlatRootName = "root"

// Breakdown holds one tree per production stage.
type Breakdown struct {
	Roots  map[string]*model.Root `json:"roots"`
	Stages []string               `json:"stages"`
}

// Root returns the tree for stage, or nil.
func (b *Breakdown) Root(stage string) *model.Root {
	if b == nil {
		return nil
	}
	return b.Roots[stage]
}

// Total sums the value of every stage.
func (b *Breakdown) Total() float64 {
	if b == nil {
		return 0
	}
	var total float64
	for _, stage := range b.Stages {
		total += b.Roots[stage].Value
	}
	return total
}

// Empty reports whether no stage contributed.
func (b *Breakdown) Empty() bool {
	return b == nil || len(b.Stages) == 0
}

// Aggregate groups impacts by stage, then category, then indicator, summing
// cost values. Records without a positive impact value are ignored.
func Aggregate(impacts []model.StageImpact) *Breakdown {
	b := &Breakdown{Roots: make(map[string]*model.Root)}

	for i, si := range impacts {
		if !(si.ImpactValue > 0) {
			continue
		}
		if si.Stage == "" || si.Details == nil {
			zap.L().Warn("impact: skipping malformed record",
				zap.Int("index", i),
				zap.String("stage", si.Stage),
				zap.String("category", si.ImpactCategory),
				zap.Bool("has_details", si.Details != nil),
			)
			continue
		}

		root, ok := b.Roots[si.Stage]
		if !ok {
			root = &model.Root{Name: si.Stage}
			b.Roots[si.Stage] = root
			b.Stages = append(b.Stages, si.Stage)
		}

		cat := ensureCategory(root, si.ImpactCategory)
		for _, d := range si.Details {
			addLeaf(cat, d.Indicator, cost(d.CostValue), d)
		}
	}

	for _, root := range b.Roots {
		recompute(root)
	}
	return b
}

// AggregateFlat builds a single tree from a flat list, summing impact values
// per category and indicator.
func AggregateFlat(records []model.FlatImpact) *model.Root {
	root := &model.Root{Name: FlatRootName}
	for i, r := range records {
		if r.ImpactCategory == "" || r.Indicator == "" {
			zap.L().Warn("impact: skipping flat record",
				zap.Int("index", i),
				zap.String("category", r.ImpactCategory),
				zap.String("indicator", r.Indicator),
			)
			continue
		}
		cat := ensureCategory(root, r.ImpactCategory)
		addLeaf(cat, r.Indicator, cost(r.ImpactValue), model.ImpactDetail{
			Indicator:   r.Indicator,
			Unit:        r.Unit,
			ImpactValue: r.ImpactValue,
			CostValue:   r.CostValue,
			Definition:  r.Definition,
			Reference:   r.Reference,
		})
	}
	recompute(root)
	return root
}

// IndicatorsFor returns the flat records of one category in input order.
func IndicatorsFor(category string, records []model.FlatImpact) []model.FlatImpact {
	var out []model.FlatImpact
	for _, r := range records {
		if r.ImpactCategory == category {
			out = append(out, r)
		}
	}
	return out
}

// RecordKey maps a serve id to the file name stem of its impact record.
func RecordKey(serveID string) string {
	return strings.ReplaceAll(serveID, "#", "-")
}

func ensureCategory(root *model.Root, name string) *model.CategoryNode {
	if c := root.Category(name); c != nil {
		return c
	}
	c := &model.CategoryNode{Name: name}
	root.Children = append(root.Children, c)
	return c
}

func addLeaf(cat *model.CategoryNode, name string, value float64, d model.ImpactDetail) {
	if leaf := cat.Leaf(name); leaf != nil {
		leaf.Value += value
	} else {
		cat.Children = append(cat.Children, &model.IndicatorLeaf{
			Name:         name,
			Value:        value,
			ImpactDetail: d,
		})
	}
	cat.Value += value
}

func recompute(root *model.Root) {
	root.Value = 0
	for _, c := range root.Children {
		root.Value += c.Value
	}
}

func cost(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
