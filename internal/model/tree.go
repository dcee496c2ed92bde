package model

// Root is the top of an aggregation tree. Value is the sum of its children.
type Root struct {
	Name     string          `json:"name"`
	Value    float64         `json:"value"`
	Children []*CategoryNode `json:"children"`
}

// CategoryNode aggregates the indicators of one impact category.
type CategoryNode struct {
	Name     string           `json:"name"`
	Value    float64          `json:"value"`
	Children []*IndicatorLeaf `json:"children"`
}

// IndicatorLeaf carries the summed cost of one indicator plus the fields of
// the first detail that created it.
type IndicatorLeaf struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	ImpactDetail
}

// Category returns the child category with the given name, or nil.
func (r *Root) Category(name string) *CategoryNode {
	for _, c := range r.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Leaf returns the child indicator with the given name, or nil.
func (c *CategoryNode) Leaf(name string) *IndicatorLeaf {
	for _, l := range c.Children {
		if l.Name == name {
			return l
		}
	}
	return nil
}
