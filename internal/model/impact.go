package model

// ImpactDetail is a single indicator measurement within a stage impact.
type ImpactDetail struct {
	Indicator   string  `json:"indicators"`
	Unit        string  `json:"unit"`
	ImpactValue float64 `json:"impactValue"`
	CostValue   float64 `json:"costValue"`
	Definition  string  `json:"impactDefinition"`
	Reference   string  `json:"reference"`
}

// StageImpact groups indicator details for one production stage and impact
// category. A nil Details means the record carried no details at all.
type StageImpact struct {
	Stage          string         `json:"stage"`
	ImpactCategory string         `json:"impactCategory"`
	ImpactValue    float64        `json:"impactValue"`
	CostValue      float64        `json:"costValue"`
	Details        []ImpactDetail `json:"details"`
}

// CoffeeImpact is the impact record envelope published per catalog entry.
type CoffeeImpact struct {
	ServeID     string        `json:"serveId"`
	SalePointID string        `json:"salePointId"`
	ProductID   string        `json:"productId"`
	ProductName string        `json:"productName"`
	Impacts     []StageImpact `json:"impacts"`
}

// FlatImpact is one row of a flat impact list with no stage nesting.
type FlatImpact struct {
	ImpactCategory string  `json:"impactCategory"`
	Indicator      string  `json:"indicators"`
	Unit           string  `json:"unit"`
	ImpactValue    float64 `json:"impactValue"`
	CostValue      float64 `json:"costValue"`
	Definition     string  `json:"impactDefinition"`
	Reference      string  `json:"reference"`
}
