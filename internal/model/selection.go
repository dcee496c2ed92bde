package model

// Selection is the set of facets a user has chosen.
type Selection struct {
	Recipe      Recipe   `json:"recipe"`
	SalePointID string   `json:"salePointId"`
	IsDecaf     bool     `json:"isDecaf"`
	MilkType    MilkType `json:"milkType"`
	SugarLevel  int      `json:"sugarLevel"`
}

// DefaultSelection returns the neutral starting selection.
func DefaultSelection() Selection {
	return Selection{
		Recipe:   RecipeNone,
		IsDecaf:  true,
		MilkType: MilkNone,
	}
}

// HasRecipe reports whether a recipe is selected.
func (s Selection) HasRecipe() bool {
	return s.Recipe != RecipeNone
}

// HasSalePoint reports whether a sale point is selected.
func (s Selection) HasSalePoint() bool {
	return s.SalePointID != ""
}
