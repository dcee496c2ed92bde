package model

import "strings"

// Recipe identifies a base coffee recipe.
type Recipe string

const (
	RecipeNone                  Recipe = ""
	RecipeRistretto             Recipe = "ris"
	RecipeEspresso              Recipe = "esp"
	RecipeCafe                  Recipe = "caf"
	RecipeCappuccino            Recipe = "cap"
	RecipeRenverse              Recipe = "ren"
	RecipeLatteMacchiatoLegacy  Recipe = "lama"
	RecipeRenverseVariant       Recipe = "renv"
	RecipeMocaccino             Recipe = "moc"
	RecipeCappuccinoVanilla     Recipe = "capva"
	RecipeLatteMacchiato        Recipe = "latmac"
	RecipeLatteMacchiatoVanilla Recipe = "latmacva"
	RecipeEspressoMacchiato     Recipe = "espmoc"
	RecipeCafeMacchiato         Recipe = "cafmoc"
	RecipeSugar                 Recipe = "sug"
)

// Recipes lists every known recipe in display order.
var Recipes = []Recipe{
	RecipeRistretto,
	RecipeEspresso,
	RecipeCafe,
	RecipeCappuccino,
	RecipeRenverse,
	RecipeLatteMacchiatoLegacy,
	RecipeRenverseVariant,
	RecipeMocaccino,
	RecipeCappuccinoVanilla,
	RecipeLatteMacchiato,
	RecipeLatteMacchiatoVanilla,
	RecipeEspressoMacchiato,
	RecipeCafeMacchiato,
	RecipeSugar,
}

// ParseRecipe normalizes s and reports whether it names a known recipe.
func ParseRecipe(s string) (Recipe, bool) {
	r := Recipe(strings.ToLower(strings.TrimSpace(s)))
	if r == RecipeNone {
		return RecipeNone, false
	}
	return r, r.Valid()
}

// Valid reports whether r is a known, non-empty recipe.
func (r Recipe) Valid() bool {
	switch r {
	case RecipeRistretto, RecipeEspresso, RecipeCafe, RecipeCappuccino,
		RecipeRenverse, RecipeLatteMacchiatoLegacy, RecipeRenverseVariant,
		RecipeMocaccino, RecipeCappuccinoVanilla, RecipeLatteMacchiato,
		RecipeLatteMacchiatoVanilla, RecipeEspressoMacchiato, RecipeCafeMacchiato,
		RecipeSugar:
		return true
	case RecipeNone:
		return false
	}
	return false
}

// RecipeDetail holds display data for a recipe.
type RecipeDetail struct {
	Name  string `json:"name" yaml:"name"`
	Image string `json:"img" yaml:"img"`
}

// Detail returns the display data for r. Unknown recipes get their key as name.
func (r Recipe) Detail() RecipeDetail {
	switch r {
	case RecipeRistretto:
		return RecipeDetail{Name: "Ristretto", Image: "Ristretto.svg"}
	case RecipeEspresso:
		return RecipeDetail{Name: "Espresso", Image: "Espresso.svg"}
	case RecipeCafe:
		return RecipeDetail{Name: "Café", Image: "Café.svg"}
	case RecipeCappuccino:
		return RecipeDetail{Name: "Cappuccino", Image: "Cappuccino.svg"}
	case RecipeRenverse, RecipeRenverseVariant:
		return RecipeDetail{Name: "Renversé", Image: "Renversé.svg"}
	case RecipeLatteMacchiatoLegacy, RecipeLatteMacchiato:
		return RecipeDetail{Name: "Latte Macchiato", Image: "Latte_Macchiato.svg"}
	case RecipeMocaccino:
		return RecipeDetail{Name: "Mocaccino", Image: "Mocaccino.svg"}
	case RecipeCappuccinoVanilla:
		return RecipeDetail{Name: "Cappuccino vanille", Image: "Cappuccino_vanille.svg"}
	case RecipeLatteMacchiatoVanilla:
		return RecipeDetail{Name: "Latte Macchiato vanille", Image: "Latte_Macchiato_vanille.svg"}
	case RecipeEspressoMacchiato:
		return RecipeDetail{Name: "Espresso Macchiato", Image: "Espresso_Macchiato.svg"}
	case RecipeCafeMacchiato:
		return RecipeDetail{Name: "Café Macchiato", Image: "Café_Macchiato.svg"}
	case RecipeSugar:
		return RecipeDetail{Name: "Sugar"}
	case RecipeNone:
		return RecipeDetail{}
	}
	return RecipeDetail{Name: string(r)}
}

// MilkType identifies the milk added to a coffee.
type MilkType string

const (
	MilkNone           MilkType = "none"
	MilkCow            MilkType = "cow"
	MilkAlmond         MilkType = "almond"
	MilkSoy            MilkType = "soy"
	MilkLactoseFreeCow MilkType = "clf"
	MilkOat            MilkType = "oat"
)

// MilkTypes lists every milk type in display order.
var MilkTypes = []MilkType{MilkNone, MilkCow, MilkAlmond, MilkSoy, MilkLactoseFreeCow, MilkOat}

// ParseMilkType normalizes s. An empty string is MilkNone.
func ParseMilkType(s string) (MilkType, bool) {
	m := MilkType(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return MilkNone, true
	}
	return m, m.Valid()
}

// Valid reports whether m is a known milk type.
func (m MilkType) Valid() bool {
	switch m {
	case MilkNone, MilkCow, MilkAlmond, MilkSoy, MilkLactoseFreeCow, MilkOat:
		return true
	}
	return false
}

// DisplayName returns the human-readable milk name.
func (m MilkType) DisplayName() string {
	switch m {
	case MilkNone:
		return "None"
	case MilkCow:
		return "Cow"
	case MilkAlmond:
		return "Almond"
	case MilkSoy:
		return "Soy"
	case MilkLactoseFreeCow:
		return "Lactose-free cow"
	case MilkOat:
		return "Oat"
	}
	return string(m)
}

// CatalogEntry is one orderable coffee variant at a specific sale point.
type CatalogEntry struct {
	ServeID       string   `json:"serveId"`
	RecipeID      string   `json:"recipeId"`
	Recipe        Recipe   `json:"mainRecipe"`
	RetailName    string   `json:"retailName"`
	SalePointID   string   `json:"salePointId"`
	CoffeeDetails string   `json:"coffeeDetails,omitempty"`
	Unit          string   `json:"unit,omitempty"`
	MarketPrice   float64  `json:"marketPrice"`
	TrueCost      *float64 `json:"trueCost,omitempty"`
	TruePrice     *float64 `json:"truePrice,omitempty"`
	IsDecaf       bool     `json:"isDecaf"`
	HasMilk       bool     `json:"hasMilk"`
	MilkType      MilkType `json:"milkType"`
}

// SalePoint is static reference data for a point of sale.
type SalePoint struct {
	ID           string `json:"id" yaml:"id"`
	Country      string `json:"country" yaml:"country"`
	Organisation string `json:"organisation" yaml:"organisation"`
	Provider     string `json:"provider" yaml:"provider"`
	SalePoint    string `json:"salePoint" yaml:"sale_point"`
	Type         string `json:"type" yaml:"type"`
	Name         string `json:"name" yaml:"name"`
}
