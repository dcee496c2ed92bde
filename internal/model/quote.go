package model

// Quote is the price breakdown shown for a selection.
type Quote struct {
	ServeID           string  `json:"serveId"`
	RetailPrice       float64 `json:"retailPrice"`
	ImpactCost        float64 `json:"impactCost"`
	CustomizationCost float64 `json:"customizationCost"`
	HiddenCost        float64 `json:"hiddenCost"`
	TruePrice         float64 `json:"truePrice"`
	Estimated         bool    `json:"estimated"`
}
