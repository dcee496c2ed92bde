package catalog

import (
	"io"
	"slices"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/trueprice/internal/model"
)

// SalePoints is ordered, read-only sale point reference data.
type SalePoints struct {
	list []model.SalePoint
	byID map[string]int
}

// NewSalePoints indexes points by id. Later duplicates replace earlier ones.
func NewSalePoints(points []model.SalePoint) *SalePoints {
	s := &SalePoints{byID: make(map[string]int, len(points))}
	for _, p := range points {
		if p.ID == "" {
			continue
		}
		if i, ok := s.byID[p.ID]; ok {
			s.list[i] = p
			continue
		}
		s.byID[p.ID] = len(s.list)
		s.list = append(s.list, p)
	}
	return s
}

// Get returns the sale point with the given id.
func (s *SalePoints) Get(id string) (model.SalePoint, bool) {
	if s == nil {
		return model.SalePoint{}, false
	}
	i, ok := s.byID[id]
	if !ok {
		return model.SalePoint{}, false
	}
	return s.list[i], true
}

// All returns a copy of every sale point in load order.
func (s *SalePoints) All() []model.SalePoint {
	if s == nil {
		return nil
	}
	return slices.Clone(s.list)
}

// Len returns the number of sale points.
func (s *SalePoints) Len() int {
	if s == nil {
		return 0
	}
	return len(s.list)
}

type salePointFile struct {
	SalePoints []model.SalePoint `yaml:"sale_points"`
}

// LoadSalePoints parses a YAML document of the form
//
//	sale_points:
//	  - id: ch-epfl-klee
//	    name: EPFL Compass Group Le Klee Cafeteria
func LoadSalePoints(r io.Reader) (*SalePoints, error) {
	var f salePointFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return NewSalePoints(nil), nil
		}
		return nil, eris.Wrap(err, "catalog: decode sale points")
	}
	for i, p := range f.SalePoints {
		if p.ID == "" {
			return nil, eris.Errorf("catalog: sale point %d has no id", i)
		}
	}
	return NewSalePoints(f.SalePoints), nil
}

// DefaultSalePoints returns the built-in reference data.
func DefaultSalePoints() *SalePoints {
	return NewSalePoints([]model.SalePoint{
		{
			ID:           "ch-epfl-klee",
			Country:      "Switzerland",
			Organisation: "EPFL",
			Provider:     "Compass Group",
			SalePoint:    "Le Klee",
			Type:         "Cafeteria",
			Name:         "EPFL Compass Group Le Klee Cafeteria",
		},
		{
			ID:           "ch-epfl-vm#1",
			Country:      "Switzerland",
			Organisation: "EPFL",
			Provider:     "Compass Group",
			SalePoint:    "Rolex centre",
			Type:         "Vending-machine",
			Name:         "EPFL Compass Group Rolex centre Vending-machine 1",
		},
		{
			ID:           "ch-epfl-vm#2",
			Country:      "Switzerland",
			Organisation: "EPFL",
			Provider:     "Dallmayr",
			SalePoint:    "Rolex centre",
			Type:         "Vending-machine",
			Name:         "EPFL Dallmayr Rolex centre Vending-machine 2",
		},
		{
			ID:           "ch-epfl-vm#3",
			Country:      "Switzerland",
			Organisation: "EPFL",
			Provider:     "Dallmayr",
			SalePoint:    "Rolex centre",
			Type:         "Vending-machine",
			Name:         "EPFL Dallmayr Rolex centre Vending-machine 3",
		},
	})
}
