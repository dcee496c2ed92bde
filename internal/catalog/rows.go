package catalog

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/trueprice/internal/fetcher"
	"github.com/sells-group/trueprice/internal/model"
)

// Column names of the catalog table.
const (
	ColServeID       = "serveId"
	ColRecipeID      = "recipeId"
	ColRetailName    = "retailName"
	ColSalePointID   = "salePointId"
	ColCoffeeDetails = "coffeeDetails"
	ColUnit          = "unit"
	ColMarketPrice   = "marketPrice"
	ColTrueCost      = "trueCost"
	ColTruePrice     = "truePrice"
	ColIsDecaf       = "isDecaf"
	ColHasMilk       = "hasMilk"
	ColMilkType      = "milkType"
	ColMainRecipe    = "mainRecipe"
)

// ParseStats counts what happened to the data rows of a table.
type ParseStats struct {
	Rows    int
	Kept    int
	Dropped int
}

type columnIndex map[string]int

func newColumnIndex(header []string) (columnIndex, error) {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		idx[strings.ToLower(h)] = i
	}
	for _, req := range []string{ColServeID, ColRecipeID} {
		if _, ok := idx[strings.ToLower(req)]; !ok {
			return nil, eris.Errorf("catalog: missing required column %q", req)
		}
	}
	return idx, nil
}

func (c columnIndex) get(row []string, col string) string {
	i, ok := c[strings.ToLower(col)]
	if !ok || i >= len(row) {
		return ""
	}
	v := strings.TrimSpace(row[i])
	if strings.EqualFold(v, "null") {
		return ""
	}
	return v
}

// ParseRecords converts a table whose first row is the header into catalog
// entries. Rows that cannot be coerced are logged and dropped.
func ParseRecords(records [][]string) ([]model.CatalogEntry, ParseStats, error) {
	var stats ParseStats
	if len(records) == 0 {
		return nil, stats, eris.New("catalog: empty table")
	}
	idx, err := newColumnIndex(records[0])
	if err != nil {
		return nil, stats, err
	}

	var entries []model.CatalogEntry
	for i, row := range records[1:] {
		stats.Rows++
		e, err := parseRow(idx, row)
		if err != nil {
			stats.Dropped++
			zap.L().Warn("catalog: dropping row",
				zap.Int("row", i+2),
				zap.Error(err),
			)
			continue
		}
		stats.Kept++
		entries = append(entries, e)
	}
	return entries, stats, nil
}

func parseRow(idx columnIndex, row []string) (model.CatalogEntry, error) {
	e := model.CatalogEntry{
		ServeID:       idx.get(row, ColServeID),
		RecipeID:      idx.get(row, ColRecipeID),
		RetailName:    idx.get(row, ColRetailName),
		SalePointID:   idx.get(row, ColSalePointID),
		CoffeeDetails: idx.get(row, ColCoffeeDetails),
		Unit:          idx.get(row, ColUnit),
	}
	if e.ServeID == "" {
		return e, eris.New("missing serveId")
	}
	if e.RecipeID == "" {
		return e, eris.Errorf("serve %s: missing recipeId", e.ServeID)
	}

	key := idx.get(row, ColMainRecipe)
	if key == "" {
		key = e.RecipeID
	}
	recipe, ok := model.ParseRecipe(key)
	if !ok {
		return e, eris.Errorf("serve %s: unknown recipe %q", e.ServeID, key)
	}
	e.Recipe = recipe

	var err error
	if e.MarketPrice, err = parseFloat(idx.get(row, ColMarketPrice)); err != nil {
		return e, eris.Wrapf(err, "serve %s: marketPrice", e.ServeID)
	}
	if e.MarketPrice < 0 {
		return e, eris.Errorf("serve %s: negative marketPrice %v", e.ServeID, e.MarketPrice)
	}
	if e.TrueCost, err = parseOptionalFloat(idx.get(row, ColTrueCost)); err != nil {
		return e, eris.Wrapf(err, "serve %s: trueCost", e.ServeID)
	}
	if e.TruePrice, err = parseOptionalFloat(idx.get(row, ColTruePrice)); err != nil {
		return e, eris.Wrapf(err, "serve %s: truePrice", e.ServeID)
	}
	if e.IsDecaf, err = parseBool(idx.get(row, ColIsDecaf)); err != nil {
		return e, eris.Wrapf(err, "serve %s: isDecaf", e.ServeID)
	}
	if e.HasMilk, err = parseBool(idx.get(row, ColHasMilk)); err != nil {
		return e, eris.Wrapf(err, "serve %s: hasMilk", e.ServeID)
	}

	milk, ok := model.ParseMilkType(idx.get(row, ColMilkType))
	if !ok {
		return e, eris.Errorf("serve %s: unknown milk type %q", e.ServeID, idx.get(row, ColMilkType))
	}
	if !e.HasMilk {
		milk = model.MilkNone
	}
	e.MilkType = milk
	return e, nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse number %q", s)
	}
	return v, nil
}

func parseOptionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := parseFloat(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "false", "0", "no", "n":
		return false, nil
	case "true", "1", "yes", "y":
		return true, nil
	}
	return false, eris.Errorf("parse boolean %q", s)
}

// ReadCSV streams a delimited catalog table from r.
func ReadCSV(ctx context.Context, r io.Reader, opts fetcher.CSVOptions) ([]model.CatalogEntry, ParseStats, error) {
	opts.HasHeader = false
	opts.HeaderCh = nil
	rowCh, errCh := fetcher.StreamCSV(ctx, r, opts)

	var records [][]string
	for row := range rowCh {
		records = append(records, row)
	}
	if err := <-errCh; err != nil {
		return nil, ParseStats{}, eris.Wrap(err, "catalog: read csv")
	}
	return ParseRecords(records)
}

// ReadXLSX reads a catalog table from an XLSX workbook on disk.
func ReadXLSX(path string, opts fetcher.XLSXOptions) ([]model.CatalogEntry, ParseStats, error) {
	rows, err := fetcher.ReadXLSX(path, opts)
	if err != nil {
		return nil, ParseStats{}, eris.Wrap(err, "catalog: read xlsx")
	}
	return ParseRecords(rows)
}
