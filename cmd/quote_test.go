package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/trueprice/internal/config"
	"github.com/sells-group/trueprice/internal/model"
)

const cmdCatalogCSV = `serveId,recipeId,retailName,salePointId,marketPrice,isDecaf,hasMilk,milkType,mainRecipe
ch-epfl-klee#esp,esp,Espresso,ch-epfl-klee,2.50,false,false,none,esp
ch-epfl-klee#cap-oat,cap,Cappuccino,ch-epfl-klee,3.50,false,true,oat,cap
ch-epfl-klee#cap-cow,cap,Cappuccino,ch-epfl-klee,3.20,false,true,cow,cap
`

const cmdImpactJSON = `[{"stage":"Cultivation","impactCategory":"Environment","impactValue":1,
 "details":[{"indicators":"Land use","costValue":0.4}]}]`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.csv"), []byte(cmdCatalogCSV), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "impacts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "impacts", "ch-epfl-klee-esp.json"), []byte(cmdImpactJSON), 0o644))

	return &config.Config{
		Catalog: config.CatalogConfig{Source: filepath.Join(dir, "catalog.csv"), Delimiter: ","},
		Impact:  config.ImpactConfig{BaseURL: filepath.Join(dir, "impacts"), CacheTTLHours: 1},
		Fetch:   config.FetchConfig{TimeoutSecs: 5, MaxAttempts: 1},
		Selection: config.SelectionConfig{
			MaxSugarLevel: 5,
		},
		Pricing: config.PricingConfig{
			Caffeine:      0.5,
			SugarPerLevel: 0.1,
			Milk:          config.MilkRateConfig{Cow: 0.3, Almond: 0.3, Soy: 0.3, LactoseFreeCow: 0.3, Oat: 0.4},
		},
		Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(dir, "trueprice.db")},
	}
}

func TestRunQuote_WithImpactRecord(t *testing.T) {
	c := testConfig(t)
	env, err := initEnv(context.Background(), c, "quote", true)
	require.NoError(t, err)
	defer env.Close()

	res, err := runQuote(context.Background(), env, 5, quoteOptions{
		Recipe:    "esp",
		SalePoint: "ch-epfl-klee",
		Sugar:     2,
		Breakdown: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "ch-epfl-klee#esp", res.Entry.ServeID)
	assert.False(t, res.Quote.Estimated)
	assert.InDelta(t, 0.4, res.Quote.ImpactCost, 1e-9)
	assert.InDelta(t, 0.2, res.Quote.CustomizationCost, 1e-9)
	assert.InDelta(t, 3.1, res.Quote.TruePrice, 1e-9)
	require.NotNil(t, res.Breakdown)
	assert.Equal(t, []string{"Cultivation"}, res.Breakdown.Stages)

	var buf bytes.Buffer
	require.NoError(t, printQuote(&buf, res))
	assert.Contains(t, buf.String(), "True price:")
	assert.Contains(t, buf.String(), "Land use")
}

func TestRunQuote_EstimatesWithoutRecord(t *testing.T) {
	env, err := initEnv(context.Background(), testConfig(t), "quote", false)
	require.NoError(t, err)

	res, err := runQuote(context.Background(), env, 5, quoteOptions{
		Recipe:    "cap",
		SalePoint: "ch-epfl-klee",
		Milk:      "cow",
	})
	require.NoError(t, err)

	assert.Equal(t, "ch-epfl-klee#cap-cow", res.Entry.ServeID)
	assert.True(t, res.Quote.Estimated)
	assert.InDelta(t, 0.8, res.Quote.CustomizationCost, 1e-9)
	assert.Nil(t, res.Breakdown)

	var buf bytes.Buffer
	require.NoError(t, printQuote(&buf, res))
	assert.Contains(t, buf.String(), "estimated")
}

func TestRunQuote_Errors(t *testing.T) {
	env, err := initEnv(context.Background(), testConfig(t), "quote", false)
	require.NoError(t, err)

	tests := []struct {
		name string
		opts quoteOptions
		want string
	}{
		{"unknown recipe", quoteOptions{Recipe: "frappe", SalePoint: "ch-epfl-klee"}, "unknown recipe"},
		{"no sale point", quoteOptions{Recipe: "esp"}, "sale point is required"},
		{"unknown milk", quoteOptions{Recipe: "cap", SalePoint: "ch-epfl-klee", Milk: "goat"}, "unknown milk type"},
		{"milk not offered", quoteOptions{Recipe: "cap", SalePoint: "ch-epfl-klee", Milk: "soy"}, "not offered"},
		{"no match", quoteOptions{Recipe: "esp", SalePoint: "ch-epfl-klee", Decaf: true}, "no catalog entry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runQuote(context.Background(), env, 5, tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestInitEnv_InvalidConfig(t *testing.T) {
	c := testConfig(t)
	c.Catalog.Source = ""

	_, err := initEnv(context.Background(), c, "quote", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.source is required")
}

func TestRatesFromConfig(t *testing.T) {
	rates := ratesFromConfig(testConfig(t).Pricing)

	assert.InDelta(t, 0.5, rates.Caffeine, 1e-9)
	assert.InDelta(t, 0.1, rates.SugarPerLevel, 1e-9)
	assert.InDelta(t, 0.4, rates.Milk.Oat, 1e-9)
	assert.InDelta(t, 0.3, rates.Milk.LactoseFreeCow, 1e-9)
}

func TestStoreConfig(t *testing.T) {
	sc := storeConfig(config.StoreConfig{Driver: "postgres", DatabaseURL: "postgres://x", MaxConns: 8, MinConns: 2})

	assert.Equal(t, "postgres", sc.Driver)
	assert.Equal(t, "postgres://x", sc.DatabaseURL)
	assert.Equal(t, int32(8), sc.Pool.MaxConns)
	assert.Equal(t, int32(2), sc.Pool.MinConns)
}

func TestPrintCatalog(t *testing.T) {
	env, err := initEnv(context.Background(), testConfig(t), "catalog", false)
	require.NoError(t, err)
	cat, err := env.Catalog.Ensure(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printCatalog(&buf, cat, false))
	out := buf.String()
	assert.Contains(t, out, "SERVE ID")
	assert.Contains(t, out, "ch-epfl-klee#cap-oat")
	assert.Contains(t, out, "3.20")

	buf.Reset()
	require.NoError(t, printSalePoints(&buf, cat.SalePointsFor(model.RecipeCappuccino), false))
	assert.Contains(t, buf.String(), "EPFL Compass Group Le Klee Cafeteria")

	buf.Reset()
	require.NoError(t, printSalePoints(&buf, nil, true))
	assert.Equal(t, "[]\n", buf.String())
}
