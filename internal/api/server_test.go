package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/trueprice/internal/catalog"
	"github.com/sells-group/trueprice/internal/fetcher"
	"github.com/sells-group/trueprice/internal/impact"
	"github.com/sells-group/trueprice/internal/model"
	"github.com/sells-group/trueprice/internal/pricing"
	"github.com/sells-group/trueprice/internal/session"
)

const testCatalogCSV = `serveId,recipeId,retailName,salePointId,marketPrice,isDecaf,hasMilk,milkType,mainRecipe
ch-epfl-klee#esp,esp,Espresso,ch-epfl-klee,2.50,false,false,none,esp
ch-epfl-klee#cap,cap,Cappuccino,ch-epfl-klee,3.50,false,true,cow,cap
ch-epfl-vm#1#esp,esp,Espresso,ch-epfl-vm#1,1.80,false,false,none,esp
`

const testImpactJSON = `{"serveId":"ch-epfl-klee#esp","impacts":[
 {"stage":"Cultivation","impactCategory":"Environment","impactValue":1,
  "details":[{"indicators":"Land use","costValue":0.5},{"indicators":"Land use","costValue":0.3}]},
 {"stage":"Roasting","impactCategory":"Energy","impactValue":0,
  "details":[{"indicators":"Gas","costValue":9}]}
]}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.csv"), []byte(testCatalogCSV), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "impacts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "impacts", "ch-epfl-klee-esp.json"), []byte(testImpactJSON), 0o644))

	files := &fetcher.FileFetcher{Root: dir}
	source := catalog.NewSource(files, catalog.SourceOptions{URL: "catalog.csv"})
	manager := session.NewManager(session.ManagerConfig{
		Catalog:    source,
		Loader:     impact.NewLoader(files, impact.LoaderOptions{BaseURL: "impacts"}),
		Calculator: pricing.NewCalculator(pricing.DefaultRates()),
	})

	srv := httptest.NewServer(NewRouter(Config{Sessions: manager, Catalog: source}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() }) //nolint:errcheck
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createSession(t *testing.T, srv *httptest.Server) session.View {
	t.Helper()
	resp := do(t, http.MethodPost, srv.URL+"/sessions", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[session.View](t, resp)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestCatalogRecipes(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/catalog/recipes", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	recipes := decode[[]recipeView](t, resp)
	require.Len(t, recipes, 2)
	assert.Equal(t, model.RecipeEspresso, recipes[0].Key)
	assert.Equal(t, "Espresso", recipes[0].Name)
	assert.Equal(t, model.RecipeCappuccino, recipes[1].Key)
}

func TestCatalogSalePoints(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/catalog/sale-points?recipe=esp", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	points := decode[[]model.SalePoint](t, resp)
	require.Len(t, points, 2)
	assert.Equal(t, "ch-epfl-klee", points[0].ID)
	assert.Equal(t, "ch-epfl-vm#1", points[1].ID)

	resp = do(t, http.MethodGet, srv.URL+"/catalog/sale-points", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.SalePoint](t, resp), 4)

	resp = do(t, http.MethodGet, srv.URL+"/catalog/sale-points?recipe=frappe", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_recipe", decode[errorBody](t, resp).Error)
}

func TestSessionFlow(t *testing.T) {
	srv := newTestServer(t)
	created := createSession(t, srv)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, model.DefaultSelection(), created.Selection)
	base := srv.URL + "/sessions/" + created.ID

	resp := do(t, http.MethodPost, base+"/recipe", `{"recipe":"esp"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decode[session.View](t, resp)
	assert.Equal(t, model.RecipeEspresso, v.Selection.Recipe)
	assert.False(t, v.Selection.IsDecaf)
	assert.False(t, v.PriceVisible)
	assert.Len(t, v.AvailableSalePoints, 2)

	resp = do(t, http.MethodPost, base+"/sale-point", `{"salePointId":"ch-epfl-klee"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v = decode[session.View](t, resp)
	assert.True(t, v.PriceVisible)
	require.NotNil(t, v.Entry)
	assert.Equal(t, "ch-epfl-klee#esp", v.Entry.ServeID)
	require.NotNil(t, v.Quote)
	assert.False(t, v.Quote.Estimated)
	assert.InDelta(t, 0.8, v.Quote.ImpactCost, 1e-9)
	assert.InDelta(t, 3.3, v.Quote.TruePrice, 1e-9)

	resp = do(t, http.MethodPost, base+"/sugar", `{"level":9}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v = decode[session.View](t, resp)
	assert.Equal(t, 5, v.Selection.SugarLevel)
	assert.InDelta(t, 0.5, v.Quote.CustomizationCost, 1e-9)

	resp = do(t, http.MethodGet, base+"/breakdown", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b := decode[breakdownView](t, resp)
	assert.Equal(t, "ch-epfl-klee#esp", b.ServeID)
	assert.Equal(t, []string{"Cultivation"}, b.Stages)
	assert.InDelta(t, 0.8, b.Total, 1e-9)
	require.Contains(t, b.Roots, "Cultivation")
	assert.InDelta(t, 0.8, b.Roots["Cultivation"].Category("Environment").Leaf("Land use").Value, 1e-9)

	resp = do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, decode[session.View](t, resp).Selection.SugarLevel)

	resp = do(t, http.MethodPost, base+"/clear", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.DefaultSelection(), decode[session.View](t, resp).Selection)
}

func TestSessionMissingImpactRecordEstimates(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/sessions/" + createSession(t, srv).ID

	do(t, http.MethodPost, base+"/recipe", `{"recipe":"esp"}`)
	resp := do(t, http.MethodPost, base+"/sale-point", `{"salePointId":"ch-epfl-vm#1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	v := decode[session.View](t, resp)
	require.NotNil(t, v.Quote)
	assert.True(t, v.Quote.Estimated)
	assert.InDelta(t, 0.5, v.Quote.CustomizationCost, 1e-9)
}

func TestSessionMilk(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/sessions/" + createSession(t, srv).ID

	resp := do(t, http.MethodPost, base+"/recipe", `{"recipe":"cap"}`)
	v := decode[session.View](t, resp)
	assert.Equal(t, model.MilkCow, v.Selection.MilkType)
	assert.Equal(t, []model.MilkType{model.MilkCow}, v.AvailableMilkTypes)

	resp = do(t, http.MethodPost, base+"/milk", `{"milkType":"oat"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "milk_unavailable", decode[errorBody](t, resp).Error)

	resp = do(t, http.MethodPost, base+"/milk", `{"milkType":"goat"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_milk_type", decode[errorBody](t, resp).Error)

	resp = do(t, http.MethodPost, base+"/milk", `{"milkType":"cow"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionCaffeineToggle(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/sessions/" + createSession(t, srv).ID

	do(t, http.MethodPost, base+"/recipe", `{"recipe":"esp"}`)
	resp := do(t, http.MethodPost, base+"/caffeine", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decode[session.View](t, resp)
	assert.True(t, v.Selection.IsDecaf)
	assert.Nil(t, v.Entry)
	assert.Zero(t, v.Matches)
}

func TestSessionBadRequests(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/sessions/" + createSession(t, srv).ID

	tests := []struct {
		name string
		path string
		body string
		code string
	}{
		{"unknown recipe", "/recipe", `{"recipe":"frappe"}`, "invalid_recipe"},
		{"malformed json", "/recipe", `{"recipe":`, "invalid_body"},
		{"unknown field", "/sale-point", `{"salePoint":"x"}`, "invalid_body"},
		{"missing sugar level", "/sugar", `{}`, "invalid_body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, base+tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.code, decode[errorBody](t, resp).Error)
		})
	}
}

func TestSessionNotFound(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/sessions/nope", "/sessions/nope/breakdown"} {
		resp := do(t, http.MethodGet, srv.URL+path, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Equal(t, "session_not_found", decode[errorBody](t, resp).Error, path)
	}

	resp := do(t, http.MethodPost, srv.URL+"/sessions/nope/recipe", `{"recipe":"esp"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionDelete(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/sessions/" + createSession(t, srv).ID

	resp := do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decode[errorBody](t, resp)
	assert.Equal(t, "not_found", body.Error)
	assert.True(t, strings.HasSuffix(body.Message, "/nope"))

	resp = do(t, http.MethodPut, srv.URL+"/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://trueprice.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
