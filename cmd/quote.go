package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/trueprice/internal/impact"
	"github.com/sells-group/trueprice/internal/model"
	"github.com/sells-group/trueprice/internal/selection"
)

type quoteOptions struct {
	Recipe    string
	SalePoint string
	Decaf     bool
	Milk      string
	Sugar     int
	Breakdown bool
}

type quoteResult struct {
	Selection model.Selection    `json:"selection"`
	Entry     model.CatalogEntry `json:"entry"`
	Quote     model.Quote        `json:"quote"`
	Breakdown *impact.Breakdown  `json:"breakdown,omitempty"`
}

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price one selection",
	Long:  "Applies the selection flags in order (recipe, sale point, caffeine, milk, sugar) and prints the true price of the matching catalog entry.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		noCache, _ := cmd.Flags().GetBool("no-cache")
		env, err := initEnv(ctx, cfg, "quote", !noCache)
		if err != nil {
			return err
		}
		defer env.Close()

		var opts quoteOptions
		opts.Recipe, _ = cmd.Flags().GetString("recipe")
		opts.SalePoint, _ = cmd.Flags().GetString("sale-point")
		opts.Decaf, _ = cmd.Flags().GetBool("decaf")
		opts.Milk, _ = cmd.Flags().GetString("milk")
		opts.Sugar, _ = cmd.Flags().GetInt("sugar")
		opts.Breakdown, _ = cmd.Flags().GetBool("breakdown")

		res, err := runQuote(ctx, env, cfg.Selection.MaxSugarLevel, opts)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(os.Stdout, res)
		}
		return printQuote(os.Stdout, res)
	},
}

// runQuote drives a selection engine through opts and prices the selected
// entry. A missing impact record falls back to the estimated quote.
func runQuote(ctx context.Context, env *appEnv, maxSugar int, opts quoteOptions) (*quoteResult, error) {
	recipe, ok := model.ParseRecipe(opts.Recipe)
	if !ok || recipe == model.RecipeNone {
		return nil, eris.Errorf("quote: unknown recipe %q", opts.Recipe)
	}
	if opts.SalePoint == "" {
		return nil, eris.New("quote: sale point is required")
	}

	cat, err := env.Catalog.Ensure(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "quote: load catalog")
	}

	engine := selection.New(cat, selection.Options{MaxSugarLevel: maxSugar})
	engine.SelectRecipe(recipe)
	engine.SelectSalePoint(opts.SalePoint)
	if opts.Decaf {
		engine.ToggleCaffeine()
	}
	if opts.Milk != "" {
		milk, ok := model.ParseMilkType(opts.Milk)
		if !ok {
			return nil, eris.Errorf("quote: unknown milk type %q", opts.Milk)
		}
		if !engine.SetMilkType(milk) {
			return nil, eris.Errorf("quote: milk type %q is not offered for this selection", opts.Milk)
		}
	}
	engine.SetSugarLevel(opts.Sugar)

	entry, ok := engine.SelectedEntry()
	if !ok {
		return nil, eris.Errorf("quote: no catalog entry matches %s at %s", recipe, opts.SalePoint)
	}

	var b *impact.Breakdown
	records, err := env.Loader.Load(ctx, entry.ServeID)
	if err != nil {
		zap.L().Warn("quote: impact record unavailable, estimating",
			zap.String("serve_id", entry.ServeID),
			zap.Error(err),
		)
	} else {
		b = impact.Aggregate(records)
	}

	res := &quoteResult{
		Selection: engine.Selection(),
		Entry:     entry,
		Quote:     env.Calculator.Quote(entry, engine.Selection(), b),
	}
	if opts.Breakdown && !b.Empty() {
		res.Breakdown = b
	}
	return res, nil
}

func printQuote(out io.Writer, res *quoteResult) error {
	q := res.Quote
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Serve:\t%s\n", q.ServeID)
	fmt.Fprintf(w, "Recipe:\t%s\n", res.Entry.Recipe.Detail().Name)
	fmt.Fprintf(w, "Sale point:\t%s\n", res.Entry.SalePointID)
	fmt.Fprintf(w, "Retail price:\t%.2f\n", q.RetailPrice)
	fmt.Fprintf(w, "Impact cost:\t%.2f\n", q.ImpactCost)
	fmt.Fprintf(w, "Customization:\t%.2f\n", q.CustomizationCost)
	fmt.Fprintf(w, "Hidden cost:\t%.2f\n", q.HiddenCost)
	fmt.Fprintf(w, "True price:\t%.2f\n", q.TruePrice)
	if q.Estimated {
		fmt.Fprintln(w, "\t(estimated, no impact record)")
	}

	if res.Breakdown != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "STAGE\tCATEGORY\tINDICATOR\tCOST")
		for _, stage := range res.Breakdown.Stages {
			root := res.Breakdown.Root(stage)
			for _, c := range root.Children {
				for _, leaf := range c.Children {
					fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\n", stage, c.Name, leaf.Name, leaf.Value)
				}
			}
		}
	}
	return w.Flush()
}

func init() {
	quoteCmd.Flags().String("recipe", "", "recipe key (e.g. esp, cap)")
	quoteCmd.Flags().String("sale-point", "", "sale point id")
	quoteCmd.Flags().Bool("decaf", false, "select the decaffeinated variant")
	quoteCmd.Flags().String("milk", "", "milk type (cow, almond, soy, clf, oat)")
	quoteCmd.Flags().Int("sugar", 0, "sugar level")
	quoteCmd.Flags().Bool("breakdown", false, "include the impact breakdown")
	quoteCmd.Flags().Bool("json", false, "print JSON instead of a table")
	quoteCmd.Flags().Bool("no-cache", false, "skip the impact record cache")
	_ = quoteCmd.MarkFlagRequired("recipe")
	_ = quoteCmd.MarkFlagRequired("sale-point")
	rootCmd.AddCommand(quoteCmd)
}
