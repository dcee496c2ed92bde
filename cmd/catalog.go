package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/trueprice/internal/catalog"
	"github.com/sells-group/trueprice/internal/model"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List catalog entries",
	Long:  "Loads the configured catalog and lists its entries, or the sale points offering one recipe when --recipe is given.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, cfg, "catalog", false)
		if err != nil {
			return err
		}
		defer env.Close()

		cat, err := env.Catalog.Ensure(ctx)
		if err != nil {
			return eris.Wrap(err, "catalog")
		}

		recipeKey, _ := cmd.Flags().GetString("recipe")
		asJSON, _ := cmd.Flags().GetBool("json")

		if recipeKey != "" {
			recipe, ok := model.ParseRecipe(recipeKey)
			if !ok {
				return eris.Errorf("catalog: unknown recipe %q", recipeKey)
			}
			return printSalePoints(os.Stdout, cat.SalePointsFor(recipe), asJSON)
		}
		return printCatalog(os.Stdout, cat, asJSON)
	},
}

func printCatalog(out io.Writer, cat *catalog.Catalog, asJSON bool) error {
	entries := cat.Entries()
	if asJSON {
		return writeJSON(out, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "Catalog is empty.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVE ID\tRECIPE\tSALE POINT\tMILK\tDECAF\tPRICE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f\n",
			e.ServeID,
			e.Recipe.Detail().Name,
			e.SalePointID,
			e.MilkType.DisplayName(),
			strconv.FormatBool(e.IsDecaf),
			e.MarketPrice,
		)
	}
	return w.Flush()
}

func printSalePoints(out io.Writer, points []model.SalePoint, asJSON bool) error {
	if asJSON {
		if points == nil {
			points = []model.SalePoint{}
		}
		return writeJSON(out, points)
	}
	if len(points) == 0 {
		fmt.Fprintln(out, "No sale points offer this recipe.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE")
	for _, p := range points {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, p.Type)
	}
	return w.Flush()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encode output")
	}
	return nil
}

func init() {
	catalogCmd.Flags().String("recipe", "", "list the sale points offering this recipe key (e.g. esp, cap)")
	catalogCmd.Flags().Bool("json", false, "print JSON instead of a table")
	rootCmd.AddCommand(catalogCmd)
}
