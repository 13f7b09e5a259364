// Command medsnear runs catalog searches against a local fixture file,
// without a database. Handy for tuning the synonym table.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/medsnear/medsnear/internal/core/domain"
	"github.com/medsnear/medsnear/internal/core/nearby"
	"github.com/medsnear/medsnear/internal/core/search"
)

var (
	catalogPath  string
	synonymsPath string
	asJSON       bool

	query    string
	lat, lon float64
	radiusKm float64
	limit    int
)

var rootCmd = &cobra.Command{
	Use:           "medsnear",
	Short:         "Offline tools for the MedsNear catalog",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Rank catalog listings by travel time from a location",
	RunE:  runSearch,
}

var nearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "List pharmacies within a radius",
	RunE:  runNearby,
}

var synonymsCmd = &cobra.Command{
	Use:   "synonyms [term...]",
	Short: "Show how search terms expand",
	RunE:  runSynonyms,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&catalogPath, "catalog", "c", "catalog.yaml", "Catalog fixture (YAML or JSON)")
	rootCmd.PersistentFlags().StringVarP(&synonymsPath, "synonyms", "s", "", "Extra synonyms YAML merged over the defaults")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Write JSON instead of a table")

	searchCmd.Flags().StringVarP(&query, "q", "q", "", "Search text (empty matches everything)")
	searchCmd.Flags().Float64Var(&lat, "lat", 0, "Caller latitude")
	searchCmd.Flags().Float64Var(&lon, "lon", 0, "Caller longitude")
	searchCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum results")

	nearbyCmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	nearbyCmd.Flags().Float64Var(&lon, "lon", 0, "Longitude")
	nearbyCmd.Flags().Float64VarP(&radiusKm, "radius", "r", 5, "Radius in km")
	nearbyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum results")
	_ = nearbyCmd.MarkFlagRequired("lat")
	_ = nearbyCmd.MarkFlagRequired("lon")

	rootCmd.AddCommand(searchCmd, nearbyCmd, synonymsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadSynonyms() (search.Synonyms, error) {
	syn := search.DefaultSynonyms()
	if synonymsPath == "" {
		return syn, nil
	}
	return syn.MergeFile(synonymsPath)
}

func runSearch(cmd *cobra.Command, _ []string) error {
	syn, err := loadSynonyms()
	if err != nil {
		return err
	}
	_, items, err := loadCatalogFile(catalogPath)
	if err != nil {
		return err
	}

	inStock := items[:0]
	for _, it := range items {
		if it.Stock > 0 {
			inStock = append(inStock, it)
		}
	}

	var caller *domain.GeoPoint
	if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
		p := domain.GeoPoint{Lat: lat, Lon: lon}
		if p.Valid() {
			caller = &p
		}
	}

	results := search.New(syn).Search(caller, inStock, query)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return writeResults(cmd.OutOrStdout(), results)
}

func writeResults(w io.Writer, results []domain.SearchResult) error {
	if asJSON {
		if results == nil {
			results = []domain.SearchResult{}
		}
		return writeJSON(w, results)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPHARMACY\tPRICE\tMINUTES")
	for _, r := range results {
		minutes := "-"
		if r.TravelKnown() {
			minutes = fmt.Sprintf("%.1f", r.TravelMinutes)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d %s\t%s\n",
			r.Item.ID, r.Item.Name, r.Item.PharmacyName, r.Item.Price, r.Item.Currency, minutes)
	}
	return tw.Flush()
}

func runNearby(cmd *cobra.Command, _ []string) error {
	center := domain.GeoPoint{Lat: lat, Lon: lon}
	if !center.Valid() {
		return fmt.Errorf("location out of range: %v,%v", lat, lon)
	}
	pharmacies, _, err := loadCatalogFile(catalogPath)
	if err != nil {
		return err
	}

	idx := nearby.New()
	idx.Build(pharmacies)
	matches := idx.Within(center, radiusKm, limit)
	if matches == nil {
		matches = []nearby.Match{}
	}

	w := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(w, matches)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tNAME\tKM\tMINUTES")
	for _, m := range matches {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.1f\n", m.Pharmacy.Slug, m.Pharmacy.Name, m.DistanceKm, m.TravelMinutes)
	}
	return tw.Flush()
}

func runSynonyms(cmd *cobra.Command, args []string) error {
	syn, err := loadSynonyms()
	if err != nil {
		return err
	}
	s := search.New(syn)
	w := cmd.OutOrStdout()
	if len(args) == 0 {
		fmt.Fprintf(w, "%d synonyms loaded\n", syn.Len())
		return nil
	}

	out := make(map[string][]string, len(args))
	for _, a := range args {
		out[a] = s.Terms(a)
	}
	if asJSON {
		return writeJSON(w, out)
	}
	for _, a := range args {
		fmt.Fprintf(w, "%s -> %v\n", a, out[a])
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
