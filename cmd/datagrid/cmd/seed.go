package cmd

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/solatis/datagrid/internal/core/api"
	"github.com/solatis/datagrid/internal/core/db"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert generated demo orders",
	RunE:  runSeed,
}

var (
	seedCount int
	seedSeed  uint64
)

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().IntVar(&seedCount, "count", 100, "number of orders to insert")
	seedCmd.Flags().Uint64Var(&seedSeed, "seed", 1, "random seed")
}

var (
	seedCustomers = []string{"Alice Martin", "Bob Stone", "Carol Diaz", "Dave Kim", "Erin Novak", "Frank Osei", "Grace Liu", "Heidi Berg"}
	seedStatuses  = []string{api.StatusPending, api.StatusPaid, api.StatusShipped, api.StatusCancelled}
	seedTags      = []string{"gift", "express", "wholesale", "fragile", "priority", "return"}
)

// generateOrders returns n orders placed over the 90 days before now.
func generateOrders(r *rand.Rand, n int, now time.Time) []*api.Order {
	orders := make([]*api.Order, n)
	for i := range orders {
		placed := now.Add(-time.Duration(r.Int64N(int64(90 * 24 * time.Hour)))).Truncate(time.Second)
		o := &api.Order{
			Customer: seedCustomers[r.IntN(len(seedCustomers))],
			Status:   seedStatuses[r.IntN(len(seedStatuses))],
			Total:    float64(r.IntN(50000)) / 100,
			PlacedAt: placed,
		}
		if o.Status == api.StatusShipped {
			shipped := placed.Add(time.Duration(1+r.IntN(72)) * time.Hour)
			o.ShippedAt = &shipped
		}
		for _, j := range r.Perm(len(seedTags))[:r.IntN(3)] {
			o.Tags = append(o.Tags, api.Tag{Label: seedTags[j]})
		}
		orders[i] = o
	}
	return orders
}

func runSeed(cmd *cobra.Command, args []string) error {
	if seedCount <= 0 {
		return fmt.Errorf("--count must be positive")
	}

	a, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	queries, err := db.LoadQueries(a.db)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}
	store, err := api.NewStore(queries)
	if err != nil {
		return err
	}

	r := rand.New(rand.NewPCG(seedSeed, seedSeed))
	for _, o := range generateOrders(r, seedCount, time.Now().UTC()) {
		if err := store.CreateOrder(cmd.Context(), o); err != nil {
			return err
		}
	}
	a.logger.Info("orders seeded", "count", seedCount)
	fmt.Fprintf(cmd.OutOrStdout(), "inserted %d orders\n", seedCount)
	return nil
}
