package game

import (
	"math/rand/v2"
	"sort"

	"github.com/cbodonnell/econempire/pkg/game/constants"
	"github.com/cbodonnell/econempire/pkg/game/types"
)

// GenerateBaseline picks the producers of every product and splits
// production and demand between countries. Every product is produced by
// MinProducers to MaxProducers countries and demanded by all the others;
// both sides sum to ProductTotal and every share is at least 1.
func GenerateBaseline(rng *rand.Rand) ([]types.ProductionFact, []types.DemandFact) {
	var production []types.ProductionFact
	var demand []types.DemandFact

	for _, product := range types.Products {
		countries := make([]types.Country, len(types.Countries))
		copy(countries, types.Countries)
		rng.Shuffle(len(countries), func(i, j int) {
			countries[i], countries[j] = countries[j], countries[i]
		})

		n := constants.MinProducers + rng.IntN(constants.MaxProducers-constants.MinProducers+1)
		producers := sortByCountryOrder(countries[:n])
		consumers := sortByCountryOrder(countries[n:])

		for i, q := range splitTotal(rng, constants.ProductTotal, len(producers)) {
			production = append(production, types.ProductionFact{
				Country:  producers[i],
				Product:  product,
				Quantity: q,
			})
		}
		for i, q := range splitTotal(rng, constants.ProductTotal, len(consumers)) {
			demand = append(demand, types.DemandFact{
				Country:  consumers[i],
				Product:  product,
				Quantity: q,
			})
		}
	}

	return production, demand
}

// splitTotal splits total into n random parts of at least 1 each.
func splitTotal(rng *rand.Rand, total, n int) []int {
	if n <= 0 {
		return nil
	}
	// n-1 distinct cut points in [1, total-1]
	cuts := rng.Perm(total - 1)[:n-1]
	for i := range cuts {
		cuts[i]++
	}
	sort.Ints(cuts)

	parts := make([]int, 0, n)
	prev := 0
	for _, c := range cuts {
		parts = append(parts, c-prev)
		prev = c
	}
	return append(parts, total-prev)
}

func sortByCountryOrder(countries []types.Country) []types.Country {
	index := make(map[types.Country]int, len(types.Countries))
	for i, c := range types.Countries {
		index[c] = i
	}
	sorted := make([]types.Country, len(countries))
	copy(sorted, countries)
	sort.Slice(sorted, func(i, j int) bool { return index[sorted[i]] < index[sorted[j]] })
	return sorted
}
