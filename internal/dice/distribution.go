package dice

import "math/big"

// Distribution maps every achievable sum of one NdM term to the number of
// face combinations producing it.
//
// Invariant: the counts add up to Sides^Count.
type Distribution struct {
	Count int
	Sides int
	// ways[i] is the number of combinations summing to Count+i.
	ways []*big.Int
}

// distSize returns the number of distinct sums of count dice with sides faces.
func distSize(count, sides int) int {
	return count*(sides-1) + 1
}

// BuildDistribution computes the sum distribution of count dice with sides
// faces by sliding-window convolution, or returns false when the number of
// distinct sums exceeds lim.MaxDistSize.
//
// Precondition: count >= 1, sides >= 1.
// Postcondition: On success, Total() == sides^count.
func BuildDistribution(count, sides int, lim Limits) (*Distribution, bool) {
	if distSize(count, sides) > lim.MaxDistSize {
		return nil, false
	}

	// Faces are shifted to [0, sides-1] so zero dice sum to exactly 0.
	dist := []*big.Int{big.NewInt(1)}
	for i := 0; i < count; i++ {
		next := make([]*big.Int, len(dist)+sides-1)
		window := new(big.Int)
		for idx := range next {
			if idx < len(dist) {
				window.Add(window, dist[idx])
			}
			if out := idx - sides; out >= 0 && out < len(dist) {
				window.Sub(window, dist[out])
			}
			next[idx] = new(big.Int).Set(window)
		}
		dist = next
	}
	return &Distribution{Count: count, Sides: sides, ways: dist}, true
}

// Size returns the number of distinct achievable sums.
func (d *Distribution) Size() int { return len(d.ways) }

// MinSum is the smallest achievable sum.
func (d *Distribution) MinSum() int { return d.Count }

// MaxSum is the largest achievable sum.
func (d *Distribution) MaxSum() int { return d.Count + len(d.ways) - 1 }

// Ways returns the number of combinations producing sum, zero when sum is
// out of range. The returned value must not be modified.
func (d *Distribution) Ways(sum int) *big.Int {
	i := sum - d.Count
	if i < 0 || i >= len(d.ways) {
		return new(big.Int)
	}
	return d.ways[i]
}

// Total returns the sum of all counts.
func (d *Distribution) Total() *big.Int {
	total := new(big.Int)
	for _, w := range d.ways {
		total.Add(total, w)
	}
	return total
}

// Each calls fn for every achievable sum in ascending order.
func (d *Distribution) Each(fn func(sum int, ways *big.Int)) {
	for i, w := range d.ways {
		fn(d.Count+i, w)
	}
}

// outcomeCount returns sides^count.
func outcomeCount(count, sides int) *big.Int {
	return new(big.Int).Exp(big.NewInt(int64(sides)), big.NewInt(int64(count)), nil)
}
