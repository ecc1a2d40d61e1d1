package dice

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// Comparator is the relation tested between an expression value and a target.
type Comparator string

const (
	CmpGE Comparator = ">="
	CmpGT Comparator = ">"
	CmpLE Comparator = "<="
	CmpLT Comparator = "<"
	CmpEQ Comparator = "=="
	CmpNE Comparator = "!="
)

// equalityTolerance absorbs floating-point error in == and != comparisons.
const equalityTolerance = 1e-12

// Comparators lists the supported comparators in display order.
func Comparators() []Comparator {
	return []Comparator{CmpGE, CmpGT, CmpLE, CmpLT, CmpEQ, CmpNE}
}

// ParseComparator validates s as a comparator. An empty string yields >=.
func ParseComparator(s string) (Comparator, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CmpGE, nil
	}
	for _, c := range Comparators() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidComparator, s)
}

// Holds reports whether v cmp target is true.
func (c Comparator) Holds(v, target float64) bool {
	switch c {
	case CmpGE:
		return v >= target
	case CmpGT:
		return v > target
	case CmpLE:
		return v <= target
	case CmpLT:
		return v < target
	case CmpEQ:
		return math.Abs(v-target) <= equalityTolerance
	case CmpNE:
		return math.Abs(v-target) > equalityTolerance
	default:
		return false
	}
}

// Method names the analysis strategy that produced a TargetAnalysis.
type Method string

const (
	MethodExact      Method = "exact"
	MethodMonteCarlo Method = "montecarlo"
)

// Sample-count bounds for Monte Carlo analysis.
const (
	DefaultSamples = 50_000
	MinSamples     = 1_000
	MaxSamples     = 1_000_000
)

// ClampSamples applies the default and the [MinSamples, MaxSamples] bounds.
// Samples is a plain int whose zero value means "not set", so zero and
// negative requests use DefaultSamples instead of clamping up to MinSamples.
func ClampSamples(n int) int {
	if n <= 0 {
		n = DefaultSamples
	}
	return max(MinSamples, min(n, MaxSamples))
}

// TermInfo describes one dice term of an analyzed expression.
type TermInfo struct {
	Index  int    // occurrence order, 0-based
	Raw    string // e.g. "2d12"
	MinSum int    // Count * 1
	MaxSum int    // Count * Sides
	// NeedAtLeastWhenOthersMin is the smallest sum of this term meeting the
	// target when all other terms roll their minimum. Nil when unreachable or
	// not computed.
	NeedAtLeastWhenOthersMin *int
	// NeedAtLeastWhenOthersMax is the same with all other terms at maximum.
	NeedAtLeastWhenOthersMax *int
}

// Interval is a confidence interval over a probability.
type Interval struct {
	Low      float64
	High     float64
	LowText  string
	HighText string
}

// TargetAnalysis is the result of AnalyzeTarget.
type TargetAnalysis struct {
	Input      string
	Target     float64
	Comparator Comparator
	Method     Method
	// ProbabilityPercent is exact for MethodExact, e.g. "58.33%".
	ProbabilityPercent string
	// Probability is in [0, 1]; a float approximation for MethodExact.
	Probability float64
	// Samples and CI95 are set for MethodMonteCarlo only.
	Samples int
	CI95    *Interval
	Terms   []TermInfo
}

// analysis carries the per-call state shared by the exact and Monte Carlo paths.
type analysis struct {
	rpn    []Token
	terms  []Token
	target float64
	cmp    Comparator
}

func (a *analysis) holds(sums []int) (bool, error) {
	v, err := evalWithSums(a.rpn, sums)
	if err != nil {
		return false, err
	}
	return a.cmp.Holds(v, a.target), nil
}

// canAnalyzeExactly reports whether all terms are representable and the
// product of their distinct-sum counts fits lim.MaxExactCombinations.
func canAnalyzeExactly(terms []Token, lim Limits) bool {
	prod := 1
	for _, t := range terms {
		size := distSize(t.Count, t.Sides)
		if size > lim.MaxDistSize {
			return false
		}
		prod *= size
		if prod > lim.MaxExactCombinations {
			return false
		}
	}
	return true
}

// exact enumerates every combination of per-term sums with an odometer over
// the distributions, weighting each by the product of the terms' counts.
func (a *analysis) exact(dists []*Distribution) (success, total *big.Int, _ error) {
	total = big.NewInt(1)
	for _, t := range a.terms {
		total.Mul(total, outcomeCount(t.Count, t.Sides))
	}
	success = new(big.Int)

	n := len(dists)
	idx := make([]int, n)
	sums := make([]int, n)
	// weights[i] is the product of the counts chosen for terms 0..i-1.
	weights := make([]*big.Int, n+1)
	weights[0] = big.NewInt(1)
	for i := 1; i <= n; i++ {
		weights[i] = new(big.Int)
	}
	refresh := func(from int) {
		for i := from; i < n; i++ {
			sums[i] = dists[i].Count + idx[i]
			weights[i+1].Mul(weights[i], dists[i].ways[idx[i]])
		}
	}
	refresh(0)

	for {
		ok, err := a.holds(sums)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			success.Add(success, weights[n])
		}

		// Advance the rightmost wheel; carry to the left on overflow.
		i := n - 1
		for i >= 0 {
			idx[i]++
			if idx[i] < dists[i].Size() {
				break
			}
			idx[i] = 0
			i--
		}
		if i < 0 {
			return success, total, nil
		}
		refresh(i)
	}
}

// monteCarlo samples term sums and counts successes.
func (a *analysis) monteCarlo(src Source, samples int) (int, error) {
	successes := 0
	sums := make([]int, len(a.terms))
	for s := 0; s < samples; s++ {
		for i, t := range a.terms {
			sum := 0
			for k := 0; k < t.Count; k++ {
				sum += rollDie(src, t.Sides)
			}
			sums[i] = sum
		}
		ok, err := a.holds(sums)
		if err != nil {
			return 0, err
		}
		if ok {
			successes++
		}
	}
	return successes, nil
}

// normalCI95 is the normal-approximation 95% interval for p over n samples.
func normalCI95(p float64, n int) (low, high float64) {
	se := math.Sqrt(math.Max(0, p*(1-p)) / float64(n))
	low = math.Max(0, p-1.96*se)
	high = math.Min(1, p+1.96*se)
	return low, high
}

// termInfos builds the per-term bounds and "need at least" hints. Hints are
// skipped for terms whose sum range is wider than lim.MaxDistSize.
func (a *analysis) termInfos(lim Limits) []TermInfo {
	infos := make([]TermInfo, len(a.terms))
	mins := make([]int, len(a.terms))
	maxs := make([]int, len(a.terms))
	for i, t := range a.terms {
		infos[i] = TermInfo{Index: i, Raw: t.Raw, MinSum: t.MinSum(), MaxSum: t.MaxSum()}
		mins[i] = t.MinSum()
		maxs[i] = t.MaxSum()
	}
	for i := range infos {
		if infos[i].MaxSum-infos[i].MinSum+1 > lim.MaxDistSize {
			continue
		}
		infos[i].NeedAtLeastWhenOthersMin = a.needAtLeast(infos[i], i, mins)
		infos[i].NeedAtLeastWhenOthersMax = a.needAtLeast(infos[i], i, maxs)
	}
	return infos
}

// needAtLeast scans the sums of term i upward, other terms fixed, and returns
// the first sum meeting the target. Sums whose evaluation fails (for example
// a zero divisor) count as not meeting it.
func (a *analysis) needAtLeast(info TermInfo, i int, fixed []int) *int {
	sums := append([]int(nil), fixed...)
	for s := info.MinSum; s <= info.MaxSum; s++ {
		sums[i] = s
		if ok, err := a.holds(sums); err == nil && ok {
			return &s
		}
	}
	return nil
}
