package mixture

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

// outOfSupportPenalty is added to a log10 score for every block whose
// beta-binomial term cannot be evaluated.
const outOfSupportPenalty = 400

// logBetaBinom returns the natural log of the beta-binomial pmf at k.
// It returns -Inf outside the support or for non-positive shape parameters.
func logBetaBinom(k, n int, alpha, beta float64) float64 {
	if k < 0 || k > n || alpha <= 0 || beta <= 0 {
		return math.Inf(-1)
	}
	kf, nf := float64(k), float64(n)
	logChoose := -math.Log(nf+1) - mathext.Lbeta(nf-kf+1, kf+1)
	return logChoose + mathext.Lbeta(kf+alpha, nf-kf+beta) - mathext.Lbeta(alpha, beta)
}

// betaBinomScore sums log10 beta-binomial terms over blocks. For each block,
// sums[i] is a cellular fraction mapped onto 1000 pseudo-reads (a = sums*500)
// and target[i] is the observed pseudo-count. Terms that cannot be evaluated
// cost outOfSupportPenalty.
func betaBinomScore(target []int, sums []float64) float64 {
	const depth = 1000

	var p float64
	for i, s := range sums {
		a := int(s * depth / 2)
		b := depth - a
		lp := logBetaBinom(target[i], depth, float64(a+1), float64(b+1))
		if math.IsInf(lp, 0) || math.IsNaN(lp) {
			p -= outOfSupportPenalty
			continue
		}
		p += lp / math.Ln10
	}
	return p
}
