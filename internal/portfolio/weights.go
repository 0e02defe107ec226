package portfolio

import "math"

// NormalizeWeights resolves raw user weights into an allocation over assets.
// Assets missing from raw get 0, and so do NaN or infinite weights. If the
// total is not positive every asset gets 1/len(assets); otherwise each weight
// is divided by the total.
func NormalizeWeights(raw Weights, assets []string) (Weights, error) {
	if len(assets) == 0 {
		return nil, ErrNoAssets
	}

	w := make(Weights, len(assets))
	sum := 0.0
	for _, a := range assets {
		v := raw[a]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		w[a] = v
		sum += v
	}

	if sum <= 0 {
		return EqualWeights(assets), nil
	}
	for a, v := range w {
		w[a] = v / sum
	}
	return w, nil
}

// EqualWeights gives every asset 1/len(assets).
func EqualWeights(assets []string) Weights {
	w := make(Weights, len(assets))
	if len(assets) == 0 {
		return w
	}
	each := 1.0 / float64(len(assets))
	for _, a := range assets {
		w[a] = each
	}
	return w
}
