// Package metrics implements classification metrics with support-weighted
// averaging across classes.
package metrics

// Accuracy returns the fraction of matching predictions.
func Accuracy(truth, predicted []int) float64 {
	if len(truth) == 0 {
		return 0
	}
	correct := 0
	for i, t := range truth {
		if predicted[i] == t {
			correct++
		}
	}
	return float64(correct) / float64(len(truth))
}

type classCounts struct {
	tp, fp, fn, support int
}

func countPerClass(truth, predicted []int) map[int]*classCounts {
	counts := make(map[int]*classCounts)
	get := func(c int) *classCounts {
		cc, ok := counts[c]
		if !ok {
			cc = &classCounts{}
			counts[c] = cc
		}
		return cc
	}
	for i, t := range truth {
		p := predicted[i]
		get(t).support++
		if p == t {
			get(t).tp++
		} else {
			get(p).fp++
			get(t).fn++
		}
	}
	return counts
}

// weightedAvg averages a per-class metric weighted by class support in truth.
func weightedAvg(truth, predicted []int, metric func(*classCounts) float64) float64 {
	if len(truth) == 0 {
		return 0
	}
	counts := countPerClass(truth, predicted)
	sum := 0.0
	for _, cc := range counts {
		if cc.support == 0 {
			continue
		}
		sum += float64(cc.support) * metric(cc)
	}
	return sum / float64(len(truth))
}

// WeightedPrecision returns precision averaged over classes, weighted by
// support. Classes with no predicted samples contribute zero.
func WeightedPrecision(truth, predicted []int) float64 {
	return weightedAvg(truth, predicted, func(cc *classCounts) float64 {
		denom := cc.tp + cc.fp
		if denom == 0 {
			return 0
		}
		return float64(cc.tp) / float64(denom)
	})
}

// WeightedRecall returns recall averaged over classes, weighted by support.
func WeightedRecall(truth, predicted []int) float64 {
	return weightedAvg(truth, predicted, func(cc *classCounts) float64 {
		denom := cc.tp + cc.fn
		if denom == 0 {
			return 0
		}
		return float64(cc.tp) / float64(denom)
	})
}

// WeightedF1 returns the harmonic mean of precision and recall per class,
// averaged weighted by support.
func WeightedF1(truth, predicted []int) float64 {
	return weightedAvg(truth, predicted, func(cc *classCounts) float64 {
		p := 0.0
		if cc.tp+cc.fp > 0 {
			p = float64(cc.tp) / float64(cc.tp+cc.fp)
		}
		r := 0.0
		if cc.tp+cc.fn > 0 {
			r = float64(cc.tp) / float64(cc.tp+cc.fn)
		}
		if p+r == 0 {
			return 0
		}
		return 2 * p * r / (p + r)
	})
}
