package align

import (
	"math"

	"github.com/Error0229/Lyryc-sub000/pkg/models"
)

// CompareAlignments measures how far got is from ref. Lines are paired by
// index up to the shorter length; both sequences are assumed to describe the
// same lines in the same order. Differences are got - ref, so a positive
// MeanOffset means got runs late.
func CompareAlignments(got, ref []models.AlignedLine) models.AlignmentMetrics {
	n := min(len(got), len(ref))
	if n == 0 {
		return models.AlignmentMetrics{}
	}

	var absSum, sqSum, signedSum float64
	for i := 0; i < n; i++ {
		d := got[i].Time - ref[i].Time
		absSum += math.Abs(d)
		sqSum += d * d
		signedSum += d
	}
	return models.AlignmentMetrics{
		MAE:        absSum / float64(n),
		RMSE:       math.Sqrt(sqSum / float64(n)),
		MeanOffset: signedSum / float64(n),
		Matched:    n,
	}
}
