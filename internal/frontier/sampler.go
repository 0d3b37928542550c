package frontier

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/wonny/frontier/internal/contracts"
)

// NewRand creates a seeded generator; seed 0 means time-based (non-reproducible)
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// SampleWeights draws n independent uniform(0,1) values and normalizes them by their sum.
// An all-zero draw is retried up to MaxWeightDraws times before ErrDegenerateWeights.
//
// 주의: 단순 정규화는 Dirichlet(1,...,1)이 아니라 심플렉스 중앙에 몰린 분포다.
// 시행 횟수가 충분하면 최소 분산 근처도 표본에 포함된다.
func SampleWeights(rng *rand.Rand, n int) (WeightVector, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: cannot sample weights for %d assets", contracts.ErrDimensionMismatch, n)
	}

	w := make(WeightVector, n)
	for attempt := 0; attempt < MaxWeightDraws; attempt++ {
		var sum float64
		for i := range w {
			w[i] = rng.Float64()
			sum += w[i]
		}
		if sum <= 0 {
			continue
		}
		for i := range w {
			w[i] /= sum
		}
		return w, nil
	}

	return nil, fmt.Errorf("%w: %d consecutive zero-sum draws", contracts.ErrDegenerateWeights, MaxWeightDraws)
}
