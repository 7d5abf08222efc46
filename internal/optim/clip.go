package optim

import (
	"fmt"
	"math"

	"github.com/born-ml/lightning/internal/nn"
)

// ClipAlgorithm selects how gradients are clipped.
type ClipAlgorithm string

// Supported clipping algorithms.
const (
	// ClipNorm rescales all gradients so their global L2 norm is at most the clip value.
	ClipNorm ClipAlgorithm = "norm"
	// ClipValue clamps every gradient element to [-clip, clip].
	ClipValue ClipAlgorithm = "value"
)

// ParseClipAlgorithm validates a clipping algorithm name.
func ParseClipAlgorithm(s string) (ClipAlgorithm, error) {
	switch a := ClipAlgorithm(s); a {
	case ClipNorm, ClipValue:
		return a, nil
	default:
		return "", fmt.Errorf("unknown gradient clip algorithm %q, expected one of %q, %q", s, ClipNorm, ClipValue)
	}
}

// ClipGradValue clamps every gradient element into [-clip, clip].
func ClipGradValue(params []*nn.Parameter, clip float64) {
	c := float32(clip)
	for _, p := range params {
		if g := p.Grad(); g != nil {
			g.Clamp(-c, c)
		}
	}
}

// ClipGradNorm rescales gradients in place so that their combined L2 norm is
// at most maxNorm, and returns the norm measured before clipping. A parameter
// listed twice is counted and scaled once.
func ClipGradNorm(params []*nn.Parameter, maxNorm float64) float64 {
	seen := make(map[*nn.Parameter]struct{}, len(params))
	var sum float64
	for _, p := range params {
		if _, dup := seen[p]; dup || p.Grad() == nil {
			continue
		}
		seen[p] = struct{}{}
		sum += p.Grad().SumSquares()
	}

	total := math.Sqrt(sum)
	coef := maxNorm / (total + 1e-6)
	if coef < 1 {
		for p := range seen {
			p.Grad().Scale(float32(coef))
		}
	}
	return total
}
