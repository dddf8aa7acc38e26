package numeric

import (
	"math"
	"math/rand"
)

// BetaPDF evaluates the Beta(a, b) density at th. Used only for loss
// reporting (spec §4.A), never for gradients.
func BetaPDF(th, a, b float64) float64 {
	if th <= 0 || th >= 1 {
		return 0
	}
	logNorm := lgamma(a+b) - lgamma(a) - lgamma(b)
	logDensity := logNorm + (a-1)*math.Log(th) + (b-1)*math.Log(1-th)
	return math.Exp(logDensity)
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

// MVNPdf evaluates an isotropic N(0, I) density at v, as spec §4.A
// specifies ("MVN is assumed N(0, I) on the hidden vector").
func MVNPdf(v *Vector) float64 {
	d := float64(v.Size())
	dot := float64(v.Dot(v))
	return math.Exp(-0.5*dot) / math.Sqrt(math.Pow(2*math.Pi, d))
}

// SampleBeta draws one Beta(a, b) variate via the ratio of two independent
// Gamma draws, the standard construction used when a distribution library
// isn't already in scope for a single-shot sampler.
func SampleBeta(rng *rand.Rand, a, b float64) float64 {
	x := sampleGamma(rng, a)
	y := sampleGamma(rng, b)
	if x+y == 0 {
		return 0.5
	}
	return x / (x + y)
}

// sampleGamma draws a Gamma(shape, 1) variate using the Marsaglia-Tsang
// method (shape >= 1; for shape < 1 boosts via the standard X*U^(1/shape)
// trick).
func sampleGamma(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		u := rng.Float64()
		return sampleGamma(rng, shape+1) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}
