package rng

import (
	"math"
	"math/rand"

	"github.com/simba-sim/simba/internal/simerr"
	"gonum.org/v1/gonum/mat"
)

// Distribution is a scalar random variable bound to one stream.
type Distribution interface {
	// Sample draws the next value from the distribution's stream.
	Sample() float64
}

// VectorDistribution is a multivariate random variable, currently only
// produced by Stream.NormalVector.
type VectorDistribution interface {
	SampleVector() []float64
}

// Stream is one named, independently-seeded random generator.
type Stream struct {
	name string
	rng  *rand.Rand
}

// Name returns the stream's stable identifier.
func (s *Stream) Name() string { return s.name }

// Rand exposes the underlying generator for callers that need raw draws
// (e.g. shuffling a slice) without a named Distribution wrapper.
func (s *Stream) Rand() *rand.Rand { return s.rng }

// Fixed always returns value; used for deterministic scenario parameters
// that are configured as constants rather than random variables.
func (s *Stream) Fixed(value float64) Distribution {
	return fixedVariable{value: value}
}

type fixedVariable struct{ value float64 }

func (f fixedVariable) Sample() float64 { return f.value }

// Value reports the constant this Fixed distribution always returns.
// Callers that need to distinguish a fixed scenario parameter from a
// genuinely random one (spec §4.5 Time trigger) can type-assert for
// this method.
func (f fixedVariable) Value() (float64, bool) { return f.value, true }

// Uniform draws from [low, high).
func (s *Stream) Uniform(low, high float64) Distribution {
	return &uniformVariable{stream: s, low: low, high: high}
}

type uniformVariable struct {
	stream    *Stream
	low, high float64
}

func (u *uniformVariable) Sample() float64 {
	return u.low + u.stream.rng.Float64()*(u.high-u.low)
}

// Normal draws from a univariate Gaussian with the given mean and standard
// deviation.
func (s *Stream) Normal(mean, stddev float64) Distribution {
	return &normalVariable{stream: s, mean: mean, stddev: stddev}
}

type normalVariable struct {
	stream       *Stream
	mean, stddev float64
}

func (n *normalVariable) Sample() float64 {
	return n.mean + n.stream.rng.NormFloat64()*n.stddev
}

// Poisson draws from a Poisson distribution with rate lambda, using
// Knuth's multiplication algorithm (adequate for the small lambdas typical
// of scenario occurrence counts and sensor dropout modeling).
func (s *Stream) Poisson(lambda float64) Distribution {
	return &poissonVariable{stream: s, lambda: lambda}
}

type poissonVariable struct {
	stream *Stream
	lambda float64
}

func (p *poissonVariable) Sample() float64 {
	l := math.Exp(-p.lambda)
	k := 0
	pr := 1.0
	for {
		k++
		pr *= p.stream.rng.Float64()
		if pr <= l {
			break
		}
	}
	return float64(k - 1)
}

// Exponential draws from an exponential distribution with the given rate.
func (s *Stream) Exponential(rate float64) Distribution {
	return &exponentialVariable{stream: s, rate: rate}
}

type exponentialVariable struct {
	stream *Stream
	rate   float64
}

func (e *exponentialVariable) Sample() float64 {
	return e.stream.rng.ExpFloat64() / e.rate
}

// Bernoulli draws 1 with probability p and 0 otherwise.
func (s *Stream) Bernoulli(p float64) Distribution {
	return &bernoulliVariable{stream: s, p: p}
}

type bernoulliVariable struct {
	stream *Stream
	p      float64
}

func (b *bernoulliVariable) Sample() float64 {
	if b.stream.rng.Float64() < b.p {
		return 1
	}
	return 0
}

// NormalVector draws from a multivariate Gaussian with the given mean
// vector and covariance matrix. cov must be symmetric positive
// semi-definite; a violation returns InvalidCovarianceError.
//
// Sampling uses the eigendecomposition of cov rather than a Cholesky
// factorization so that singular (rank-deficient, but still valid PSD)
// covariances - e.g. a sensor axis with zero noise - are accepted.
func (s *Stream) NormalVector(mean []float64, cov [][]float64) (VectorDistribution, error) {
	n := len(mean)
	if n == 0 || len(cov) != n {
		return nil, &simerr.InvalidCovarianceError{Stream: s.name}
	}
	symCov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if len(cov[i]) != n {
			return nil, &simerr.InvalidCovarianceError{Stream: s.name}
		}
		for j := i; j < n; j++ {
			if math.Abs(cov[i][j]-cov[j][i]) > 1e-9 {
				return nil, &simerr.InvalidCovarianceError{Stream: s.name}
			}
			symCov.SetSym(i, j, cov[i][j])
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(symCov, true); !ok {
		return nil, &simerr.InvalidCovarianceError{Stream: s.name}
	}
	values := eig.Values(nil)
	sqrtEigs := make([]float64, n)
	for i, v := range values {
		if v < -1e-9 {
			return nil, &simerr.InvalidCovarianceError{Stream: s.name}
		}
		if v < 0 {
			v = 0
		}
		sqrtEigs[i] = math.Sqrt(v)
	}
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	return &normalVectorVariable{
		stream:   s,
		mean:     append([]float64(nil), mean...),
		vectors:  &vectors,
		sqrtEigs: sqrtEigs,
	}, nil
}

type normalVectorVariable struct {
	stream   *Stream
	mean     []float64
	vectors  *mat.Dense
	sqrtEigs []float64
}

func (nv *normalVectorVariable) SampleVector() []float64 {
	n := len(nv.mean)
	z := make([]float64, n)
	for i := range z {
		z[i] = nv.stream.rng.NormFloat64() * nv.sqrtEigs[i]
	}
	zVec := mat.NewVecDense(n, z)
	var y mat.VecDense
	y.MulVec(nv.vectors, zVec)

	out := make([]float64, n)
	for i := range out {
		out[i] = nv.mean[i] + y.AtVec(i)
	}
	return out
}
