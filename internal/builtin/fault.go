package builtin

import (
	"sync"

	"github.com/simba-sim/simba/internal/module"
	"github.com/simba-sim/simba/internal/rng"
)

// GaussianFault adds independent zero-mean Gaussian noise to an
// observation's positional fields, drawn from the module's own named
// RNG stream so a fixed seed reproduces the exact same noise sequence
// (spec §4.1, scenario S6 reproducibility).
type GaussianFault struct {
	name   string
	stddev float64
}

// NewGaussianFault builds a fault with the given standard deviation,
// applied uniformly across whichever positional fields the observation
// carries.
func NewGaussianFault(name string, stddev float64) *GaussianFault {
	return &GaussianFault{name: name, stddev: stddev}
}

func (f *GaussianFault) Name() string { return f.name }

func (f *GaussianFault) Apply(ctx *module.Context, obs module.Observation) (module.Observation, error) {
	noise := func(stream *rng.Stream) float64 {
		if stream == nil {
			return 0
		}
		return stream.Normal(0, f.stddev).Sample()
	}
	switch obs.Kind {
	case module.ObservationGNSS:
		obs.GNSS.X += noise(ctx.Rand)
		obs.GNSS.Y += noise(ctx.Rand)
	case module.ObservationRobot:
		obs.Robot.Range += noise(ctx.Rand)
		obs.Robot.Bearing += noise(ctx.Rand)
	case module.ObservationLandmark:
		obs.Landmark.Range += noise(ctx.Rand)
		obs.Landmark.Bearing += noise(ctx.Rand)
	case module.ObservationSpeed:
		obs.Speed.Velocity.Longitudinal += noise(ctx.Rand)
	case module.ObservationDisplacement:
		obs.Displacement.DX += noise(ctx.Rand)
		obs.Displacement.DY += noise(ctx.Rand)
	}
	return obs, nil
}

// CorrelatedGaussianFault adds one correlated 2-D Gaussian noise draw to
// an observation's paired positional fields, rather than independent
// per-field noise (spec §4.1's vector distribution with a covariance
// matrix). A single VectorDistribution is built lazily from the first
// stream it sees and reused for that stream's lifetime.
type CorrelatedGaussianFault struct {
	name string
	cov  [][]float64

	mu      sync.Mutex
	stream  *rng.Stream
	samples rng.VectorDistribution
}

// NewCorrelatedGaussianFault builds a fault that draws a zero-mean
// bivariate Gaussian from cov, a 2x2 symmetric positive semi-definite
// covariance matrix, and adds it to whichever pair of positional fields
// the observation carries.
func NewCorrelatedGaussianFault(name string, cov [][]float64) *CorrelatedGaussianFault {
	return &CorrelatedGaussianFault{name: name, cov: cov}
}

func (f *CorrelatedGaussianFault) Name() string { return f.name }

func (f *CorrelatedGaussianFault) Apply(ctx *module.Context, obs module.Observation) (module.Observation, error) {
	if ctx.Rand == nil {
		return obs, nil
	}
	dist, err := f.distributionFor(ctx.Rand)
	if err != nil {
		return obs, err
	}
	sample := dist.SampleVector()
	switch obs.Kind {
	case module.ObservationGNSS:
		obs.GNSS.X += sample[0]
		obs.GNSS.Y += sample[1]
	case module.ObservationRobot:
		obs.Robot.Range += sample[0]
		obs.Robot.Bearing += sample[1]
	case module.ObservationLandmark:
		obs.Landmark.Range += sample[0]
		obs.Landmark.Bearing += sample[1]
	case module.ObservationDisplacement:
		obs.Displacement.DX += sample[0]
		obs.Displacement.DY += sample[1]
	}
	return obs, nil
}

func (f *CorrelatedGaussianFault) distributionFor(stream *rng.Stream) (rng.VectorDistribution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.samples != nil && f.stream == stream {
		return f.samples, nil
	}
	dist, err := stream.NormalVector([]float64{0, 0}, f.cov)
	if err != nil {
		return nil, err
	}
	f.stream = stream
	f.samples = dist
	return dist, nil
}
