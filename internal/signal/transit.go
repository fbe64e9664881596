package signal

import "math"

// TransitParams are the physical inputs of a single-planet transit.
type TransitParams struct {
	Orbit
	RadiusRatio float64 // Rp/R*
	Impact      float64 // impact parameter b
	A           float64 // scaled semi-major axis a/R*
	U1, U2      float64 // quadratic limb-darkening coefficients
}

// TransitShape computes the normalised flux of one transiting planet; 1 out
// of transit. Implementations are pure and are handed validated parameters.
type TransitShape interface {
	Flux(times []float64, p TransitParams) []float64
}

// SmallPlanet is the built-in TransitShape. It uses the exact uniform-disk
// overlap area and scales it by the quadratic limb-darkened intensity at the
// planet's position, which is accurate for Rp/R* of a few percent. Replace it
// with a full limb-darkening integral when fitting large planets.
type SmallPlanet struct{}

var _ TransitShape = SmallPlanet{}

// Flux implements TransitShape.
func (SmallPlanet) Flux(times []float64, p TransitParams) []float64 {
	out := make([]float64, len(times))
	z, front := skySeparation(times, p)
	norm := 1 - p.U1/3 - p.U2/6
	for i := range times {
		if !front[i] {
			out[i] = 1
			continue
		}
		area := overlap(z[i], p.RadiusRatio)
		if area == 0 {
			out[i] = 1
			continue
		}
		r := z[i]
		if r > 1-p.RadiusRatio {
			// Partial overlap: sample the intensity mid-way across the chord.
			r = (z[i] - p.RadiusRatio + 1) / 2
		}
		r = math.Min(math.Max(r, 0), 1)
		mu := math.Sqrt(1 - r*r)
		intensity := 1 - p.U1*(1-mu) - p.U2*(1-mu)*(1-mu)
		out[i] = 1 - area/math.Pi*intensity/norm
	}
	return out
}

// skySeparation returns the projected star-planet distance in stellar radii
// and whether the planet is in front of the star.
func skySeparation(times []float64, p TransitParams) (z []float64, front []bool) {
	cosI := inclinationCosine(p)
	sinI := math.Sqrt(1 - cosI*cosI)
	eccAnom, trueAnom := p.Anomalies(times)
	z = make([]float64, len(times))
	front = make([]bool, len(times))
	for i := range times {
		r := p.A * (1 - p.Ecc*math.Cos(eccAnom[i]))
		phase := p.Omega + trueAnom[i]
		x := -r * math.Cos(phase)
		y := -r * math.Sin(phase) * cosI
		z[i] = math.Hypot(x, y)
		front[i] = r*math.Sin(phase)*sinI > 0
	}
	return z, front
}

// inclinationCosine inverts b = a cos i (1-e²)/(1+e sin ω).
func inclinationCosine(p TransitParams) float64 {
	return p.Impact * (1 + p.Ecc*math.Sin(p.Omega)) / (p.A * (1 - p.Ecc*p.Ecc))
}

// overlap is the area of the intersection of the unit stellar disk and a
// planet disk of radius k at center distance z.
func overlap(z, k float64) float64 {
	switch {
	case z >= 1+k:
		return 0
	case z <= k-1:
		return math.Pi
	case z <= 1-k:
		return math.Pi * k * k
	}
	k0 := math.Acos(clamp((k*k + z*z - 1) / (2 * k * z)))
	k1 := math.Acos(clamp((1 - k*k + z*z) / (2 * z)))
	return k*k*k0 + k1 - 0.5*math.Sqrt(math.Max(4*z*z-(1+z*z-k*k)*(1+z*z-k*k), 0))
}

func clamp(v float64) float64 {
	return math.Min(math.Max(v, -1), 1)
}

// LimbDarkening converts Kipping's (q1, q2) into quadratic (u1, u2). With
// hasQ2 false the law is linear and q1 is u1.
func LimbDarkening(q1, q2 float64, hasQ2 bool) (u1, u2 float64) {
	if !hasQ2 {
		return q1, 0
	}
	s := math.Sqrt(q1)
	return 2 * s * q2, s * (1 - 2*q2)
}
