package signal

import "math"

const (
	gravitationalConstant = 6.67430e-11 // m³ kg⁻¹ s⁻²
	secondsPerDay         = 86400.0

	keplerTolerance = 1e-12
	keplerMaxIter   = 50
)

// Orbit is a Keplerian orbit referenced to the time of transit center.
// Omega is the argument of periastron in radians; the transit happens at true
// anomaly f = π/2 - Omega.
type Orbit struct {
	Period float64
	T0     float64
	Ecc    float64
	Omega  float64
}

// periastronTime is the time of periastron passage implied by T0.
func (o Orbit) periastronTime() float64 {
	fTransit := math.Pi/2 - o.Omega
	eTransit := 2 * math.Atan(math.Sqrt((1-o.Ecc)/(1+o.Ecc))*math.Tan(fTransit/2))
	mTransit := eTransit - o.Ecc*math.Sin(eTransit)
	return o.T0 - mTransit/(2*math.Pi)*o.Period
}

// Anomalies returns the eccentric and true anomaly at each time.
func (o Orbit) Anomalies(times []float64) (ecc, trueAnom []float64) {
	tp := o.periastronTime()
	ecc = make([]float64, len(times))
	trueAnom = make([]float64, len(times))
	for i, t := range times {
		m := 2 * math.Pi * (t - tp) / o.Period
		e := EccentricAnomaly(m, o.Ecc)
		ecc[i] = e
		trueAnom[i] = 2 * math.Atan2(math.Sqrt(1+o.Ecc)*math.Sin(e/2), math.Sqrt(1-o.Ecc)*math.Cos(e/2))
	}
	return ecc, trueAnom
}

// EccentricAnomaly solves Kepler's equation E - e sin E = M by Newton
// iteration.
func EccentricAnomaly(m, e float64) float64 {
	m = math.Mod(m, 2*math.Pi)
	if m < 0 {
		m += 2 * math.Pi
	}
	if e == 0 {
		return m
	}
	E := m
	if e > 0.8 {
		E = math.Pi
	}
	for i := 0; i < keplerMaxIter; i++ {
		f := E - e*math.Sin(E) - m
		step := f / (1 - e*math.Cos(E))
		E -= step
		if math.Abs(step) < keplerTolerance {
			break
		}
	}
	return E
}

// ScaledSemiMajorAxis converts a stellar density in kg/m³ into a/R* for a
// period in days.
func ScaledSemiMajorAxis(rho, periodDays float64) float64 {
	p := periodDays * secondsPerDay
	return math.Cbrt(rho * gravitationalConstant * p * p / (3 * math.Pi))
}
