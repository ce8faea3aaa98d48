/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */

// Package glicko2 implements the Glicko-2 rating system as described in
// Mark E. Glickman's paper:
//   http://www.glicko.net/glicko/glicko2.pdf
//
// All operations are pure; every update returns a new Rating.
package glicko2

import (
	"errors"
	"fmt"
	"math"
)

const (
	Win  = 1.0
	Draw = 0.5
	Loss = 0.0
)

const (
	DefaultMu      = 1500.0
	DefaultPhi     = 350.0
	DefaultSigma   = 0.06
	DefaultTau     = 0.5
	DefaultEpsilon = 0.000001

	// DefaultMaxIterations bounds each loop of the volatility solver.
	DefaultMaxIterations = 10000

	// ratio between the public 1500-centered scale and the Glicko-2 scale
	scaleRatio = 173.7178
)

var (
	ErrInvalidRating = errors.New("glicko2: invalid rating")
	ErrNoConvergence = errors.New("glicko2: volatility did not converge")
)

// Rating is a player's strength estimate on the public scale.
type Rating struct {
	Mu    float64 `json:"mu"`
	Phi   float64 `json:"phi"`
	Sigma float64 `json:"sigma"`
}

func NewRating(mu, phi, sigma float64) Rating {
	return Rating{Mu: mu, Phi: phi, Sigma: sigma}
}

func (r Rating) String() string {
	return fmt.Sprintf("Rating(mu=%.3f, phi=%.3f, sigma=%.3f)", r.Mu, r.Phi,
		r.Sigma)
}

func (r Rating) validate() error {
	if math.IsNaN(r.Mu) || math.IsInf(r.Mu, 0) {
		return fmt.Errorf("%w: mu=%v", ErrInvalidRating, r.Mu)
	}
	if !(r.Phi > 0) || math.IsInf(r.Phi, 0) {
		return fmt.Errorf("%w: phi=%v", ErrInvalidRating, r.Phi)
	}
	if !(r.Sigma > 0) || math.IsInf(r.Sigma, 0) {
		return fmt.Errorf("%w: sigma=%v", ErrInvalidRating, r.Sigma)
	}
	return nil
}

// Result is one game of a rating period: the score achieved (Win, Draw or
// Loss) against an opponent's rating as of the start of the period.
type Result struct {
	Score    float64
	Opponent Rating
}

// System holds the system-wide constants used by every update.
type System struct {
	mu      float64
	phi     float64
	sigma   float64
	tau     float64
	epsilon float64
	maxIter int
}

type Option func(*System)

func WithTau(tau float64) Option {
	return func(s *System) { s.tau = tau }
}

func WithEpsilon(epsilon float64) Option {
	return func(s *System) { s.epsilon = epsilon }
}

// WithDefaults overrides the base rating handed out by CreateRating. The mu
// value is also the center of the scale transform.
func WithDefaults(mu, phi, sigma float64) Option {
	return func(s *System) {
		s.mu = mu
		s.phi = phi
		s.sigma = sigma
	}
}

func WithMaxIterations(n int) Option {
	return func(s *System) { s.maxIter = n }
}

func New(opts ...Option) *System {
	s := &System{
		mu:      DefaultMu,
		phi:     DefaultPhi,
		sigma:   DefaultSigma,
		tau:     DefaultTau,
		epsilon: DefaultEpsilon,
		maxIter: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxIter <= 0 {
		s.maxIter = DefaultMaxIterations
	}

	return s
}

// CreateRating returns a rating at the system's base values.
func (s *System) CreateRating() Rating {
	return Rating{Mu: s.mu, Phi: s.phi, Sigma: s.sigma}
}

func (s *System) scaleDown(r Rating) Rating {
	return Rating{
		Mu:    (r.Mu - s.mu) / scaleRatio,
		Phi:   r.Phi / scaleRatio,
		Sigma: r.Sigma,
	}
}

func (s *System) scaleUp(r Rating) Rating {
	return Rating{
		Mu:    r.Mu*scaleRatio + s.mu,
		Phi:   r.Phi * scaleRatio,
		Sigma: r.Sigma,
	}
}

// reduceImpact is g(phi): it shrinks the weight of opponents whose rating is
// uncertain.
func reduceImpact(r Rating) float64 {
	return 1.0 / math.Sqrt(1+(3*r.Phi*r.Phi)/(math.Pi*math.Pi))
}

func expectScore(r Rating, other Rating, impact float64) float64 {
	return 1.0 / (1 + math.Exp(-impact*(r.Mu-other.Mu)))
}

// determineSigma solves for the new volatility using the Illinois variant of
// regula falsi. r must already be on the Glicko-2 scale.
func (s *System) determineSigma(r Rating, difference float64,
	variance float64) (float64, error) {

	phi := r.Phi
	differenceSquared := difference * difference
	alpha := math.Log(r.Sigma * r.Sigma)
	tauSquared := s.tau * s.tau
	if math.IsInf(alpha, 0) || math.IsNaN(alpha) || !(tauSquared > 0) {
		return 0, fmt.Errorf("%w: sigma=%v tau=%v", ErrNoConvergence, r.Sigma,
			s.tau)
	}

	f := func(x float64) float64 {
		ex := math.Exp(x)
		tmp := phi*phi + variance + ex
		a := ex * (differenceSquared - tmp) / (2 * tmp * tmp)
		b := (x - alpha) / tauSquared
		return a - b
	}

	a := alpha
	var b float64
	if differenceSquared > phi*phi+variance {
		b = math.Log(differenceSquared - phi*phi - variance)
	} else {
		k := 1.0
		for f(alpha-k*s.tau) < 0 {
			k++
			if int(k) > s.maxIter {
				return 0, fmt.Errorf("%w: unable to bracket root after %v steps",
					ErrNoConvergence, s.maxIter)
			}
		}
		b = alpha - k*s.tau
	}

	fA := f(a)
	fB := f(b)
	for i := 0; math.Abs(b-a) > s.epsilon; i++ {
		if i >= s.maxIter {
			return 0, fmt.Errorf("%w: |B-A|=%v after %v iterations",
				ErrNoConvergence, math.Abs(b-a), s.maxIter)
		}
		c := a + (a-b)*fA/(fB-fA)
		fC := f(c)
		if math.IsNaN(fC) || math.IsInf(fC, 0) {
			return 0, fmt.Errorf("%w: f(%v) is not finite", ErrNoConvergence, c)
		}

		if fC*fB < 0 {
			a = b
			fA = fB
		} else {
			fA /= 2
		}
		b = c
		fB = fC
	}

	return math.Exp(a / 2), nil
}

// Rate returns the player's rating after a rating period containing series.
// An empty series models a period without games: only the deviation grows.
func (s *System) Rate(rating Rating, series []Result) (Rating, error) {
	if err := rating.validate(); err != nil {
		return Rating{}, err
	}
	r := s.scaleDown(rating)

	if len(series) == 0 {
		phiStar := math.Sqrt(r.Phi*r.Phi + r.Sigma*r.Sigma)
		return s.scaleUp(Rating{Mu: r.Mu, Phi: phiStar, Sigma: r.Sigma}), nil
	}

	varianceInv := 0.0
	difference := 0.0
	for _, res := range series {
		if err := res.Opponent.validate(); err != nil {
			return Rating{}, fmt.Errorf("opponent: %w", err)
		}
		other := s.scaleDown(res.Opponent)
		impact := reduceImpact(other)
		expected := expectScore(r, other, impact)

		varianceInv += impact * impact * expected * (1 - expected)
		difference += impact * (res.Score - expected)
	}
	if !(varianceInv > 0) || math.IsInf(varianceInv, 0) {
		return Rating{}, fmt.Errorf("%w: degenerate variance %v",
			ErrNoConvergence, varianceInv)
	}

	difference /= varianceInv
	variance := 1.0 / varianceInv

	sigma, err := s.determineSigma(r, difference, variance)
	if err != nil {
		return Rating{}, err
	}

	phiStar := math.Sqrt(r.Phi*r.Phi + sigma*sigma)
	phi := 1.0 / math.Sqrt(1/(phiStar*phiStar)+1/variance)
	mu := r.Mu + phi*phi*(difference/variance)

	return s.scaleUp(Rating{Mu: mu, Phi: phi, Sigma: sigma}), nil
}

// Rate1vs1 rates a single game between a and b. When drawn is false a won.
// Both updates use the pre-game ratings of the opponent.
func (s *System) Rate1vs1(a Rating, b Rating, drawn bool) (Rating, Rating,
	error) {

	scoreA, scoreB := Win, Loss
	if drawn {
		scoreA, scoreB = Draw, Draw
	}

	newA, err := s.Rate(a, []Result{{Score: scoreA, Opponent: b}})
	if err != nil {
		return Rating{}, Rating{}, err
	}
	newB, err := s.Rate(b, []Result{{Score: scoreB, Opponent: a}})
	if err != nil {
		return Rating{}, Rating{}, err
	}

	return newA, newB, nil
}

// Quality1vs1 returns how evenly matched a and b are, from 0 (one-sided) to 1
// (even). The combined deviation of both players discounts the expected
// score, unlike the common formulation that averages each side's expected
// score under its own deviation.
func (s *System) Quality1vs1(a Rating, b Rating) float64 {
	ga := s.scaleDown(a)
	gb := s.scaleDown(b)
	combined := Rating{Phi: math.Sqrt(ga.Phi*ga.Phi + gb.Phi*gb.Phi)}
	expected := expectScore(ga, gb, reduceImpact(combined))

	return 2 * (0.5 - math.Abs(0.5-expected))
}
