// Package model contains domain models passed between layers.
package model

import (
	"math"
	"strings"
)

// Position is the playing role used for display grouping.
type Position string

// Supported positions. Goalkeepers are not modelled separately.
const (
	PositionDEF Position = "DEF"
	PositionMID Position = "MID"
	PositionFWD Position = "FWD"
)

// Order returns the display rank of the position: DEF < MID < FWD < unknown.
func (p Position) Order() int {
	switch p {
	case PositionDEF:
		return 1
	case PositionMID:
		return 2
	case PositionFWD:
		return 3
	default:
		return 99
	}
}

// ParsePosition normalises a free-form position label. Empty or unknown
// labels fall back to MID.
func ParsePosition(s string) Position {
	switch Position(strings.ToUpper(strings.TrimSpace(s))) {
	case PositionDEF:
		return PositionDEF
	case PositionFWD:
		return PositionFWD
	default:
		return PositionMID
	}
}

// Attribute defaults applied to guests and to roster rows with missing cells.
const (
	DefaultAttribute  = 70.0
	DefaultStarRating = 3.0
)

// RatedPlayer is a person eligible for a match.
type RatedPlayer struct {
	Name        string   `json:"name" yaml:"name"`
	Position    Position `json:"position" yaml:"position"`
	Pace        float64  `json:"pac" yaml:"pac"`
	Shooting    float64  `json:"sho" yaml:"sho"`
	Passing     float64  `json:"pas" yaml:"pas"`
	Dribbling   float64  `json:"dri" yaml:"dri"`
	Defending   float64  `json:"def" yaml:"def"`
	Physicality float64  `json:"phy" yaml:"phy"`
	StarRating  float64  `json:"star_rating" yaml:"star_rating"`
}

// Overall is the mean of the six attributes rounded to one decimal.
func (p RatedPlayer) Overall() float64 {
	sum := p.Pace + p.Shooting + p.Passing + p.Dribbling + p.Defending + p.Physicality
	return math.Round(sum/6*10) / 10
}

// Guest synthesises a MID player with every attribute set to rating.
func Guest(name string, rating float64) RatedPlayer {
	return RatedPlayer{
		Name:        name,
		Position:    PositionMID,
		Pace:        rating,
		Shooting:    rating,
		Passing:     rating,
		Dribbling:   rating,
		Defending:   rating,
		Physicality: rating,
		StarRating:  DefaultStarRating,
	}
}
