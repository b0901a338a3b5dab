package model

import (
	"math/rand/v2"
)

// Brands is the closed set of brands produced by BeerGenerator.
var Brands = []string{"Heineken", "Grimbergen", "Kriek"}

// Colours is the closed set of colours produced by BeerGenerator.
var Colours = []Colour{ColourDark, ColourPale, ColourWhite}

// BeerGenerator produces random beers from a seeded source, so a given seed
// always yields the same sequence.
type BeerGenerator struct {
	rng *rand.Rand
}

// NewBeerGenerator creates a generator seeded with seed.
func NewBeerGenerator(seed uint64) *BeerGenerator {
	return &BeerGenerator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Generate returns one beer: a brand and colour picked uniformly,
// size in [0, 2) litres and price in [0, 10) euros.
func (g *BeerGenerator) Generate() Beer {
	return Beer{
		Brand:  Brands[g.rng.IntN(len(Brands))],
		Colour: Colours[g.rng.IntN(len(Colours))],
		Size:   g.rng.Float64() * 2,
		Price:  g.rng.Float64() * 10,
	}
}

// GenerateN returns n beers.
func (g *BeerGenerator) GenerateN(n int) []Beer {
	beers := make([]Beer, n)
	for i := range beers {
		beers[i] = g.Generate()
	}
	return beers
}
