package model

// Colour of a beer.
type Colour string

const (
	ColourDark  Colour = "DARK"
	ColourPale  Colour = "PALE"
	ColourWhite Colour = "WHITE"
)

// FoodType classifies a Food.
type FoodType string

const (
	FoodTypeMeat       FoodType = "MEAT"
	FoodTypeFish       FoodType = "FISH"
	FoodTypeVegetables FoodType = "VEGETABLES"
	FoodTypeCheese     FoodType = "CHEESE"
)

// Beer is the sample record indexed by the exercises.
type Beer struct {
	Brand  string  `json:"brand"`
	Colour Colour  `json:"colour"`
	Size   float64 `json:"size"`  // litres
	Price  float64 `json:"price"` // euros
}

// Food is a second sample record carrying a multi-valued tags field.
type Food struct {
	Type  FoodType `json:"type"`
	Price float64  `json:"price"`
	Tags  []string `json:"tags"`
}
