package model

// Category classifies equipment. The set is fixed.
type Category string

const (
	CategoryPhoto       Category = "Photo"
	CategoryVideo       Category = "Vidéo"
	CategorySound       Category = "Son"
	CategoryLight       Category = "Lumière"
	CategoryAccessories Category = "Accessoires"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryPhoto,
	CategoryVideo,
	CategorySound,
	CategoryLight,
	CategoryAccessories,
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
