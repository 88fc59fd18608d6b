package types

// ————————————————————————————————————————————————————————————————————————
// Catalogue
// ————————————————————————————————————————————————————————————————————————

// Category classifies a catalogue item and decides which market topic its
// trade lands on.
type Category string

const (
	CategoryRaw      Category = "raw"      // gathered from nature, not craftable
	CategoryFood     Category = "food"     // crafted consumables
	CategoryMaterial Category = "material" // crafted building inputs
	CategoryHousing  Category = "housing"  // crafted end goods
)

// CatalogueItem is one tradeable good.
type CatalogueItem struct {
	Name      string   `json:"name"`
	Category  Category `json:"category"`
	BasePrice float64  `json:"base_price"`
	Craftable bool     `json:"craftable"`
}

// Recipe transforms a multiset of input items into an output item over a
// fixed number of ticks. A recipe's name equals its output item's name.
type Recipe struct {
	Name           string         `json:"name"`
	Inputs         map[string]int `json:"inputs"`
	Output         string         `json:"output"`
	OutputQuantity int            `json:"output_quantity"`
	Ticks          int            `json:"ticks"`
}

// Items is the static item catalogue. Read-only at runtime.
var Items = map[string]CatalogueItem{
	"potato": {Name: "potato", Category: CategoryRaw, BasePrice: 2.0},
	"onion":  {Name: "onion", Category: CategoryRaw, BasePrice: 2.0},
	"wood":   {Name: "wood", Category: CategoryRaw, BasePrice: 3.0},
	"nails":  {Name: "nails", Category: CategoryRaw, BasePrice: 1.0},
	"stone":  {Name: "stone", Category: CategoryRaw, BasePrice: 4.0},

	"soup":      {Name: "soup", Category: CategoryFood, BasePrice: 8.0, Craftable: true},
	"shelf":     {Name: "shelf", Category: CategoryMaterial, BasePrice: 10.0, Craftable: true},
	"wall":      {Name: "wall", Category: CategoryMaterial, BasePrice: 15.0, Craftable: true},
	"furniture": {Name: "furniture", Category: CategoryHousing, BasePrice: 30.0, Craftable: true},
	"house":     {Name: "house", Category: CategoryHousing, BasePrice: 100.0, Craftable: true},
}

// Recipes is the static recipe book. Read-only at runtime.
var Recipes = map[string]Recipe{
	"soup": {
		Name:           "soup",
		Inputs:         map[string]int{"potato": 2, "onion": 1},
		Output:         "soup",
		OutputQuantity: 1,
		Ticks:          2,
	},
	"shelf": {
		Name:           "shelf",
		Inputs:         map[string]int{"wood": 3, "nails": 2},
		Output:         "shelf",
		OutputQuantity: 1,
		Ticks:          3,
	},
	"wall": {
		Name:           "wall",
		Inputs:         map[string]int{"stone": 4, "wood": 2},
		Output:         "wall",
		OutputQuantity: 1,
		Ticks:          4,
	},
	"furniture": {
		Name:           "furniture",
		Inputs:         map[string]int{"wood": 5, "nails": 4},
		Output:         "furniture",
		OutputQuantity: 1,
		Ticks:          5,
	},
	"house": {
		Name:           "house",
		Inputs:         map[string]int{"wall": 4, "shelf": 2, "furniture": 3},
		Output:         "house",
		OutputQuantity: 1,
		Ticks:          10,
	},
}

// ValidItem reports whether name exists in the item catalogue.
func ValidItem(name string) bool {
	_, ok := Items[name]
	return ok
}

// ValidRecipe reports whether name exists in the recipe book.
func ValidRecipe(name string) bool {
	_, ok := Recipes[name]
	return ok
}

// TopicForItem returns the market topic goods of this item trade on.
// Unknown items land on the general market rather than failing: routing
// is advisory, the Governor owns catalogue enforcement.
func TopicForItem(name string) string {
	item, ok := Items[name]
	if !ok {
		return TopicGeneral
	}
	switch item.Category {
	case CategoryRaw:
		return TopicRawGoods
	case CategoryFood:
		return TopicFood
	case CategoryMaterial:
		return TopicMaterials
	case CategoryHousing:
		return TopicHousing
	default:
		return TopicGeneral
	}
}
