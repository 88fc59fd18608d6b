package types

import "testing"

func TestTopicForItem(t *testing.T) {
	t.Parallel()

	tests := []struct {
		item string
		want string
	}{
		{"potato", TopicRawGoods},
		{"stone", TopicRawGoods},
		{"soup", TopicFood},
		{"shelf", TopicMaterials},
		{"wall", TopicMaterials},
		{"furniture", TopicHousing},
		{"house", TopicHousing},
		{"plutonium", TopicGeneral}, // unknown items route to the general market
	}

	for _, tt := range tests {
		if got := TopicForItem(tt.item); got != tt.want {
			t.Errorf("TopicForItem(%q) = %q, want %q", tt.item, got, tt.want)
		}
	}
}

func TestCatalogueLookups(t *testing.T) {
	t.Parallel()

	if !ValidItem("potato") {
		t.Error("ValidItem(potato) = false, want true")
	}
	if ValidItem("gold") {
		t.Error("ValidItem(gold) = true, want false")
	}
	if !ValidRecipe("soup") {
		t.Error("ValidRecipe(soup) = false, want true")
	}
	if ValidRecipe("potato") {
		t.Error("ValidRecipe(potato) = true, want false")
	}
}

// Every recipe must reference catalogue items only, name its own output,
// and carry positive quantities and durations.
func TestRecipeIntegrity(t *testing.T) {
	t.Parallel()

	for name, recipe := range Recipes {
		if recipe.Name != name {
			t.Errorf("recipe %q: Name = %q, want key", name, recipe.Name)
		}
		if recipe.Output != name {
			t.Errorf("recipe %q: Output = %q, want recipe name", name, recipe.Output)
		}
		if !ValidItem(recipe.Output) {
			t.Errorf("recipe %q: output is not a catalogue item", name)
		}
		if !Items[recipe.Output].Craftable {
			t.Errorf("recipe %q: output item is not marked craftable", name)
		}
		if recipe.OutputQuantity <= 0 {
			t.Errorf("recipe %q: OutputQuantity = %d, want > 0", name, recipe.OutputQuantity)
		}
		if recipe.Ticks <= 0 {
			t.Errorf("recipe %q: Ticks = %d, want > 0", name, recipe.Ticks)
		}
		if len(recipe.Inputs) == 0 {
			t.Errorf("recipe %q: no inputs", name)
		}
		for item, count := range recipe.Inputs {
			if !ValidItem(item) {
				t.Errorf("recipe %q: input %q is not a catalogue item", name, item)
			}
			if count <= 0 {
				t.Errorf("recipe %q: input %q count = %d, want > 0", name, item, count)
			}
		}
	}
}

func TestItemIntegrity(t *testing.T) {
	t.Parallel()

	for name, item := range Items {
		if item.Name != name {
			t.Errorf("item %q: Name = %q, want key", name, item.Name)
		}
		if item.BasePrice <= 0 {
			t.Errorf("item %q: BasePrice = %v, want > 0", name, item.BasePrice)
		}
		if item.Craftable != ValidRecipe(name) {
			t.Errorf("item %q: Craftable = %v but recipe existence = %v", name, item.Craftable, ValidRecipe(name))
		}
	}
}
