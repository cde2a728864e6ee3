package gemini

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
)

// parseRecipe decodes the model's JSON answer. Malformed JSON is run
// through jsonrepair once; if that fails too the result is an empty
// recipe. repaired reports whether the raw text was not valid JSON.
func parseRecipe(text string) (recipe kitchen.Recipe, repaired bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return kitchen.Recipe{}, false
	}

	if err := json.Unmarshal([]byte(text), &recipe); err == nil {
		return recipe, false
	}

	fixed, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return kitchen.Recipe{}, true
	}
	recipe = kitchen.Recipe{}
	if err := json.Unmarshal([]byte(fixed), &recipe); err != nil {
		return kitchen.Recipe{}, true
	}
	return recipe, true
}
