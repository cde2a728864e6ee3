package gemini

import (
	"fmt"

	"google.golang.org/genai"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
)

var recipeSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title":   {Type: genai.TypeString},
		"content": {Type: genai.TypeString},
	},
	Required: []string{"title", "content"},
}

func recipePrompt(locale kitchen.Locale, ingredients string) string {
	if locale == kitchen.LocaleEnglish {
		return fmt.Sprintf(`Suggest a delicious recipe that uses these ingredients: %s.
Answer strictly in JSON.
Format: { "title": "dish name", "content": "detailed recipe (markdown)" }`, ingredients)
	}
	return fmt.Sprintf(`다음 재료들을 활용한 맛있는 요리 레시피를 추천해주세요: %s.
답변은 반드시 JSON 형식으로 해주세요.
형식: { "title": "요리 제목", "content": "상세 레시피 내용(마크다운 형식)" }`, ingredients)
}

func photoPrompt(dish string) string {
	return fmt.Sprintf("A professional, high-quality food photography of %s. "+
		"Beautiful lighting, wooden table background, appetizing presentation.", dish)
}
