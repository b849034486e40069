package recipe

import "google.golang.org/genai"

// Temperature は生成時のサンプリング温度。
const Temperature float32 = 0.7

// RecipeSchema は生成APIに宣言する出力スキーマ。7フィールドすべてが必須。
var RecipeSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"recipeName": {
			Type:        genai.TypeString,
			Description: "اسم الوصفة.",
		},
		"description": {
			Type:        genai.TypeString,
			Description: "وصف قصير وجذاب للطبق.",
		},
		"servings": {
			Type:        genai.TypeString,
			Description: "عدد الحصص التي تكفيها الوصفة.",
		},
		"prepTime": {
			Type:        genai.TypeString,
			Description: "مدة التحضير، مثال: '15 دقيقة'.",
		},
		"cookTime": {
			Type:        genai.TypeString,
			Description: "مدة الطهي، مثال: '30 دقيقة'.",
		},
		"ingredients": {
			Type:        genai.TypeArray,
			Description: "قائمة بجميع المكونات المطلوبة للوصفة، مع الكميات.",
			Items:       &genai.Schema{Type: genai.TypeString},
		},
		"instructions": {
			Type:        genai.TypeArray,
			Description: "تعليمات الطهي خطوة بخطوة.",
			Items:       &genai.Schema{Type: genai.TypeString},
		},
	},
	Required: []string{
		"recipeName",
		"description",
		"ingredients",
		"instructions",
		"servings",
		"prepTime",
		"cookTime",
	},
}
