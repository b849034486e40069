// Package recipe はレシピ生成APIとの契約（プロンプト構築、レスポンス抽出、生成クライアント）を提供する。
package recipe

import (
	"strings"

	"github.com/hitoshi/samkitchen/internal/model"
)

// 生成APIへの指示文を構成する固定文言。
const (
	promptHeader = "قم بإنشاء وصفة طعام مفصلة باللغة العربية بناءً على المعلومات التالية. يرجى تقديم وصفة واحدة فقط.\n\n"

	ingredientsPrefix = "المكونات المتاحة: \""
	ingredientsSuffix = "\". يمكنك تضمين مكونات أساسية أخرى شائعة إذا لزم الأمر.\n"

	// AnyCuisineClause は料理の種類が「指定なし」の場合の節。
	AnyCuisineClause = "المطبخ المفضل: \"يمكن أن يكون المطبخ من أي نوع.\"\n"
	// CuisineClausePrefix は料理の種類が指定された場合の節の先頭。
	CuisineClausePrefix = "المطبخ المفضل: \"يجب أن تكون الوصفة من المطبخ "

	// AnyMealTypeClause は食事の種類が「指定なし」の場合の節。
	AnyMealTypeClause = "نوع الوجبة المطلوب: \"يمكن أن تكون الوجبة من أي نوع.\"\n"
	// MealTypeClausePrefix は食事の種類が指定された場合の節の先頭。
	MealTypeClausePrefix = "نوع الوجبة المطلوب: \"يجب أن تكون الوصفة من نوع: "

	// NoRestrictionsClause は食事制限がない場合の節。
	NoRestrictionsClause = "الاحتياجات الغذائية: \"لا توجد قيود غذائية.\"\n"
	// DietaryClausePrefix は食事制限がある場合の節の先頭。
	DietaryClausePrefix = "الاحتياجات الغذائية: \"يجب أن تكون مناسبة للأنظمة الغذائية التالية: "

	clauseSuffix     = ".\"\n"
	dietaryDelimiter = ", "
)

// BuildPrompt はFilterInputから生成APIへの指示文を組み立てる。
// 純粋関数であり、食材が空でもエラーにしない（入力検証は呼び出し側の責務）。
func BuildPrompt(in model.FilterInput) string {
	var b strings.Builder

	b.WriteString(promptHeader)

	b.WriteString(ingredientsPrefix)
	b.WriteString(in.Ingredients)
	b.WriteString(ingredientsSuffix)

	if in.Cuisine != model.AnyType {
		b.WriteString(CuisineClausePrefix)
		b.WriteString(in.Cuisine)
		b.WriteString(clauseSuffix)
	} else {
		b.WriteString(AnyCuisineClause)
	}

	if in.MealType != model.AnyType {
		b.WriteString(MealTypeClausePrefix)
		b.WriteString(in.MealType)
		b.WriteString(clauseSuffix)
	} else {
		b.WriteString(AnyMealTypeClause)
	}

	if len(in.DietaryOptions) > 0 {
		b.WriteString(DietaryClausePrefix)
		b.WriteString(strings.Join(in.DietaryOptions, dietaryDelimiter))
		b.WriteString(clauseSuffix)
	} else {
		b.WriteString(NoRestrictionsClause)
	}

	return b.String()
}
