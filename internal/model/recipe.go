// Package model はドメインモデルを定義する。
package model

// AnyType は料理の種類・食事の種類で「指定なし」を表す固定値。
const AnyType = "أي نوع"

// CuisineTypes は入力フォームで選択可能な料理の種類。先頭は「指定なし」。
var CuisineTypes = []string{
	AnyType,
	"عربي",
	"إيطالي",
	"مكسيكي",
	"صيني",
	"هندي",
	"ياباني",
	"فرنسي",
	"تركي",
}

// MealTypes は入力フォームで選択可能な食事の種類。先頭は「指定なし」。
var MealTypes = []string{
	AnyType,
	"فطور",
	"غداء",
	"عشاء",
	"وجبة خفيفة",
	"حلويات",
}

// DietaryOptions は入力フォームで選択可能な食事制限タグ。
var DietaryOptions = []string{
	"نباتي",
	"نباتي صارم",
	"خالٍ من الغلوتين",
	"قليل الكربوهيدرات",
	"خالٍ من الألبان",
}

// FilterInput はレシピ生成の入力（手持ちの食材と絞り込み条件）を表す。
// 1回の送信で1度だけ消費される。
type FilterInput struct {
	Ingredients    string   `json:"ingredients"`
	Cuisine        string   `json:"cuisine"`
	MealType       string   `json:"mealType"`
	DietaryOptions []string `json:"dietaryOptions"`
}

// NewFilterInput は未入力状態のFilterInputを返す。
// 料理・食事の種類は「指定なし」、食事制限は空。
func NewFilterInput() FilterInput {
	return FilterInput{
		Cuisine:        AnyType,
		MealType:       AnyType,
		DietaryOptions: []string{},
	}
}

// Recipe は生成APIが返す構造化レシピ。生成後はイミュータブルとして扱う。
type Recipe struct {
	RecipeName   string   `json:"recipeName"`
	Description  string   `json:"description"`
	Servings     string   `json:"servings"`
	PrepTime     string   `json:"prepTime"`
	CookTime     string   `json:"cookTime"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
}
