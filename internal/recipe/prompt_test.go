package recipe

import (
	"strings"
	"testing"

	"github.com/hitoshi/samkitchen/internal/model"
)

func TestBuildPrompt_ContainsIngredientsVerbatim(t *testing.T) {
	inputs := []string{
		"chicken, rice",
		"صدر دجاج، طماطم، أرز، ثوم",
		"  spaced  ",
		`quote "inside"`,
	}
	for _, ingredients := range inputs {
		in := model.NewFilterInput()
		in.Ingredients = ingredients

		got := BuildPrompt(in)
		if !strings.Contains(got, ingredients) {
			t.Errorf("BuildPrompt(%q) does not contain the ingredients text", ingredients)
		}
	}
}

func TestBuildPrompt_AnyCuisine(t *testing.T) {
	in := model.NewFilterInput()
	in.Ingredients = "بيض"

	got := BuildPrompt(in)
	if !strings.Contains(got, AnyCuisineClause) {
		t.Error("any-cuisine clause missing")
	}
	if strings.Contains(got, CuisineClausePrefix) {
		t.Error("must-be-from-cuisine clause should not appear for the sentinel value")
	}
}

func TestBuildPrompt_SpecificCuisine(t *testing.T) {
	for _, cuisine := range model.CuisineTypes[1:] {
		in := model.NewFilterInput()
		in.Ingredients = "بيض"
		in.Cuisine = cuisine

		got := BuildPrompt(in)
		if strings.Contains(got, AnyCuisineClause) {
			t.Errorf("cuisine %q: any-cuisine clause should not appear", cuisine)
		}
		if !strings.Contains(got, CuisineClausePrefix+cuisine+".") {
			t.Errorf("cuisine %q: must-be-from clause missing\n%s", cuisine, got)
		}
	}
}

func TestBuildPrompt_MealType(t *testing.T) {
	in := model.NewFilterInput()
	in.Ingredients = "بيض"

	if got := BuildPrompt(in); !strings.Contains(got, AnyMealTypeClause) || strings.Contains(got, MealTypeClausePrefix) {
		t.Errorf("sentinel meal type should produce only the any-meal clause:\n%s", got)
	}

	in.MealType = "عشاء"
	got := BuildPrompt(in)
	if strings.Contains(got, AnyMealTypeClause) {
		t.Error("any-meal clause should not appear for a specific meal type")
	}
	if !strings.Contains(got, MealTypeClausePrefix+"عشاء.") {
		t.Errorf("meal type clause missing:\n%s", got)
	}
}

func TestBuildPrompt_DietaryOptions(t *testing.T) {
	in := model.NewFilterInput()
	in.Ingredients = "بيض"

	if got := BuildPrompt(in); !strings.Contains(got, NoRestrictionsClause) {
		t.Error("no-restrictions clause missing for empty dietary options")
	}

	in.DietaryOptions = []string{"نباتي", "خالٍ من الغلوتين"}
	got := BuildPrompt(in)
	if strings.Contains(got, NoRestrictionsClause) {
		t.Error("no-restrictions clause should not appear when tags are set")
	}
	if !strings.Contains(got, DietaryClausePrefix+"نباتي, خالٍ من الغلوتين.") {
		t.Errorf("dietary clause should list all tags joined by the delimiter:\n%s", got)
	}
}

func TestBuildPrompt_EmptyIngredientsIsTotal(t *testing.T) {
	got := BuildPrompt(model.FilterInput{})
	if got == "" {
		t.Fatal("BuildPrompt should always return an instruction")
	}
	// ゼロ値のCuisineは「指定なし」ではないため、指定ありの節になる
	if !strings.Contains(got, CuisineClausePrefix) {
		t.Error("zero-value cuisine should be treated as a specific cuisine")
	}
}
