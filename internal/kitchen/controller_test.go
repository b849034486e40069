package kitchen

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/hitoshi/samkitchen/internal/model"
	"github.com/hitoshi/samkitchen/internal/recipe"
	"github.com/hitoshi/samkitchen/internal/settings"
	"github.com/hitoshi/samkitchen/internal/subscription"
)

// --- モック定義 ---

type mockGenerator struct {
	generateFn func(ctx context.Context, in model.FilterInput) (*model.Recipe, error)
	calls      []model.FilterInput
}

func (m *mockGenerator) Generate(ctx context.Context, in model.FilterInput) (*model.Recipe, error) {
	m.calls = append(m.calls, in)
	if m.generateFn != nil {
		return m.generateFn(ctx, in)
	}
	return &model.Recipe{RecipeName: "كبسة"}, nil
}

type mockContentGenerator struct {
	prompts []string
	text    string
}

func (m *mockContentGenerator) GenerateContent(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.prompts = append(m.prompts, contents[0].Parts[0].Text)
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: m.text}}},
		}},
	}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newGate() *subscription.Gate {
	return subscription.NewGate(settings.NewStore(), subscription.CookieOptions{})
}

func chickenAndRice() model.FilterInput {
	in := model.NewFilterInput()
	in.Ingredients = "chicken, rice"
	return in
}

// --- テスト ---

// TestSubmit_EndToEnd は購読済みの送信で生成が1回だけ呼ばれ、
// 指定なしの各節を含むプロンプトが送られ、7項目すべてが返ることを検証する。
func TestSubmit_EndToEnd(t *testing.T) {
	content := &mockContentGenerator{text: "```json\n" + `{
  "recipeName": "كبسة دجاج",
  "description": "طبق أرز تقليدي",
  "servings": "4",
  "prepTime": "15 دقيقة",
  "cookTime": "45 دقيقة",
  "ingredients": ["دجاج", "أرز"],
  "instructions": ["اسلق الدجاج", "أضف الأرز"]
}` + "\n```"}
	generator := recipe.NewGeminiGenerator(content, "", discardLogger(), nil)
	c := NewController(generator, newGate(), discardLogger())

	out := c.Submit(context.Background(), chickenAndRice(), Visitor{Subscribed: true})

	if out.Error != nil || out.Prompt != nil {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if len(content.prompts) != 1 {
		t.Fatalf("generation calls = %d, want 1", len(content.prompts))
	}
	prompt := content.prompts[0]
	for _, want := range []string{"chicken, rice", recipe.AnyCuisineClause, recipe.AnyMealTypeClause, recipe.NoRestrictionsClause} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt does not contain %q", want)
		}
	}

	r := out.Recipe
	if r.RecipeName != "كبسة دجاج" || r.Description == "" || r.Servings != "4" ||
		r.PrepTime == "" || r.CookTime == "" || len(r.Ingredients) != 2 || len(r.Instructions) != 2 {
		t.Errorf("recipe fields not fully populated: %+v", r)
	}
}

func TestSubmit_EmptyIngredients_NoGeneration(t *testing.T) {
	for _, ingredients := range []string{"", "   ", "\n\t"} {
		gen := &mockGenerator{}
		c := NewController(gen, newGate(), discardLogger())

		in := model.NewFilterInput()
		in.Ingredients = ingredients
		out := c.Submit(context.Background(), in, Visitor{Subscribed: true})

		if out.Error == nil || out.Error.Code != model.ErrCodeEmptyIngredients {
			t.Errorf("ingredients %q: error = %+v, want empty-ingredients", ingredients, out.Error)
		}
		if len(gen.calls) != 0 {
			t.Errorf("ingredients %q: generator called %d times", ingredients, len(gen.calls))
		}
	}
}

// TestSubmit_NotSubscribed_ShowsPrompt は未購読かつ非管理者の場合に生成せず誘導を返すことを検証する。
func TestSubmit_NotSubscribed_ShowsPrompt(t *testing.T) {
	gen := &mockGenerator{}
	c := NewController(gen, newGate(), discardLogger())

	out := c.Submit(context.Background(), chickenAndRice(), Visitor{})

	if out.Prompt == nil {
		t.Fatal("expected subscription prompt")
	}
	if out.Prompt.Message != settings.DefaultSubscriptionMessage || out.Prompt.Link != settings.DefaultSubscriptionChannelLink {
		t.Errorf("prompt = %+v, want defaults", out.Prompt)
	}
	if len(gen.calls) != 0 {
		t.Errorf("generator called %d times, want 0", len(gen.calls))
	}
}

func TestSubmit_AdminBypassesGate(t *testing.T) {
	gen := &mockGenerator{}
	c := NewController(gen, newGate(), discardLogger())

	out := c.Submit(context.Background(), chickenAndRice(), Visitor{Admin: true})

	if out.Recipe == nil {
		t.Fatalf("expected recipe, got %+v", out)
	}
	if len(gen.calls) != 1 {
		t.Errorf("generator called %d times, want 1", len(gen.calls))
	}
}

// TestSubmit_GenerationFailure_SingleMessage は失敗の種類によらず同じメッセージになることを検証する。
func TestSubmit_GenerationFailure_SingleMessage(t *testing.T) {
	errs := []error{
		&recipe.GenerationError{Kind: recipe.KindTransport, Cause: "dial"},
		&recipe.GenerationError{Kind: recipe.KindDecode, Cause: "invalid json"},
		errors.New("unexpected"),
	}

	for _, genErr := range errs {
		gen := &mockGenerator{
			generateFn: func(context.Context, model.FilterInput) (*model.Recipe, error) {
				return nil, genErr
			},
		}
		c := NewController(gen, newGate(), discardLogger())

		out := c.Submit(context.Background(), chickenAndRice(), Visitor{Subscribed: true})

		if out.Error == nil || out.Error.Message != model.GenerationFailedMessage {
			t.Errorf("error %v: outcome error = %+v", genErr, out.Error)
		}
		if out.Recipe != nil {
			t.Error("recipe should be nil on failure")
		}
		if len(gen.calls) != 1 {
			t.Errorf("generator called %d times, want exactly 1 (no retry)", len(gen.calls))
		}
	}
}

func TestNormalize(t *testing.T) {
	in := model.FilterInput{
		Ingredients:    "  بيض  ",
		DietaryOptions: []string{" نباتي ", "", "  "},
	}

	got := Normalize(in)

	if got.Ingredients != "  بيض  " {
		t.Errorf("Ingredients = %q, should be kept verbatim", got.Ingredients)
	}
	if got.Cuisine != model.AnyType || got.MealType != model.AnyType {
		t.Errorf("cuisine/meal = %q/%q, want any type", got.Cuisine, got.MealType)
	}
	if len(got.DietaryOptions) != 1 || got.DietaryOptions[0] != "نباتي" {
		t.Errorf("DietaryOptions = %v", got.DietaryOptions)
	}

	if got := Normalize(model.FilterInput{Ingredients: "x"}); got.DietaryOptions == nil {
		t.Error("DietaryOptions should be an empty slice, not nil")
	}
}
