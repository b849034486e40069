package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/hitoshi/samkitchen/internal/model"
)

// DefaultModel は生成に使用するモデル名。
const DefaultModel = "gemini-2.5-flash"

// MissingKeyCause はAPIキー未設定時のエラー原因。
const MissingKeyCause = "لم يتم تكوين مفتاح الواجهة البرمجية على الخادم."

// Generator はFilterInputからレシピを生成する。
// 直接モード（GeminiGenerator）とプロキシモード（ProxyClient）の双方が実装する。
type Generator interface {
	Generate(ctx context.Context, in model.FilterInput) (*model.Recipe, error)
}

// ContentGenerator はgenai.Modelsのうち生成に必要な部分集合。
// *genai.Client の Models フィールドがこれを満たす。
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Recorder は生成結果のメトリクス記録先。
type Recorder interface {
	RecordGenerationSuccess(duration time.Duration)
	RecordGenerationFailure(kind string, duration time.Duration)
}

// NewGenAIClient はGemini APIのクライアントを生成する。
// baseURLが空でない場合はAPIのベースURLを差し替える。
func NewGenAIClient(ctx context.Context, apiKey, baseURL string, httpClient *http.Client) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("recipe: creating genai client: %w", err)
	}
	return client, nil
}

// GeminiGenerator は生成APIを直接呼び出すGenerator（直接モード）。
// 固定スキーマ、温度0.7、候補数1でリクエストする。リトライもキャッシュもしない。
type GeminiGenerator struct {
	models   ContentGenerator
	model    string
	logger   *slog.Logger
	recorder Recorder
}

// NewGeminiGenerator はGeminiGeneratorを生成する。
// modelsがnilの場合、Generateは常に設定エラーを返す。
func NewGeminiGenerator(models ContentGenerator, modelName string, logger *slog.Logger, recorder Recorder) *GeminiGenerator {
	if modelName == "" {
		modelName = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiGenerator{
		models:   models,
		model:    modelName,
		logger:   logger,
		recorder: recorder,
	}
}

// Configured は生成APIの認証情報が設定されているかを返す。
func (g *GeminiGenerator) Configured() bool {
	return g.models != nil
}

// Generate はプロンプトを構築して生成APIを1回呼び出し、レシピを返す。
func (g *GeminiGenerator) Generate(ctx context.Context, in model.FilterInput) (*model.Recipe, error) {
	start := time.Now()
	recipe, err := g.generate(ctx, in)
	g.record(start, err)
	return recipe, err
}

func (g *GeminiGenerator) generate(ctx context.Context, in model.FilterInput) (*model.Recipe, error) {
	if g.models == nil {
		g.logger.Error("GEMINI_API_KEY is not set")
		return nil, newGenerationError(KindConfig, MissingKeyCause, nil)
	}

	prompt := BuildPrompt(in)

	res, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   RecipeSchema,
		Temperature:      genai.Ptr(Temperature),
		CandidateCount:   1,
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			g.logger.Error("generation API returned an error status",
				slog.Int("http_status", apiErr.Code),
				slog.String("error", apiErr.Message),
			)
			return nil, newGenerationError(KindStatus, fmt.Sprintf("generation API status %d: %s", apiErr.Code, apiErr.Message), err)
		}
		g.logger.Error("generation API call failed", slog.String("error", err.Error()))
		return nil, newGenerationError(KindTransport, "generation API unreachable", err)
	}

	text := strings.TrimSpace(res.Text())
	return DecodeRecipe(text, g.logger)
}

func (g *GeminiGenerator) record(start time.Time, err error) {
	if g.recorder == nil {
		return
	}
	d := time.Since(start)
	if err == nil {
		g.recorder.RecordGenerationSuccess(d)
		return
	}
	kind := "unknown"
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		kind = string(genErr.Kind)
	}
	g.recorder.RecordGenerationFailure(kind, d)
}

// wireRecipe は必須フィールドの欠落を検出するためのデコード用構造体。
type wireRecipe struct {
	RecipeName   *string   `json:"recipeName"`
	Description  *string   `json:"description"`
	Servings     *string   `json:"servings"`
	PrepTime     *string   `json:"prepTime"`
	CookTime     *string   `json:"cookTime"`
	Ingredients  *[]string `json:"ingredients"`
	Instructions *[]string `json:"instructions"`
}

func (w wireRecipe) missing() []string {
	var fields []string
	if w.RecipeName == nil {
		fields = append(fields, "recipeName")
	}
	if w.Description == nil {
		fields = append(fields, "description")
	}
	if w.Servings == nil {
		fields = append(fields, "servings")
	}
	if w.PrepTime == nil {
		fields = append(fields, "prepTime")
	}
	if w.CookTime == nil {
		fields = append(fields, "cookTime")
	}
	if w.Ingredients == nil {
		fields = append(fields, "ingredients")
	}
	if w.Instructions == nil {
		fields = append(fields, "instructions")
	}
	return fields
}

// DecodeRecipe は生成APIのテキスト出力からコードフェンスを除去し、Recipeにデコードする。
// JSONとして不正、または必須フィールドが欠けている場合はKindDecodeのエラーを返し、
// 生のテキストをログに残す。
func DecodeRecipe(text string, logger *slog.Logger) (*model.Recipe, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if text == "" {
		logger.Error("generation API returned empty text")
		return nil, newGenerationError(KindDecode, "empty response text", nil)
	}

	jsonText := ExtractJSON(text)

	var w wireRecipe
	if err := json.Unmarshal([]byte(jsonText), &w); err != nil {
		logger.Error("failed to decode generated recipe",
			slog.String("error", err.Error()),
			slog.String("raw_text", text),
		)
		return nil, newGenerationError(KindDecode, "response is not valid JSON", err)
	}
	if missing := w.missing(); len(missing) > 0 {
		logger.Error("generated recipe is missing required fields",
			slog.Any("missing", missing),
			slog.String("raw_text", text),
		)
		return nil, newGenerationError(KindDecode, "missing required fields: "+strings.Join(missing, ", "), nil)
	}

	return &model.Recipe{
		RecipeName:   *w.RecipeName,
		Description:  *w.Description,
		Servings:     *w.Servings,
		PrepTime:     *w.PrepTime,
		CookTime:     *w.CookTime,
		Ingredients:  *w.Ingredients,
		Instructions: *w.Instructions,
	}, nil
}
