// Package kitchen はレシピ生成フォームの送信処理（入力検証、購読ゲート、生成呼び出し）を提供する。
// HTMLフォームとJSON APIの両方から同じ手順で利用する。
package kitchen

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hitoshi/samkitchen/internal/model"
	"github.com/hitoshi/samkitchen/internal/recipe"
	"github.com/hitoshi/samkitchen/internal/subscription"
)

// Gate は購読ゲートの判定を行う。subscription.Gateが実装する。
type Gate interface {
	Check(subscribed, admin bool) subscription.Decision
}

// Visitor は送信者の状態を表す。
type Visitor struct {
	Subscribed bool
	Admin      bool
}

// SubscriptionPrompt は未購読の送信者に表示する購読誘導。
type SubscriptionPrompt struct {
	Message string
	Link    string
}

// Outcome は1回の送信結果。Recipe、Prompt、Errorのうち高々1つが設定される。
type Outcome struct {
	Recipe *model.Recipe
	Prompt *SubscriptionPrompt
	Error  *model.APIError
}

// Controller はフォーム送信を処理する。
type Controller struct {
	generator recipe.Generator
	gate      Gate
	logger    *slog.Logger
}

// NewController はControllerを生成する。
func NewController(generator recipe.Generator, gate Gate, logger *slog.Logger) *Controller {
	return &Controller{
		generator: generator,
		gate:      gate,
		logger:    logger,
	}
}

// Submit は入力を検証し、購読ゲートを通過した場合に限り生成を1回だけ呼び出す。
// 生成の失敗は種類によらず単一のメッセージに変換する。
func (c *Controller) Submit(ctx context.Context, in model.FilterInput, visitor Visitor) Outcome {
	if strings.TrimSpace(in.Ingredients) == "" {
		return Outcome{Error: model.NewEmptyIngredientsError()}
	}

	decision := c.gate.Check(visitor.Subscribed, visitor.Admin)
	if !decision.Allowed {
		return Outcome{Prompt: &SubscriptionPrompt{Message: decision.Message, Link: decision.Link}}
	}

	generated, err := c.generator.Generate(ctx, Normalize(in))
	if err != nil {
		attrs := []any{slog.String("error", err.Error())}
		var genErr *recipe.GenerationError
		if errors.As(err, &genErr) {
			attrs = append(attrs, slog.String("kind", string(genErr.Kind)))
		}
		c.logger.Error("レシピ生成に失敗しました", attrs...)
		return Outcome{Error: model.NewGenerationFailedError()}
	}

	return Outcome{Recipe: generated}
}

// Normalize は未選択の料理・食事の種類を「指定なし」に補い、空の食事制限を空スライスにする。
// 食材の文字列はそのまま残す。
func Normalize(in model.FilterInput) model.FilterInput {
	out := in
	if strings.TrimSpace(out.Cuisine) == "" {
		out.Cuisine = model.AnyType
	}
	if strings.TrimSpace(out.MealType) == "" {
		out.MealType = model.AnyType
	}
	options := make([]string, 0, len(in.DietaryOptions))
	for _, opt := range in.DietaryOptions {
		if opt = strings.TrimSpace(opt); opt != "" {
			options = append(options, opt)
		}
	}
	out.DietaryOptions = options
	return out
}
