package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/hitoshi/samkitchen/internal/kitchen"
	"github.com/hitoshi/samkitchen/internal/middleware"
	"github.com/hitoshi/samkitchen/internal/model"
	"github.com/hitoshi/samkitchen/internal/subscription"
)

// Submitter はレシピ生成フォームの送信を処理する。kitchen.Controllerが実装する。
type Submitter interface {
	Submit(ctx context.Context, in model.FilterInput, visitor kitchen.Visitor) kitchen.Outcome
}

// RecipeHandler は購読ゲート付きのレシピ生成APIを提供する。
type RecipeHandler struct {
	submitter Submitter
}

// NewRecipeHandler はRecipeHandlerを生成する。
func NewRecipeHandler(submitter Submitter) *RecipeHandler {
	return &RecipeHandler{submitter: submitter}
}

// Create は食材と条件からレシピを生成する。
// POST /api/recipes
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.FilterInput
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize)).Decode(&in); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(err.Error()))
		return
	}

	out := h.submitter.Submit(r.Context(), in, visitorFrom(r))
	writeOutcome(w, out)
}

// visitorFrom はCookieとコンテキストから送信者の状態を組み立てる。
func visitorFrom(r *http.Request) kitchen.Visitor {
	return kitchen.Visitor{
		Subscribed: subscription.IsSubscribed(r),
		Admin:      middleware.IsAdmin(r.Context()),
	}
}

func writeOutcome(w http.ResponseWriter, out kitchen.Outcome) {
	switch {
	case out.Prompt != nil:
		middleware.WriteErrorResponse(w, http.StatusForbidden,
			model.NewSubscriptionRequiredError(out.Prompt.Message, out.Prompt.Link))
	case out.Error != nil:
		status := http.StatusBadGateway
		if out.Error.Code == model.ErrCodeEmptyIngredients {
			status = http.StatusBadRequest
		}
		middleware.WriteErrorResponse(w, status, out.Error)
	case out.Recipe != nil:
		middleware.WriteJSON(w, http.StatusOK, out.Recipe)
	default:
		middleware.WriteInternalServerError(w)
	}
}
