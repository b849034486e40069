// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/samkitchen/internal/kitchen"
	"github.com/hitoshi/samkitchen/internal/middleware"
	"github.com/hitoshi/samkitchen/internal/model"
	"github.com/hitoshi/samkitchen/internal/recipe"
)

// generateErrorMessage は/api/generateの失敗時にerrorフィールドへ入れる固定文言。
const generateErrorMessage = "فشل إنشاء الوصفة."

// maxRequestBodySize はJSONリクエストボディの上限。
const maxRequestBodySize = 1 << 20

// GenerateHandler はプロキシモードの生成エンドポイント。
// 生成APIの認証情報をサーバー側に留め、FilterInputだけを受け取ってレシピを返す。
type GenerateHandler struct {
	generator recipe.Generator
	logger    *slog.Logger
}

// NewGenerateHandler はGenerateHandlerを生成する。
func NewGenerateHandler(generator recipe.Generator, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{generator: generator, logger: logger}
}

// ServeHTTP はPOST /api/generateを処理する。
// POST以外は405、設定不備や生成失敗は500で{error, details}を返す。
func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		middleware.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "Method Not Allowed"})
		return
	}

	var in model.FilterInput
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize)).Decode(&in); err != nil {
		h.logger.Warn("invalid /api/generate request body", slog.String("error", err.Error()))
		writeGenerateError(w, "invalid request body: "+err.Error())
		return
	}

	generated, err := h.generator.Generate(r.Context(), kitchen.Normalize(in))
	if err != nil {
		h.logger.Error("error in /api/generate", slog.String("error", err.Error()))
		details := err.Error()
		var genErr *recipe.GenerationError
		if errors.As(err, &genErr) {
			details = genErr.Cause
		}
		writeGenerateError(w, details)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, generated)
}

func writeGenerateError(w http.ResponseWriter, details string) {
	middleware.WriteJSON(w, http.StatusInternalServerError, recipe.ProxyErrorBody{
		Error:   generateErrorMessage,
		Details: details,
	})
}
