package recipe

import (
	"fmt"

	"github.com/hitoshi/samkitchen/internal/model"
)

// ErrorKind はレシピ生成失敗の分類。
type ErrorKind string

const (
	// KindConfig はサーバー側の設定不備（APIキー未設定など）。
	KindConfig ErrorKind = "config"
	// KindTransport は生成APIへ到達できなかった場合。
	KindTransport ErrorKind = "transport"
	// KindStatus は生成APIが成功以外のステータスを返した場合。
	KindStatus ErrorKind = "status"
	// KindDecode はレスポンスがJSONとして解釈できない、または必須フィールドが欠けている場合。
	KindDecode ErrorKind = "decode"
)

// GenerationError はレシピ生成の失敗を表す。
// Causeは人が読める原因で、ログと/api/generateのdetailsに使う。
type GenerationError struct {
	Kind  ErrorKind
	Cause string
	Err   error
}

// Error はerrorインターフェースを実装する。
func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("recipe: generation failed (%s): %s: %v", e.Kind, e.Cause, e.Err)
	}
	return fmt.Sprintf("recipe: generation failed (%s): %s", e.Kind, e.Cause)
}

// Unwrap は元のエラーを返す。
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// UserMessage は利用者に表示する単一のメッセージを返す。失敗の種類によらず同じ。
func (e *GenerationError) UserMessage() string {
	return model.GenerationFailedMessage
}

func newGenerationError(kind ErrorKind, cause string, err error) *GenerationError {
	return &GenerationError{Kind: kind, Cause: cause, Err: err}
}
