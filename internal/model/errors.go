package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, generation, subscription, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeEmptyIngredients     = "VALIDATION_EMPTY_INGREDIENTS"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeGenerationFailed     = "GENERATION_FAILED"
	ErrCodeSubscriptionRequired = "SUBSCRIPTION_REQUIRED"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeAdminRequired        = "ADMIN_REQUIRED"
	ErrCodeSettingsUnavailable  = "SETTINGS_UNAVAILABLE"
	ErrCodeImportFailed         = "IMPORT_FAILED"
)

// GenerationFailedMessage はレシピ生成失敗時に表示する唯一のメッセージ。
const GenerationFailedMessage = "حدث خطأ أثناء إنشاء الوصفة. يرجى المحاولة مرة أخرى."

// InvalidCredentialsMessage は管理者ログイン失敗時に表示するメッセージ。
const InvalidCredentialsMessage = "اسم المستخدم أو كلمة المرور غير صحيحة."

// EmptyIngredientsMessage は食材が未入力のまま送信された場合のメッセージ。
const EmptyIngredientsMessage = "يرجى إدخال المكونات المتوفرة لديك أولاً."

// NewEmptyIngredientsError は食材未入力エラーを生成する。
func NewEmptyIngredientsError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyIngredients,
		Message:  EmptyIngredientsMessage,
		Category: "validation",
		Action:   "أدخل مكوناً واحداً على الأقل ثم أعد المحاولة.",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("طلب غير صالح: %s", reason),
		Category: "validation",
		Action:   "تحقق من البيانات المرسلة.",
	}
}

// NewGenerationFailedError はレシピ生成失敗エラーを生成する。
// 失敗の種類に関わらずユーザーには同じメッセージを返す。
func NewGenerationFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeGenerationFailed,
		Message:  GenerationFailedMessage,
		Category: "generation",
		Action:   "أعد إرسال الطلب يدوياً.",
	}
}

// NewSubscriptionRequiredError はサブスクリプション未登録エラーを生成する。
// Actionには購読用のリンクを入れる。
func NewSubscriptionRequiredError(message, link string) *APIError {
	return &APIError{
		Code:     ErrCodeSubscriptionRequired,
		Message:  message,
		Category: "subscription",
		Action:   link,
	}
}

// NewInvalidCredentialsError は管理者認証失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  InvalidCredentialsMessage,
		Category: "auth",
		Action:   "تحقق من اسم المستخدم وكلمة المرور.",
	}
}

// NewAdminRequiredError は管理者ログインが必要な操作のエラーを生成する。
func NewAdminRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAdminRequired,
		Message:  "يجب تسجيل الدخول كأدمن.",
		Category: "auth",
		Action:   "سجّل الدخول من لوحة الأدمن.",
	}
}

// NewSettingsUnavailableError は設定がまだ利用できない場合のエラーを生成する。
func NewSettingsUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeSettingsUnavailable,
		Message:  "الإعدادات قيد التحميل.",
		Category: "system",
		Action:   "انتظر قليلاً ثم أعد المحاولة.",
	}
}

// NewImportFailedError は広告フィードの取り込み失敗エラーを生成する。
func NewImportFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeImportFailed,
		Message:  fmt.Sprintf("تعذر استيراد الإعلانات: %s", reason),
		Category: "validation",
		Action:   "تحقق من رابط الخلاصة وأعد المحاولة.",
	}
}
