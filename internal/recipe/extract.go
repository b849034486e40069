package recipe

import "regexp"

// fencePattern はコードフェンス（```、任意の言語タグ、本文、```）にマッチする。
// 言語タグは "json" または改行で終わる識別子のみを認識する。
var fencePattern = regexp.MustCompile("(?s)```(?:json\\b|[A-Za-z0-9_+-]*\\n)?\\s*(.*?)\\s*```")

// ExtractJSON は生のレスポンス文字列からコードフェンスの本文を取り出す。
// フェンスがない、または本文が空の場合は入力をそのまま返す。
func ExtractJSON(text string) string {
	m := fencePattern.FindStringSubmatch(text)
	if m == nil || m[1] == "" {
		return text
	}
	return m[1]
}
