package i18n

import (
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "expected" or "got"); placeholders are written as {name}.
type Translator interface {
	Message(code string, data map[string]string) string
}

var catalog = map[string]map[string]string{
	"en": {
		"invalid_type":           "invalid type: expected {expected}",
		"required":               "required property missing",
		"unknown_key":            "unknown key",
		"duplicate_key":          "duplicate key",
		"invalid_enum":           "must be one of {expected}",
		"invalid_key":            "key not numeric",
		"invalid_length":         "expected {expected} entries, got {got}",
		"parse_error":            "parse error",
		"truncated":              "input truncated",
		"discriminator_missing":  "discriminator missing: expected one of {expected}",
		"discriminator_unknown":  "unknown variant {got}: expected one of {expected}",
		"too_small":              "must be at least {min}",
		"too_big":                "must be at most {max}",
		"too_short":              "must be at least {min} characters long",
		"not_integer":            "must be a whole number",
		"unknown_reference":      "referenced stream does not exist",
		"dependency_unavailable": "dependency unavailable",
	},
	"ja": {
		"invalid_type":           "型が不正です（期待値: {expected}）",
		"required":               "必須プロパティが不足しています",
		"unknown_key":            "未知のキーです",
		"duplicate_key":          "キーが重複しています",
		"invalid_enum":           "{expected} のいずれかを指定してください",
		"invalid_key":            "キーが数値ではありません",
		"invalid_length":         "{expected} 件のエントリが必要ですが {got} 件です",
		"parse_error":            "解析エラー",
		"truncated":              "入力が打ち切られました",
		"discriminator_missing":  "種別が指定されていません（{expected}）",
		"discriminator_unknown":  "未知の種別 {got} です（{expected}）",
		"too_small":              "{min} 以上を指定してください",
		"too_big":                "{max} 以下を指定してください",
		"too_short":              "{min} 文字以上で入力してください",
		"not_integer":            "整数を指定してください",
		"unknown_reference":      "参照先のストリームが存在しません",
		"dependency_unavailable": "依存先サービスが利用できません",
	},
}

var supported = []language.Tag{language.English, language.Japanese}

var matcher = language.NewMatcher(supported)

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := catalog[t.lang][code]
	if !ok {
		return code
	}
	return render(msg, data)
}

// render fills {name} placeholders; a placeholder with no data renders as "?".
func render(msg string, data map[string]string) string {
	var b strings.Builder
	for {
		open := strings.IndexByte(msg, '{')
		if open < 0 {
			b.WriteString(msg)
			break
		}
		end := strings.IndexByte(msg[open:], '}')
		if end < 0 {
			b.WriteString(msg)
			break
		}
		b.WriteString(msg[:open])
		key := msg[open+1 : open+end]
		if v, ok := data[key]; ok {
			b.WriteString(v)
		} else {
			b.WriteString("?")
		}
		msg = msg[open+end+1:]
	}
	return b.String()
}

var (
	mu                sync.RWMutex
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// For returns the built-in Translator for lang ("en"/"ja"); anything else
// is matched to the closest supported language.
func For(lang string) Translator {
	return dictTranslator{lang: Match(lang)}
}

// Match picks the supported language for an Accept-Language header or a
// plain language tag. Unparseable input falls back to English.
func Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return "en"
	}
	_, idx, _ := matcher.Match(tags...)
	base, _ := supported[idx].Base()
	return base.String()
}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	mu.Lock()
	currentTranslator = For(lang)
	mu.Unlock()
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	mu.Lock()
	defer mu.Unlock()
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
