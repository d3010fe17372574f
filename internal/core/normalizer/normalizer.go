// Package normalizer 將食材名稱正規化（小寫、去空白、西班牙文複數轉單數），
// 讓同一食材的不同寫法對應到相同的查詢鍵。
package normalizer

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// irregularPlurals 不規則或常見食材複數，查表優先於一般規則
var irregularPlurals = map[string]string{
	"pollos":      "pollo",
	"limones":     "limón",
	"melones":     "melón",
	"jamones":     "jamón",
	"camarones":   "camarón",
	"champiñones": "champiñón",
	"mejillones":  "mejillón",
	"salmones":    "salmón",
	"piñones":     "piñón",
	"calabacines": "calabacín",
	"frijoles":    "frijol",
	"caracoles":   "caracol",
	"coles":       "col",
	"panes":       "pan",
	"ajíes":       "ají",
	"maníes":      "maní",
	"maíces":      "maíz",
}

const vowels = "aeiouáéíóúü"

func isVowel(r rune) bool {
	return strings.ContainsRune(vowels, r)
}

// Clean 小寫並去除前後空白（西班牙文語系）
func Clean(name string) string {
	return cases.Lower(language.Spanish).String(strings.TrimSpace(name))
}

// Normalize 將食材名稱轉為單數形式
func Normalize(name string) string {
	word := Clean(name)
	if word == "" {
		return ""
	}

	if singular, ok := irregularPlurals[word]; ok {
		return singular
	}

	runes := []rune(word)
	n := len(runes)

	switch {
	case n > 3 && strings.HasSuffix(word, "ces"):
		// luces -> luz
		return string(runes[:n-3]) + "z"
	case n > 3 && strings.HasSuffix(word, "es"):
		stem := runes[:n-2]
		if isVowel(stem[len(stem)-1]) {
			return string(stem)
		}
		// tomates -> tomate
		return string(runes[:n-1])
	case n > 2 && strings.HasSuffix(word, "s"):
		if isVowel(runes[n-2]) {
			return string(runes[:n-1])
		}
		// 子音 + s 視為已是單數
		return word
	}

	return word
}

// NormalizeAll 正規化一組名稱，略過空字串
func NormalizeAll(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if n := Normalize(name); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// SplitList 將逗號分隔字串拆成已去空白的項目
func SplitList(joined string) []string {
	parts := strings.Split(joined, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
