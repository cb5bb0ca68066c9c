package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer раскладывает символы в NFD, убирает диакритику и
// собирает обратно в NFC. "LEVIATÁN" -> "LEVIATAN".
var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// FoldName нормализует имя команды для сравнения между источниками:
// убирает диакритику, приводит к нижнему регистру и обрезает пробелы.
// Разные написания одной команды ("LEVIATÁN", "Leviatan", "leviatan")
// дают одинаковый ключ.
func FoldName(name string) string {
	folded, _, err := transform.String(foldTransformer, name)
	if err != nil {
		// Трансформация не применилась — сравниваем хотя бы без регистра.
		folded = name
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// SameTeam сравнивает имена команд из двух источников по свёрнутому ключу.
func SameTeam(a, b string) bool {
	return FoldName(a) == FoldName(b)
}
