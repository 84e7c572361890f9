package domain

import "strings"

// CanonicalURL отрезает все начиная с первого '?', включая сам '?'.
// Никакой другой нормализации (слэши, регистр, схема) не делается.
// Функция обязана быть чистой и тотальной над любой строкой: она служит
// ключом идентичности для дедупликации, и расхождение здесь означает,
// что журнал и база молча разойдутся в ответе на один и тот же URL.
func CanonicalURL(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}
