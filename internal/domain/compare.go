package domain

import "strconv"

// Compare сравнивает текущее значение с порогом по оператору требования.
// Пустой оператор трактуется как ">=" (самый частый случай в таблицах).
func Compare(current float64, op string, threshold float64) bool {
	switch op {
	case ">=", "":
		return current >= threshold
	case ">":
		return current > threshold
	case "==", "=":
		return current == threshold
	case "<=":
		return current <= threshold
	case "<":
		return current < threshold
	case "!=":
		return current != threshold
	default:
		// Неизвестный оператор - требование не выполняется, это заметнее,
		// чем молча пропустить.
		return false
	}
}

// NumericValue приводит значение требования из JSON (float64, int, строка)
// к float64. Второй результат - удалось ли.
func NumericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
