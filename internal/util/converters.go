package util

import (
	"fmt"
	"strconv"

	"github.com/genc-murat/crystalbloom/internal/core/models"
)

func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func ParseInt64(v models.Value) (int64, error) {
	return strconv.ParseInt(v.Bulk, 10, 64)
}

func ParseUint32(v models.Value) (uint32, error) {
	n, err := strconv.ParseUint(v.Bulk, 10, 32)
	return uint32(n), err
}

func ParseFloat(v models.Value) (float64, error) {
	return strconv.ParseFloat(v.Bulk, 64)
}

func ToValue(val interface{}) models.Value {
	switch v := val.(type) {
	case string:
		return models.Value{Type: "bulk", Bulk: v}
	case int:
		return models.Value{Type: "integer", Num: v}
	case int64:
		return models.Value{Type: "integer", Num: int(v)}
	case nil:
		return models.Value{Type: "null"}
	case error:
		return models.Value{Type: "error", Str: v.Error()}
	case []string:
		arr := make([]models.Value, len(v))
		for i, s := range v {
			arr[i] = models.Value{Type: "bulk", Bulk: s}
		}
		return models.Value{Type: "array", Array: arr}
	default:
		return models.Value{Type: "error", Str: fmt.Sprintf("unknown type: %T", val)}
	}
}

func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
