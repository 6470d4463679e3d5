package util

import (
	"fmt"

	"github.com/genc-murat/crystalbloom/internal/core/models"
)

func ValidateArgs(args []models.Value, count int) error {
	if len(args) != count {
		return fmt.Errorf("ERR wrong number of arguments")
	}
	return nil
}

func ValidateMinArgs(args []models.Value, minCount int) error {
	if len(args) < minCount {
		return fmt.Errorf("ERR wrong number of arguments")
	}
	return nil
}

func ValidateRangeArgs(args []models.Value, minCount, maxCount int) error {
	if len(args) < minCount || len(args) > maxCount {
		return fmt.Errorf("ERR wrong number of arguments")
	}
	return nil
}
