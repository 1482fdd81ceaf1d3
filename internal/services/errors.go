package services

import (
	"errors"

	"github.com/BradenHooton/authtrail/internal/models"
)

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
