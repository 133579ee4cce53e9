package usecase_test

import (
	"errors"
	"testing"

	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func TestErrors_UnknownFormIsDistinct(t *testing.T) {
	gt.Value(t, usecase.ErrUnknownForm).NotNil()
	for _, other := range []error{model.ErrValidation, model.ErrFetch, model.ErrResourceNotFound} {
		gt.Bool(t, errors.Is(usecase.ErrUnknownForm, other)).False()
	}
}
