package dataprocessing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"teapulse/pkg/contracts/domain"
)

// LotValidator checks that a parsed lot is usable for aggregation.
type LotValidator struct {
	validate *validator.Validate
}

// NewLotValidator creates a validator for auction lots.
func NewLotValidator() *LotValidator {
	return &LotValidator{validate: validator.New()}
}

// Validate returns a descriptive error when the lot must be skipped.
// Structural rules come from the struct tags; the sold-side rules are
// semantic and enforced here.
func (v *LotValidator) Validate(lot domain.AuctionLot) error {
	if err := v.validate.Struct(lot); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid fields: %s", strings.Join(fields, ", "))
		}
		return err
	}

	// A lot on the sold side without a positive price or weight would
	// silently corrupt the weighted average, so it is rejected outright.
	if lot.Status.SoldSide() {
		if lot.Price <= 0 {
			return fmt.Errorf("sold lot has non-positive price %.2f", lot.Price)
		}
		if lot.Quantity <= 0 {
			return fmt.Errorf("sold lot has non-positive weight %.2f", lot.Quantity)
		}
	}

	return nil
}
