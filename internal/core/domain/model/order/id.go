package order

import (
	"orderadmin/internal/pkg/errs"

	"github.com/google/uuid"
)

// ValidateID reports an order id that is not a canonical lowercase UUID as a field
// error on "id". uuid.Parse also accepts braced, urn and unhyphenated forms, which
// would never match a stored id.
func ValidateID(id string) error {
	if parsed, err := uuid.Parse(id); err != nil || parsed.String() != id {
		return errs.NewValidationError("params").Add("id", "order id must be a valid UUID")
	}
	return nil
}
