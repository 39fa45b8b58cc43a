package normalize

import (
	"strings"

	"github.com/fleetflow/leadflow/internal/errs"
)

// Phone normalizes a NANP phone number to E.164 (+1XXXXXXXXXX).
// An empty input returns empty with no error; anything else that does not
// reduce to ten digits (optionally prefixed with country code 1) is a
// ValidationError.
func Phone(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}

	var digits strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	switch {
	case len(d) == 10:
		// fall through
	case len(d) == 11 && d[0] == '1':
		d = d[1:]
	default:
		return "", errs.NewValidation("phone", "not a valid NANP number: "+trimmed)
	}

	// NANP area code and exchange cannot start with 0 or 1.
	if d[0] == '0' || d[0] == '1' || d[3] == '0' || d[3] == '1' {
		return "", errs.NewValidation("phone", "invalid NANP area code or exchange: "+trimmed)
	}

	return "+1" + d, nil
}
