package policy

import "github.com/amirk1998/secure-bank/pkg/errors"

// DobUpdateLimit caps how many times an account may change its birth date.
const DobUpdateLimit = 3

// CheckDobUpdate rejects a further change once the limit is used up.
func CheckDobUpdate(updatesSoFar int) error {
	if updatesSoFar >= DobUpdateLimit {
		return errors.NewAppError(errors.ErrDobUpdateLimit,
			"You cannot change your date of birth more than 3 times.", 403)
	}
	return nil
}
