package ranking

import "errors"

// Sentinel kinds for ranking errors.
var (
	ErrNoRequiredSkills = errors.New("no required skills")
)
