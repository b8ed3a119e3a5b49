package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/tourdesk/internal/common"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func checkEmail(verr *common.ValidationError, field, email string) {
	if err := validate.Var(email, "required,email,max=120"); err != nil {
		verr.Add(field, "must be a valid email address")
	}
}

// checkLength counts runes of the trimmed value. A zero min means optional.
func checkLength(verr *common.ValidationError, field, value string, min, max int) {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	switch {
	case min > 0 && n == 0:
		verr.Add(field, "is required")
	case min == 0 && n > max:
		verr.Add(field, fmt.Sprintf("must be at most %d characters", max))
	case min > 0 && (n < min || n > max):
		verr.Add(field, fmt.Sprintf("must be between %d and %d characters", min, max))
	}
}
