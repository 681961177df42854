package validation

import (
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	personNamePattern = regexp.MustCompile(`^[a-zA-Z\x{00C0}-\x{00FF}\s'-]+$`)

	validateOnce sync.Once
	validate     *validator.Validate
)

const (
	MsgNameRequired = "Name is required"
	MsgNameTooShort = "Name must be at least 2 characters long"
	MsgNameTooLong  = "Name must be less than 50 characters"
	MsgNameChars    = "Name can only contain letters, spaces, hyphens, and apostrophes"
)

type userNameForm struct {
	Name string `validate:"required,min=2,max=50,personname"`
}

// FieldError is a rejected form value with a message fit for display.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
			return personNamePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// UserName trims raw and checks it is a plausible display name. It returns the
// trimmed value on success.
func UserName(raw string) (string, error) {
	form := userNameForm{Name: strings.TrimSpace(raw)}
	err := validatorInstance().Struct(form)
	if err == nil {
		return form.Name, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "", err
	}
	return "", &FieldError{Field: "name", Message: nameMessage(fieldErrs[0].Tag())}
}

func nameMessage(tag string) string {
	switch tag {
	case "required":
		return MsgNameRequired
	case "min":
		return MsgNameTooShort
	case "max":
		return MsgNameTooLong
	default:
		return MsgNameChars
	}
}
