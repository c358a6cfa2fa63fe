package session

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// MinPasswordLength is the minimum password length accepted by the forms.
const MinPasswordLength = 6

// ValidationError is a form error detected before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	rules := map[string]validator.Func{
		"cpf": func(fl validator.FieldLevel) bool {
			return len(Digits(fl.Field().String())) == 11
		},
		"phone": func(fl validator.FieldLevel) bool {
			n := len(Digits(fl.Field().String()))
			return n >= 10 && n <= 11
		},
		"password": func(fl validator.FieldLevel) bool {
			return utf8.RuneCountInString(fl.Field().String()) >= MinPasswordLength
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %q validation: %v", tag, err))
		}
	}
	return v
}

// messages maps a failed validation tag to the message shown to the user.
var messages = map[string]string{
	"required": "Campo obrigatório",
	"email":    "E-mail inválido",
	"cpf":      "CPF deve ter 11 dígitos",
	"phone":    "Telefone inválido",
	"password": fmt.Sprintf("A senha deve ter no mínimo %d caracteres", MinPasswordLength),
	"eqfield":  "As senhas não coincidem",
}

// check runs the struct validator and converts the first failure.
func check(form interface{}) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	msg, ok := messages[fe.Tag()]
	if !ok {
		msg = "Valor inválido"
	}
	return &ValidationError{Field: fe.Field(), Message: msg}
}

// LoginForm is the login screen input.
type LoginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Validate checks the form.
func (f LoginForm) Validate() error { return check(f) }

// RegisterForm is the registration screen input.
type RegisterForm struct {
	Name            string `validate:"required"`
	Email           string `validate:"required,email"`
	CPF             string `validate:"cpf"`
	Phone           string `validate:"phone"`
	Password        string `validate:"required"`
	ConfirmPassword string `validate:"eqfield=Password"`
}

// Validate checks password confirmation first, then the remaining fields.
func (f RegisterForm) Validate() error {
	if f.Password != f.ConfirmPassword {
		return &ValidationError{Field: "ConfirmPassword", Message: messages["eqfield"]}
	}
	return check(f)
}

// PasswordForm sets the password of an account created by an external purchase.
type PasswordForm struct {
	Password        string `validate:"password"`
	ConfirmPassword string `validate:"eqfield=Password"`
}

// Validate checks password confirmation first, then the length.
func (f PasswordForm) Validate() error {
	if f.Password != f.ConfirmPassword {
		return &ValidationError{Field: "ConfirmPassword", Message: messages["eqfield"]}
	}
	return check(f)
}

// Digits strips every non-digit rune.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) && r < utf8.RuneSelf {
			return r
		}
		return -1
	}, s)
}

// MaskCPF formats up to 11 digits as XXX.XXX.XXX-XX while typing.
func MaskCPF(s string) string {
	d := Digits(s)
	if len(d) > 11 {
		d = d[:11]
	}
	var b strings.Builder
	for i := 0; i < len(d); i++ {
		switch i {
		case 3, 6:
			b.WriteByte('.')
		case 9:
			b.WriteByte('-')
		}
		b.WriteByte(d[i])
	}
	return b.String()
}

// MaskPhone formats up to 11 digits as (XX) XXXXX-XXXX while typing.
// Longer input is returned as bare digits.
func MaskPhone(s string) string {
	d := Digits(s)
	if len(d) > 11 || len(d) < 3 {
		return d
	}
	area, rest := d[:2], d[2:]
	if len(rest) >= 5 {
		rest = rest[:len(rest)-4] + "-" + rest[len(rest)-4:]
	}
	return "(" + area + ") " + rest
}
