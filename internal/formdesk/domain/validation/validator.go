// Package validation implements the record validation rules of the formdesk service.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"formdesk/internal/formdesk/domain/entities"
)

// Сообщения об ошибках валидации.
const (
	MsgUsernameRequired  = "Username is required"
	MsgInvalidEmail      = "Invalid email address"
	MsgAddressRequired   = "Address is required"
	MsgPhoneRequired     = "Phone number is required"
	MsgPasswordTooShort  = "Password must be at least 6 characters long"
	MsgGenderRequired    = "Gender is required"
	MsgFileRequired      = "File is required"
	MsgExpertiseRequired = "Expertise is required"
	MsgExpertiseBlank    = "Expertise tags must not be blank"
)

var messages = map[string]string{
	entities.FieldUsername:  MsgUsernameRequired,
	entities.FieldEmail:     MsgInvalidEmail,
	entities.FieldAddress:   MsgAddressRequired,
	entities.FieldPhone:     MsgPhoneRequired,
	entities.FieldPassword:  MsgPasswordTooShort,
	entities.FieldGender:    MsgGenderRequired,
	entities.FieldFile:      MsgFileRequired,
	entities.FieldExpertise: MsgExpertiseRequired,
}

// Errors ошибки валидации: имя поля -> сообщение. Пустой набор означает, что запись корректна.
type Errors map[string]string

// Valid сообщает, что ошибок нет.
func (e Errors) Valid() bool {
	return len(e) == 0
}

// Option настраивает Validator.
type Option func(*Validator)

// WithStrictExpertise дополнительно запрещает пустые теги expertise.
func WithStrictExpertise() Option {
	return func(v *Validator) {
		v.strictExpertise = true
	}
}

// Validator проверяет записи по правилам полей.
// Безопасен для конкурентного использования.
type Validator struct {
	validate        *validator.Validate
	strictExpertise bool
}

// New создает Validator.
func New(opts ...Option) *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v := &Validator{validate: validate}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate проверяет все правила независимо и возвращает все нарушения.
func (v *Validator) Validate(rec *entities.Record) Errors {
	if rec == nil {
		rec = &entities.Record{}
	}

	errs := Errors{}

	if err := v.validate.Struct(rec); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			errs[""] = err.Error()
			return errs
		}
		for _, fe := range fieldErrs {
			field := fe.Field()
			if msg, ok := messages[field]; ok {
				errs[field] = msg
			}
		}
	}

	if v.strictExpertise && len(rec.Expertise) > 0 {
		if _, failed := errs[entities.FieldExpertise]; !failed {
			if err := v.validate.Var(rec.Expertise, "dive,required"); err != nil {
				errs[entities.FieldExpertise] = MsgExpertiseBlank
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
