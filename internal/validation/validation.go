// Package validation checks request input before it reaches the store.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidIdentifier = fmt.Errorf("%w: invalid identifier", ErrValidation)
	ErrInvalidAmount     = fmt.Errorf("%w: invalid amount", ErrValidation)
)

// ValidationError names the offending field. errors.Is(err, ErrValidation)
// holds for every ValidationError.
type ValidationError struct {
	Field  string
	Reason string
	kind   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	if e.kind == nil {
		return ErrValidation
	}
	return e.kind
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names so messages match the request body
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseID converts a 24 character hex string into an ObjectID.
func ParseID(field, raw string) (primitive.ObjectID, error) {
	if err := validate.Var(raw, "required,len=24,hexadecimal"); err != nil {
		return primitive.NilObjectID, &ValidationError{
			Field:  field,
			Reason: "must be a 24 character hex string",
			kind:   ErrInvalidIdentifier,
		}
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, &ValidationError{Field: field, Reason: err.Error(), kind: ErrInvalidIdentifier}
	}
	return id, nil
}

// ParseAmount accepts base-10 integers from 1 to domain.MaxAmount. Zero is
// rejected: removing a line item is always an explicit delete.
func ParseAmount(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	switch {
	case errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-"):
		return 0, amountTooLarge("must not exceed")
	case err != nil:
		return 0, &ValidationError{Field: "amount", Reason: "must be an integer", kind: ErrInvalidAmount}
	case n < 1:
		return 0, &ValidationError{Field: "amount", Reason: "must be greater than 0", kind: ErrInvalidAmount}
	case n > domain.MaxAmount:
		return 0, amountTooLarge("must not exceed")
	}
	return n, nil
}

// TotalTooLarge reports an add that would push a line item past
// domain.MaxAmount.
func TotalTooLarge() error {
	return amountTooLarge("total must not exceed")
}

func amountTooLarge(prefix string) *ValidationError {
	return &ValidationError{
		Field:  "amount",
		Reason: fmt.Sprintf("%s %d", prefix, domain.MaxAmount),
		kind:   ErrInvalidAmount,
	}
}

// Kind tags the entity variants accepted by Validate.
type Kind int

const (
	KindProduct Kind = iota + 1
	KindUser
)

func (k Kind) String() string {
	switch k {
	case KindProduct:
		return "product"
	case KindUser:
		return "user"
	default:
		return "unknown"
	}
}

// Entity is implemented only by the input types of this package.
type Entity interface {
	Kind() Kind
	sealed()
}

type ProductInput struct {
	Name          string  `json:"name" validate:"required"`
	Price         float64 `json:"price" validate:"gt=0"`
	Image         string  `json:"image" validate:"required"`
	AmountInStock *int    `json:"amountInStock" validate:"required,gte=0"`
	Category      string  `json:"category"`
	Description   string  `json:"description"`
}

func (ProductInput) Kind() Kind { return KindProduct }
func (ProductInput) sealed()    {}

type UserInput struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	IsAdmin bool   `json:"isAdmin"`
}

func (UserInput) Kind() Kind { return KindUser }
func (UserInput) sealed()    {}

// Validate checks e against the rules of its kind and returns the first
// violation as a *ValidationError.
func Validate(e Entity) error {
	var err error
	switch v := e.(type) {
	case ProductInput:
		err = validate.Struct(v)
	case *ProductInput:
		err = validate.Struct(v)
	case UserInput:
		err = validate.Struct(v)
	case *UserInput:
		err = validate.Struct(v)
	default:
		return &ValidationError{Field: "entity", Reason: "has an unsupported kind"}
	}
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Field: e.Kind().String() + "." + fe.Field(), Reason: reason(fe)}
	}
	return &ValidationError{Field: e.Kind().String(), Reason: err.Error()}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "email":
		return "must be a valid email address"
	default:
		return "failed the " + fe.Tag() + " rule"
	}
}
