package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

type (
	// Contact is the person who can vouch for an activity. Every field may be
	// empty.
	Contact struct {
		Name  string
		Email string
		Phone string
	}

	// Activity is one complementary learning entry filed under an academic
	// year. Details holds rich text that is stored and returned verbatim.
	Activity struct {
		Description  string `validate:"required"`
		Date         Date
		AcademicYear int `validate:"gt=0,lte=9999"`
		Contact      Contact
		Hours        float64 `validate:"gte=0"`
		Details      string
	}
)

var (
	ErrEmptyDescription    = errors.New("empty description")
	ErrInvalidHours        = errors.New("invalid hours")
	ErrInvalidAcademicYear = errors.New("invalid academic year")
	ErrMultilineField      = errors.New("field must fit on a single line")
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the invariants every stored activity must satisfy.
func (a Activity) Validate() error {
	if strings.TrimSpace(a.Description) == "" {
		return ErrEmptyDescription
	}
	if math.IsNaN(a.Hours) || math.IsInf(a.Hours, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidHours, a.Hours)
	}
	if err := structValidator().Struct(a); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			switch verrs[0].Field() {
			case "Description":
				return ErrEmptyDescription
			case "Hours":
				return fmt.Errorf("%w: %v must not be negative", ErrInvalidHours, a.Hours)
			case "AcademicYear":
				return fmt.Errorf("%w: %d", ErrInvalidAcademicYear, a.AcademicYear)
			}
		}
		return fmt.Errorf("validate activity: %w", err)
	}
	if err := a.Date.Validate(); err != nil {
		return err
	}
	for name, v := range map[string]string{
		"description":   a.Description,
		"contact name":  a.Contact.Name,
		"contact email": a.Contact.Email,
		"contact phone": a.Contact.Phone,
	} {
		if strings.ContainsAny(v, "\r\n") {
			return fmt.Errorf("%w: %s", ErrMultilineField, name)
		}
	}
	return nil
}

// Compare orders activities by description, then by date. Two activities are
// order-equal when both keys match, even if other fields differ.
func Compare(a, b Activity) int {
	if c := strings.Compare(a.Description, b.Description); c != 0 {
		return c
	}
	return a.Date.Compare(b.Date)
}

// Equal reports field-for-field equality.
func (a Activity) Equal(b Activity) bool {
	return a.Description == b.Description &&
		a.Date.Equal(b.Date) &&
		a.AcademicYear == b.AcademicYear &&
		a.Contact == b.Contact &&
		a.Hours == b.Hours &&
		a.Details == b.Details
}

// AcademicYearLabel renders a starting year as "2021-22".
func AcademicYearLabel(year int) string {
	return fmt.Sprintf("%d-%02d", year, (year+1)%100)
}
