// Package validation holds the shared request validator and enum checks.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/benvon/resale-hub/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())

	// Report json field names so messages match the request body.
	Validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// Money fields compare as numbers, so gte=0 and friends work on decimal.Decimal.
	Validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
		d, ok := v.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})

	enums := map[string]func(string) bool{
		"task_status":    func(s string) bool { return ValidateTaskStatus(s) == nil },
		"task_priority":  isOneOf(models.TaskPriorityLow, models.TaskPriorityMedium, models.TaskPriorityHigh),
		"item_status":    isOneOf(models.ItemStatusDraft, models.ItemStatusListed, models.ItemStatusReserved, models.ItemStatusSold),
		"item_condition": isOneOf(models.ConditionNewWithTags, models.ConditionExcellent, models.ConditionGood, models.ConditionFair),
		"goal_metric":    isOneOf(models.GoalMetricRevenue, models.GoalMetricItemsSold, models.GoalMetricProfit, models.GoalMetricCustom),
		"contact_kind":   isOneOf(models.ContactKindSupplier, models.ContactKindCustomer, models.ContactKindConsignor, models.ContactKindOther),
		"capital_kind":   isOneOf(models.CapitalKindCash, models.CapitalKindBank, models.CapitalKindCard, models.CapitalKindPlatform),
	}
	for tag, ok := range enums {
		check := ok
		if err := Validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return check(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("failed to register %s validator: %v", tag, err))
		}
	}
}

func isOneOf[T ~string](values ...T) func(string) bool {
	return func(s string) bool {
		for _, v := range values {
			if string(v) == s {
				return true
			}
		}
		return false
	}
}

// Struct validates s and returns a readable error listing each failing field.
func Struct(s any) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	sort.Strings(msgs)
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "url", "http_url":
		return field + " must be a valid URL"
	case "email":
		return field + " must be a valid email address"
	case "dive":
		return field + " contains an invalid entry"
	}
	return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
}

// SanitizeText removes control characters except newline and tab, then trims whitespace
func SanitizeText(text string) string {
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}
	return strings.TrimSpace(sanitized.String())
}

// ValidateTaskStatus validates a TaskStatus string value
func ValidateTaskStatus(value string) error {
	switch models.TaskStatus(value) {
	case models.TaskStatusTodo, models.TaskStatusInProgress, models.TaskStatusDone:
		return nil
	default:
		return fmt.Errorf("invalid status: %s (must be 'todo', 'in_progress', or 'done')", value)
	}
}

// ValidateItemStatus validates an ItemStatus string value
func ValidateItemStatus(value string) error {
	if isOneOf(models.ItemStatusDraft, models.ItemStatusListed, models.ItemStatusReserved, models.ItemStatusSold)(value) {
		return nil
	}
	return fmt.Errorf("invalid status: %s (must be 'draft', 'listed', 'reserved', or 'sold')", value)
}

// ValidateContactKind validates a ContactKind string value
func ValidateContactKind(value string) error {
	if isOneOf(models.ContactKindSupplier, models.ContactKindCustomer, models.ContactKindConsignor, models.ContactKindOther)(value) {
		return nil
	}
	return fmt.Errorf("invalid kind: %s", value)
}
