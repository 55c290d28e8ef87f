package dto

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/cesargomez89/archivebackup/internal/constants"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) ToMap() map[string]string {
	return map[string]string{e.Field: e.Message}
}

// ValidationErrors is returned by Validate and the query parsers.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	return ToResponse(e)
}

func ToMap(errs []ValidationError) map[string]string {
	result := make(map[string]string)
	for _, e := range errs {
		result[e.Field] = e.Message
	}
	return result
}

func ToResponse(errs []ValidationError) string {
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// fieldName reports the query or json name of a struct field.
func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"query", "json"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return fld.Name
}

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(fieldName)
	})
	return validate
}

// Validate checks s against its validate tags.
func Validate(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "request", Message: err.Error()}}
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "numeric":
		return "must be a number"
	case "excludesall":
		return "contains invalid characters"
	default:
		return "is invalid"
	}
}

type PageQuery struct {
	Page    int `query:"page" validate:"min=1"`
	PerPage int `query:"per_page" validate:"min=1,max=200"`
}

type SearchQuery struct {
	SearchTerm string `query:"search_term" validate:"max=200"`
	Venue      string `query:"venue" validate:"max=200"`
	MinRating  string `query:"min_rating" validate:"omitempty,numeric"`
	StartYear  string `query:"start_year" validate:"omitempty,numeric"`
	EndYear    string `query:"end_year" validate:"omitempty,numeric"`
	Creator    string `query:"creator" validate:"max=200"`
	Collection string `query:"collection" validate:"max=100"`
	SBDOnly    bool   `query:"sbd_only"`
}

// DateRangeQuery also serves year totals, which ignore Month.
type DateRangeQuery struct {
	Collection string `query:"collection" validate:"max=100"`
	Year       int    `query:"year" validate:"required,min=1900,max=2100"`
	Month      int    `query:"month" validate:"min=0,max=12"`
	SBDOnly    bool   `query:"sbd_only"`
}

type QuickBackupRequest struct {
	Identifier string `json:"identifier" validate:"required,max=255,excludesall=/\\"`
}

func ParsePageQuery(values url.Values) (PageQuery, error) {
	var errs ValidationErrors
	q := PageQuery{
		Page:    intParam(values, "page", 1, &errs),
		PerPage: intParam(values, "per_page", constants.DefaultPerPage, &errs),
	}
	if len(errs) > 0 {
		return q, errs
	}
	return q, Validate(q)
}

func ParseSearchQuery(values url.Values) (SearchQuery, error) {
	q := SearchQuery{
		SearchTerm: strings.TrimSpace(values.Get("search_term")),
		Venue:      strings.TrimSpace(values.Get("venue")),
		MinRating:  strings.TrimSpace(values.Get("min_rating")),
		StartYear:  strings.TrimSpace(values.Get("start_year")),
		EndYear:    strings.TrimSpace(values.Get("end_year")),
		Creator:    strings.TrimSpace(values.Get("creator")),
		Collection: strings.TrimSpace(values.Get("collection")),
		SBDOnly:    boolParam(values, "sbd_only"),
	}
	return q, Validate(q)
}

func ParseDateRangeQuery(values url.Values) (DateRangeQuery, error) {
	var errs ValidationErrors
	q := DateRangeQuery{
		Year:       intParam(values, "year", 0, &errs),
		Month:      intParam(values, "month", 0, &errs),
		SBDOnly:    boolParam(values, "sbd_only"),
		Collection: strings.TrimSpace(values.Get("collection")),
	}
	if len(errs) > 0 {
		return q, errs
	}
	return q, Validate(q)
}

func intParam(values url.Values, key string, def int, errs *ValidationErrors) int {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, ValidationError{Field: key, Message: "must be an integer"})
		return def
	}
	return n
}

// boolParam accepts "true" in any case; everything else is false.
func boolParam(values url.Values, key string) bool {
	return strings.EqualFold(strings.TrimSpace(values.Get(key)), "true")
}
