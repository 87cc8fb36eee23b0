package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/iliyamo/balloon-tour-booking/internal/model"
)

// ProgramInput is one itinerary step as submitted in the program field.
type ProgramInput struct {
	MiniTitle string `json:"miniTitle"`
	Text      string `json:"text"`
}

// ReviewInput is one review as submitted in the reviews field.  CreatedAt
// is kept as text so a bad date is reported against its review rather than
// failing the whole array; it accepts whatever ParseDate does.
type ReviewInput struct {
	Name      string `json:"name"`
	Avatar    string `json:"avatar"`
	Rating    Number `json:"rating"`
	Comment   string `json:"comment"`
	CreatedAt string `json:"createdAt"`
}

// FlightInput is the typed form of a flight create/update request. Nil
// pointers mean the field was not submitted.
type FlightInput struct {
	Title    *string
	Overview *string
	Price    *float64
	Category *string
	Program  *[]ProgramInput
	Reviews  *[]ReviewInput
}

const (
	msgProgramArray = "Program must be an array"
	msgReviewsArray = "Reviews must be an array"
)

// DecodeFlightForm converts multipart form values into a FlightInput. Price is
// coerced here, exactly once; an unparseable price becomes NaN so the range
// rule rejects it. Program and reviews arrive as JSON strings and malformed
// ones are reported as decode errors.
func DecodeFlightForm(form map[string][]string) (FlightInput, Errors) {
	var in FlightInput
	var errs Errors
	if v, ok := first(form, "title"); ok {
		in.Title = &v
	}
	if v, ok := first(form, "overview"); ok {
		in.Overview = &v
	}
	if v, ok := first(form, "category"); ok {
		in.Category = &v
	}
	if v, ok := first(form, "price"); ok {
		p, _ := CoerceNumber(v)
		in.Price = &p
	}
	if v, ok := first(form, "program"); ok && strings.TrimSpace(v) != "" {
		var items []ProgramInput
		if err := json.Unmarshal([]byte(v), &items); err != nil || items == nil {
			errs = append(errs, msgProgramArray)
		} else {
			in.Program = &items
		}
	}
	if v, ok := first(form, "reviews"); ok && strings.TrimSpace(v) != "" {
		var items []ReviewInput
		if err := json.Unmarshal([]byte(v), &items); err != nil || items == nil {
			errs = append(errs, msgReviewsArray)
		} else {
			in.Reviews = &items
		}
	}
	return in, errs
}

func first(form map[string][]string, key string) (string, bool) {
	vs, ok := form[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// ValidateFlight checks a FlightInput. In ModeUpdate absent fields are skipped.
func ValidateFlight(in FlightInput, mode Mode) Errors {
	var errs Errors
	full := mode == ModeCreate

	if full || in.Title != nil {
		errs.check(in.Title != nil && minLen(*in.Title, 3), "Title is required and must be at least 3 characters")
	}
	if full || in.Overview != nil {
		errs.check(in.Overview != nil && minLen(*in.Overview, 10), "Overview is required and must be at least 10 characters")
	}
	if full || in.Price != nil {
		errs.check(in.Price != nil && positive(*in.Price), "Valid price is required and must be greater than 0")
	}
	if in.Category != nil && strings.TrimSpace(*in.Category) != "" {
		errs.check(validCategory(*in.Category), "Invalid category")
	}
	if in.Program != nil {
		for i, item := range *in.Program {
			errs.check(minLen(item.MiniTitle, 2), fmt.Sprintf("Program item %d: miniTitle is required and must be at least 2 characters", i+1))
			errs.check(minLen(item.Text, 5), fmt.Sprintf("Program item %d: text is required and must be at least 5 characters", i+1))
		}
	}
	if in.Reviews != nil {
		for i, r := range *in.Reviews {
			errs.check(minLen(r.Name, 2), fmt.Sprintf("Review %d: name is required and must be at least 2 characters", i+1))
			errs.check(r.Rating.Valid && r.Rating.Value >= 1 && r.Rating.Value <= 5, fmt.Sprintf("Review %d: rating is required and must be between 1 and 5", i+1))
			errs.check(minLen(r.Comment, 5), fmt.Sprintf("Review %d: comment is required and must be at least 5 characters", i+1))
			if strings.TrimSpace(r.CreatedAt) != "" {
				_, ok := ParseDate(r.CreatedAt)
				errs.check(ok, fmt.Sprintf("Review %d: createdAt must be a valid date", i+1))
			}
		}
	}
	return errs
}

func validCategory(c string) bool {
	for _, v := range model.Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Apply writes the submitted fields onto dst, trimming strings. Fields that
// were not submitted keep dst's current values, which makes Apply serve both
// creation (dst zero) and partial update (dst loaded from the store). The
// input must have passed ValidateFlight.
func (in FlightInput) Apply(dst *model.Flight, now time.Time) {
	if in.Title != nil {
		dst.Title = strings.TrimSpace(*in.Title)
	}
	if in.Overview != nil {
		dst.Overview = strings.TrimSpace(*in.Overview)
	}
	if in.Price != nil {
		dst.Price = *in.Price
	}
	if in.Category != nil && strings.TrimSpace(*in.Category) != "" {
		dst.Category = *in.Category
	}
	if dst.Category == "" {
		dst.Category = model.CategoryVIP
	}
	if in.Program != nil {
		dst.Program = make([]model.ProgramItem, 0, len(*in.Program))
		for _, p := range *in.Program {
			dst.Program = append(dst.Program, model.ProgramItem{
				MiniTitle: strings.TrimSpace(p.MiniTitle),
				Text:      strings.TrimSpace(p.Text),
			})
		}
	}
	if in.Reviews != nil {
		dst.Reviews = make([]model.Review, 0, len(*in.Reviews))
		for _, r := range *in.Reviews {
			created := now
			if t, ok := ParseDate(r.CreatedAt); ok {
				created = t
			}
			dst.Reviews = append(dst.Reviews, model.Review{
				Name:      strings.TrimSpace(r.Name),
				Avatar:    strings.TrimSpace(r.Avatar),
				Rating:    r.Rating.Value,
				Comment:   strings.TrimSpace(r.Comment),
				CreatedAt: created,
			})
		}
		dst.Rating = averageRating(dst.Reviews)
	}
}

// averageRating rounds the mean review rating to one decimal.
func averageRating(reviews []model.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	var sum float64
	for _, r := range reviews {
		sum += r.Rating
	}
	return math.Round(sum/float64(len(reviews))*10) / 10
}
