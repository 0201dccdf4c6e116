package form

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	v "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jekabolt/grbpwr-insights/internal/entity"
)

// DashboardRequest is the raw query string of GET /api/dashboard.
type DashboardRequest struct {
	Period           string   `json:"period"`
	StartDate        string   `json:"start_date"`
	EndDate          string   `json:"end_date"`
	StatusFilters    []string `json:"status_filters"`
	ComparisonPeriod string   `json:"comparison_period"`
	EnableComparison string   `json:"enableComparison"`
}

func NewDashboardRequest(q url.Values) *DashboardRequest {
	r := &DashboardRequest{
		Period:           strings.TrimSpace(q.Get("period")),
		StartDate:        strings.TrimSpace(q.Get("start_date")),
		EndDate:          strings.TrimSpace(q.Get("end_date")),
		ComparisonPeriod: strings.TrimSpace(q.Get("comparison_period")),
		EnableComparison: strings.TrimSpace(q.Get("enableComparison")),
	}
	for _, s := range strings.Split(q.Get("status_filters"), ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			r.StatusFilters = append(r.StatusFilters, s)
		}
	}
	return r
}

// Validate rejects what the resolver can't fall back from. Period tokens and
// dates of any shape resolve later.
func (r *DashboardRequest) Validate() error {
	return ValidateStruct(r,
		v.Field(&r.StatusFilters, v.Each(v.In(statusTokens()...))),
		v.Field(&r.EnableComparison, v.By(validateBool)),
	)
}

// Query converts a validated request.
func (r *DashboardRequest) Query() entity.DashboardQuery {
	q := entity.DashboardQuery{
		Period:           r.Period,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		ComparisonPeriod: r.ComparisonPeriod,
	}
	q.EnableComparison, _ = strconv.ParseBool(r.EnableComparison)
	for _, s := range r.StatusFilters {
		q.StatusFilters = append(q.StatusFilters, entity.OrderStatus(s))
	}
	return q
}

func statusTokens() []interface{} {
	tokens := make([]interface{}, 0, len(entity.AllOrderStatuses))
	for _, s := range entity.AllOrderStatuses {
		tokens = append(tokens, string(s))
	}
	return tokens
}

func validateBool(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := strconv.ParseBool(s); err != nil {
		return errors.New("must be a boolean")
	}
	return nil
}
