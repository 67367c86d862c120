// Package query turns raw list parameters into a bounded, deterministic
// fetch plan and computes pagination metadata for its result.
package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/ButyrinIA/postboard/internal/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxSkip bounds the row offset so every backend can represent it.
	MaxSkip = math.MaxInt32

	// OrderBy is fixed: newest first, tie-broken by the unique id.
	OrderBy = "id DESC"
)

// ParamError reports an invalid list parameter.
type ParamError struct {
	Param   string
	Message string
}

func (e *ParamError) Error() string { return e.Message }

// Params are the raw, unparsed list parameters.
type Params struct {
	Page     string
	Limit    string
	UserID   string
	Throttle string
}

// ParamsFromValues reads list parameters from a URL query.
func ParamsFromValues(v url.Values) Params {
	return Params{
		Page:     v.Get("page"),
		Limit:    v.Get("limit"),
		UserID:   v.Get("userId"),
		Throttle: v.Get("throttle"),
	}
}

// Filter restricts which posts a plan matches. A nil UserID matches all.
type Filter struct {
	UserID *int
}

// Matches reports whether a post with the given author passes the filter.
func (f Filter) Matches(userID int) bool {
	return f.UserID == nil || *f.UserID == userID
}

// Plan is a validated collection fetch.
type Plan struct {
	Page     int
	Limit    int
	Filter   Filter
	Throttle bool
}

// NewPlan validates params and returns the corresponding plan.
func NewPlan(p Params) (Plan, error) {
	plan := Plan{Page: DefaultPage, Limit: DefaultLimit}

	if p.Page != "" {
		page, err := strconv.Atoi(strings.TrimSpace(p.Page))
		if err != nil || page < 1 {
			return Plan{}, &ParamError{Param: "page", Message: "Invalid page parameter"}
		}
		plan.Page = page
	}

	if p.Limit != "" {
		limit, err := strconv.Atoi(strings.TrimSpace(p.Limit))
		if err != nil || limit < 1 || limit > MaxLimit {
			return Plan{}, &ParamError{Param: "limit", Message: "Invalid limit parameter (must be 1-100)"}
		}
		plan.Limit = limit
	}

	if plan.Page-1 > MaxSkip/plan.Limit {
		return Plan{}, &ParamError{Param: "page", Message: "Invalid page parameter"}
	}

	if p.UserID != "" {
		// ids are 32-bit in every backend
		parsed, err := strconv.ParseInt(strings.TrimSpace(p.UserID), 10, 32)
		if err != nil {
			return Plan{}, &ParamError{Param: "userId", Message: "Invalid userId parameter"}
		}
		userID := int(parsed)
		plan.Filter.UserID = &userID
	}

	plan.Throttle = truthy(p.Throttle)
	return plan, nil
}

// Skip is the number of matching rows before the requested page.
func (p Plan) Skip() int { return (p.Page - 1) * p.Limit }

// Take is the maximum number of rows in the requested page.
func (p Plan) Take() int { return p.Limit }

// Paginate computes pagination metadata for a page that returned `returned`
// rows out of `total` matching rows.
func (p Plan) Paginate(total, returned int) models.Pagination {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = (total + p.Limit - 1) / p.Limit
	}
	return models.Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    p.Skip()+returned < total,
	}
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
