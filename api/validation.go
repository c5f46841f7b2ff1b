package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// OverviewQuery selects the refresh window of GET /api/overview
type OverviewQuery struct {
	Start string `validate:"max=64"`
	End   string `validate:"max=64"`
}

// SummaryQuery selects the histogram interval of GET /api/overview/summary
type SummaryQuery struct {
	Interval time.Duration `validate:"gte=0"`
}

// DetectorItemsQuery selects one page of a detector's findings or alerts
type DetectorItemsQuery struct {
	DetectorID string `validate:"required,max=256"`
	Page       int    `validate:"gte=0"`
	Limit      int    `validate:"gte=0,lte=1000"`
}

// CorrelationQuery parameterises GET /api/findings/{id}/correlations
type CorrelationQuery struct {
	FindingID string `validate:"required,max=256"`
	LogType   string `validate:"required,max=128"`
	Nearby    int    `validate:"gte=1,lte=1000"`
}

// AcknowledgeRequest is the body of POST /api/detectors/{id}/alerts/acknowledge
type AcknowledgeRequest struct {
	Alerts []string `json:"alerts" validate:"required,min=1,max=1000,dive,required,max=256"`
}

// DefaultNearbyCorrelations is used when nearby is not given
const DefaultNearbyCorrelations = 10

func parseIntParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

func parseDurationParam(r *http.Request, name string) (time.Duration, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 30m", name)
	}
	return d, nil
}

func parseDetectorItemsQuery(r *http.Request) (DetectorItemsQuery, error) {
	q := DetectorItemsQuery{DetectorID: strings.TrimSpace(r.URL.Query().Get("detector_id"))}
	var err error
	if q.Page, err = parseIntParam(r, "page", 1); err != nil {
		return q, err
	}
	if q.Limit, err = parseIntParam(r, "limit", DefaultPageLimit); err != nil {
		return q, err
	}
	return q, nil
}

// validationMessage flattens validator errors into one client message
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return "invalid request: " + strings.Join(parts, "; ")
}
