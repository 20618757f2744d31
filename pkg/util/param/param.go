package param

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	apitype "github.com/chatlens/chatlens/pkg/apis/api"
)

const DateLayout = "2006-01-02"

// when requesting a param, also validate it against a regexp to ensure it is what we expect
var numRegexp = regexp.MustCompile(`^[\d]+$`)
var nameRegexp = regexp.MustCompile(`^[-.:@\w]+$`)
var dateRegexp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
var boolRegexp = regexp.MustCompile(`^(true|false|1|0)$`)
var paramRegexp = map[string]*regexp.Regexp{
	"start_date":      dateRegexp,
	"end_date":        dateRegexp,
	"date":            dateRegexp,
	"limit":           numRegexp,
	"days":            numRegexp,
	"user_id":         nameRegexp,
	"conversation_id": nameRegexp,
	"audience":        regexp.MustCompile(`^(admin|customer)$`),
	"force":           boolRegexp,
	"forceRefresh":    boolRegexp,
	"refine":          boolRegexp,
}

// SafeRead returns the value of a query parameter only if it matches the given regexp.
// this should be used to validate query parameters that are not otherwise validated.
func SafeRead(req *http.Request, name string) string {
	re, ok := paramRegexp[name]
	if !ok {
		log.Fatalf("code BUG: request for unknown param %s", name) // revive:disable-line:deep-exit
	}
	value := req.URL.Query().Get(name)
	if value == "" || re.MatchString(value) {
		return value
	}
	log.Warnf("invalid value for %s param: %q", name, value)
	return ""
}

// ReadDate parses a YYYY-MM-DD parameter. A missing parameter returns the zero time.
func ReadDate(req *http.Request, name string) (time.Time, error) {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if SafeRead(req, name) == "" {
		return time.Time{}, fmt.Errorf("%s must be a date in the form YYYY-MM-DD", name)
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s is not a valid date: %w", name, err)
	}
	return t, nil
}

// ReadDateRange reads start_date and end_date. Either both or neither must be
// given, and the start may not be after the end.
func ReadDateRange(req *http.Request) (apitype.DateRange, error) {
	start, err := ReadDate(req, "start_date")
	if err != nil {
		return apitype.DateRange{}, err
	}
	end, err := ReadDate(req, "end_date")
	if err != nil {
		return apitype.DateRange{}, err
	}
	if start.IsZero() != end.IsZero() {
		return apitype.DateRange{}, fmt.Errorf("start_date and end_date must be given together")
	}
	if end.Before(start) {
		return apitype.DateRange{}, fmt.Errorf("start_date must not be after end_date")
	}
	return apitype.DateRange{Start: start, End: end}, nil
}

// ReadInt returns a non-negative integer parameter, def when it is missing,
// and an error when it is malformed or larger than max.
func ReadInt(req *http.Request, name string, def, max int) (int, error) {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	value := SafeRead(req, name)
	if value == "" {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	if max > 0 && n > max {
		return 0, fmt.Errorf("%s must be at most %d", name, max)
	}
	return n, nil
}

// ReadBool is true for "true" or "1".
func ReadBool(req *http.Request, name string) bool {
	v := SafeRead(req, name)
	return v == "true" || v == "1"
}
