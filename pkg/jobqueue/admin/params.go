package admin

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
	"github.com/dmitrymomot/jobqueue/pkg/validator"
)

const maxListLimit = 1000

func envelopeID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

func workTypeParam(r *http.Request) jobqueue.WorkType {
	return jobqueue.WorkType(chi.URLParam(r, "workType"))
}

// parseFilter reads the list filters. Malformed numbers and booleans are
// reported per field.
func parseFilter(q url.Values) (jobqueue.EnvelopeFilter, error) {
	f := jobqueue.EnvelopeFilter{
		WorkType: jobqueue.WorkType(q.Get("work_type")),
		State:    jobqueue.State(q.Get("state")),
		Limit:    100,
	}

	var (
		limitOK, offsetOK, failuresOK, pausedOK = true, true, true, true
		err                                     error
	)
	if v := q.Get("limit"); v != "" {
		f.Limit, err = strconv.Atoi(v)
		limitOK = err == nil
	}
	if v := q.Get("offset"); v != "" {
		f.Offset, err = strconv.Atoi(v)
		offsetOK = err == nil
	}
	if v := q.Get("min_failures"); v != "" {
		f.MinFailures, err = strconv.Atoi(v)
		failuresOK = err == nil
	}
	if v := q.Get("paused"); v != "" {
		var p bool
		p, err = strconv.ParseBool(v)
		pausedOK = err == nil
		f.Paused = &p
	}

	verr := validator.Apply(
		validator.When(f.State != "", validator.OneOf("state", f.State,
			jobqueue.StateQueued, jobqueue.StateLeased, jobqueue.StateReclaimable)),
		numberRule("limit", limitOK && f.Limit > 0 && f.Limit <= maxListLimit),
		numberRule("offset", offsetOK && f.Offset >= 0),
		numberRule("min_failures", failuresOK && f.MinFailures >= 0),
		boolRule("paused", pausedOK),
	)
	if verr != nil {
		return f, errors.Join(ErrInvalidFilter, verr)
	}
	return f, nil
}

// parseDelay reads ?delay= as a Go duration; absent means zero.
func parseDelay(q url.Values) (time.Duration, error) {
	v := q.Get("delay")
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if verr := validator.Apply(numberRule("delay", err == nil && d >= 0)); verr != nil {
		return 0, errors.Join(ErrInvalidFilter, verr)
	}
	return d, nil
}

func numberRule(field string, ok bool) validator.Rule {
	return validator.Rule{
		Check: func() bool { return ok },
		Error: validator.ValidationError{Field: field, Rule: "range", Message: "must be a number in range"},
	}
}

func boolRule(field string, ok bool) validator.Rule {
	return validator.Rule{
		Check: func() bool { return ok },
		Error: validator.ValidationError{Field: field, Rule: "bool", Message: "must be true or false"},
	}
}
