// Package validator provides small declarative rules used to check job
// payloads before they are persisted.
//
// A Rule pairs a deferred boolean Check with the ValidationError reported
// when it fails. Apply evaluates a list of rules and aggregates the failures
// into ValidationErrors, which implements error and matches
// ErrValidationFailed via errors.Is.
//
//	err := validator.Apply(
//	    validator.RequiredString("icalendar_uid", p.ICalendarUID),
//	    validator.PositiveID("home_resource_id", p.HomeResourceID),
//	    validator.When(p.Action != "remove",
//	        validator.ICalendarText("icalendar_text_new", p.ICalendarTextNew)),
//	)
//	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
//	    // inspect verrs.Fields()
//	}
package validator
