package models

import "time"

// UpdateRequest carries the parameters for one updater run, delivered
// atomically by the control surface after its own trim/parse step.
type UpdateRequest struct {
	Subdomain string        `json:"subdomain"`
	Token     string        `json:"-"` // never serialized or logged
	Interval  time.Duration `json:"interval"`
}

// RequestFromMinutes builds an UpdateRequest from the interval expressed in
// minutes, the unit the control surface collects. Fractional minutes are
// allowed; the runner truncates the wait to whole seconds.
func RequestFromMinutes(subdomain, token string, minutes float64) UpdateRequest {
	return UpdateRequest{
		Subdomain: subdomain,
		Token:     token,
		Interval:  time.Duration(minutes * float64(time.Minute)),
	}
}
