package dispatch

import (
	"encoding/json"
	"net/http"

	"uptime/pkg/httpx"
	"uptime/pkg/value"
)

var emptyObject = []byte("{}")

// Resolve applies the response defaults: a missing or out-of-range status
// becomes 200 and anything but a JSON object becomes {}.
func Resolve(o Outcome) (int, []byte) {
	status := o.Status
	if status < 100 || status > 999 {
		status = http.StatusOK
	}
	v := value.Of(o.Payload)
	switch v.Kind() {
	case value.Object:
		b, err := json.Marshal(v)
		if err != nil {
			return status, emptyObject
		}
		return status, b
	default:
		return status, emptyObject
	}
}

// WriteOutcome resolves o and writes it as a JSON response. It returns the
// status and body that were sent.
func WriteOutcome(w httpx.ResponseWriter, o Outcome) (int, []byte, error) {
	status, body := Resolve(o)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(body)
	return status, body, err
}
