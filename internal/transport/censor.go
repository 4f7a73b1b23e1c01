package transport

import (
	"encoding/json"
)

// censorBody blanks credential fields before a request body hits the log.
// Anything that is not a JSON object passes through untouched.
func censorBody(body []byte) []byte {
	fields := map[string]interface{}{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return body
	}

	if _, ok := fields["password"]; ok {
		fields["password"] = "$censored"
	}

	censored, err := json.Marshal(fields)
	if err != nil {
		return body
	}
	return censored
}
