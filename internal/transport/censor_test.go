package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCensorBody(t *testing.T) {
	b := `{
		"email": "email@email.com",
		"password": "123456789123"
	}`

	got := censorBody([]byte(b))
	assert.JSONEq(t, `{
		"email": "email@email.com",
		"password": "$censored"
	}`, string(got))
}

func TestCensorBodyNoPassword(t *testing.T) {
	b := `{"name": "travel"}`

	got := censorBody([]byte(b))
	assert.JSONEq(t, b, string(got))
}

func TestCensorBodyNotJSON(t *testing.T) {
	b := `not a json body`

	got := censorBody([]byte(b))
	assert.Equal(t, b, string(got))
}
