package main

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponseUsesErrorEnvelope(t *testing.T) {
	resp := errorResponse("bootstrap failed")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])

	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	assert.Equal(t, "internal", body["error"]["code"])
	assert.Equal(t, "bootstrap failed", body["error"]["message"])
}
