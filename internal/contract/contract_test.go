package contract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultContractIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "KEY POINTS:", c.Headings.KeyPoints)
	assert.Equal(t, "ACTIONS:", c.Headings.Actions)
	assert.Equal(t, 5, c.KeyPointCount)
	assert.Contains(t, c.Persona, "regulatory and contractual documents")
}

func TestUserMessageEmbedsTextVerbatim(t *testing.T) {
	c := Default()
	text := "Contract renews annually unless terminated with 30 days notice.\n{{KEY_POINT_COUNT}} stays literal"
	msg := c.UserMessage(text)

	assert.True(t, strings.HasSuffix(msg, text), "document text must be embedded unchanged at the end")
	assert.Contains(t, msg, `"KEY POINTS:"`)
	assert.Contains(t, msg, `"ACTIONS:"`)
	assert.Contains(t, msg, "exactly 5 key points")
	assert.NotContains(t, msg, "{{DOCUMENT}}")
}

func TestParseRejectsInvalidContracts(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "missing document placeholder", yaml: "version: v1\npersona: p\ninstruction: no doc\nkey_point_count: 3\nheadings: {key_points: 'A:', actions: 'B:'}"},
		{name: "same headings", yaml: "version: v1\npersona: p\ninstruction: '{{DOCUMENT}}'\nkey_point_count: 3\nheadings: {key_points: 'A:', actions: 'a:'}"},
		{name: "zero key points", yaml: "version: v1\npersona: p\ninstruction: '{{DOCUMENT}}'\nkey_point_count: 0\nheadings: {key_points: 'A:', actions: 'B:'}"},
		{name: "no persona", yaml: "version: v1\ninstruction: '{{DOCUMENT}}'\nkey_point_count: 2\nheadings: {key_points: 'A:', actions: 'B:'}"},
		{name: "not yaml", yaml: "version: [v1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
