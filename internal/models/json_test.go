package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSON_WebhookPayloadRoundTrip(t *testing.T) {
	raw := []byte(`{"object":{"id":"cs_123","amount_total":1000,"metadata":{"voucher_code":"abc"}}}`)

	var payload JSON
	assert.NoError(t, json.Unmarshal(raw, &payload))
	object := payload["object"].(map[string]interface{})
	assert.Equal(t, "cs_123", object["id"])

	out, err := json.Marshal(payload)
	assert.NoError(t, err)
	assert.JSONEq(t, string(raw), string(out))

	value, err := payload.Value()
	assert.NoError(t, err)

	var scanned JSON
	assert.NoError(t, scanned.Scan(value))
	assert.Equal(t, payload, scanned)
}

func TestJSON_NilHandling(t *testing.T) {
	var payload JSON

	value, err := payload.Value()
	assert.NoError(t, err)
	assert.Nil(t, value)

	scanned := JSON{"stale": true}
	assert.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)

	assert.Error(t, scanned.Scan(42))
}
