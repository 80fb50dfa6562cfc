package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflakeIDJSONAcceptsStringAndNumber(t *testing.T) {
	var payload struct {
		A SnowflakeID `json:"a"`
		B SnowflakeID `json:"b"`
		C SnowflakeID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"1790000000000000001","b":42,"c":""}`), &payload))

	assert.Equal(t, SnowflakeID(1790000000000000001), payload.A)
	assert.Equal(t, SnowflakeID(42), payload.B)
	assert.True(t, payload.C.IsZero())

	out, err := json.Marshal(payload.A)
	require.NoError(t, err)
	assert.Equal(t, `"1790000000000000001"`, string(out))
}

func TestSnowflakeIDScan(t *testing.T) {
	var id SnowflakeID
	require.NoError(t, id.Scan(int64(9)))
	assert.Equal(t, SnowflakeID(9), id)

	require.NoError(t, id.Scan([]byte("12")))
	assert.Equal(t, SnowflakeID(12), id)

	assert.Error(t, id.Scan(3.5))
}

func TestParseSnowflakeID(t *testing.T) {
	id, err := ParseSnowflakeID("77")
	require.NoError(t, err)
	assert.Equal(t, "77", id.String())

	_, err = ParseSnowflakeID("zone-1")
	assert.Error(t, err)
}
