package event_test

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/logbridge/internal/event"
)

func gz(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	raw := gz(t, []byte(`{
		"messageType": "DATA_MESSAGE",
		"owner": "123456789012",
		"logGroup": "log_group_name",
		"logStream": "log_stream_name",
		"subscriptionFilters": ["subscription_filter_name"],
		"logEvents": [
			{"id": "e1", "timestamp": 1510109208016, "message": "log message 1"},
			{"id": "e2", "timestamp": 1510109208017, "message": "log message 2"}
		]
	}`))

	env, err := event.Decode(raw)
	require.NoError(t, err)
	assert.True(t, env.IsData())
	assert.Equal(t, "log_group_name", env.LogGroup)
	assert.Equal(t, []string{"subscription_filter_name"}, env.SubscriptionFilters)
	require.Len(t, env.LogEvents, 2)
	assert.Equal(t, "e2", env.LogEvents[1].ID)
	assert.Equal(t, int64(1510109208017), env.LogEvents[1].Timestamp)
	assert.Equal(t, "log message 1", env.LogEvents[0].Message)
}

func TestDecode_Errors(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
		want error
	}{
		{name: "not gzip", raw: []byte("plain text"), want: event.ErrDecompress},
		{name: "truncated gzip", raw: gz(t, []byte(`{"messageType":"DATA_MESSAGE"}`))[:12], want: event.ErrDecompress},
		{name: "bad json", raw: gz(t, []byte(`{"messageType":`)), want: event.ErrParse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := event.Decode(tc.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	in := &event.LogEnvelope{
		MessageType: event.MessageTypeControl,
		LogEvents:   []event.LogEvent{{ID: "x", Message: "CWL CONTROL MESSAGE"}},
	}
	raw, err := event.Encode(in)
	require.NoError(t, err)

	out, err := event.Decode(raw)
	require.NoError(t, err)
	assert.False(t, out.IsData())
	assert.Equal(t, in.LogEvents, out.LogEvents)
}
