package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/logbridge/internal/config"
	"github.com/gyaneshwarpardhi/logbridge/internal/engine"
	"github.com/gyaneshwarpardhi/logbridge/internal/event"
	"github.com/gyaneshwarpardhi/logbridge/internal/reingest"
	"github.com/gyaneshwarpardhi/logbridge/internal/transform"
)

type failingProvider struct{}

func (failingProvider) ForRegion(context.Context, string) (reingest.Sink, error) {
	return nil, errors.New("no credentials")
}

type testServer struct {
	handler http.Handler
	eng     *engine.Engine
	cfgPath string
}

func newTestServer(t *testing.T, yaml string, p *engine.Pipeline) *testServer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	loader, err := config.NewLoader(path)
	require.NoError(t, err)

	reg := transform.NewDefaultRegistry()
	if p == nil {
		p, err = engine.NewPipeline(loader.Config(), reg)
		require.NoError(t, err)
	}
	eng := engine.New(context.Background(), p, failingProvider{}, loader.Config().Engine)
	t.Cleanup(eng.Shutdown)
	return &testServer{handler: New(eng, loader, reg), eng: eng, cfgPath: path}
}

func (s *testServer) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func encodedEnvelope(t *testing.T, messageType string, messages ...string) string {
	t.Helper()
	env := &event.LogEnvelope{MessageType: messageType, LogGroup: "g", LogStream: "s"}
	for _, m := range messages {
		env.LogEvents = append(env.LogEvents, event.LogEvent{ID: "e", Message: m})
	}
	raw, err := event.Encode(env)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func transformRequest(t *testing.T, records ...map[string]interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"invocationId":      "inv-1",
		"deliveryStreamArn": "arn:aws:firehose:us-east-1:123456789012:deliverystream/logs",
		"region":            "us-east-1",
		"records":           records,
	})
	require.NoError(t, err)
	return body
}

type transformResponse struct {
	Records []struct {
		RecordID string `json:"recordId"`
		Result   string `json:"result"`
		Data     []byte `json:"data"`
	} `json:"records"`
}

func TestTransform(t *testing.T) {
	s := newTestServer(t, "version: v1\n", nil)
	body := transformRequest(t,
		map[string]interface{}{"recordId": "a", "approximateArrivalTimestamp": 1700000000000, "data": encodedEnvelope(t, event.MessageTypeControl)},
		map[string]interface{}{"recordId": "b", "approximateArrivalTimestamp": 1700000000000, "data": encodedEnvelope(t, event.MessageTypeData, "x", "y")},
	)

	rec := s.do(t, http.MethodPost, "/v1/transform", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp transformResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Records, 2)
	assert.Equal(t, "a", resp.Records[0].RecordID)
	assert.Equal(t, "ProcessingFailed", resp.Records[0].Result)
	assert.Empty(t, resp.Records[0].Data)
	assert.Equal(t, "b", resp.Records[1].RecordID)
	assert.Equal(t, "Ok", resp.Records[1].Result)
	assert.Equal(t, "x\ny\n", string(resp.Records[1].Data))
}

func TestTransform_BadRequests(t *testing.T) {
	s := newTestServer(t, "version: v1\n", nil)
	dup := transformRequest(t,
		map[string]interface{}{"recordId": "a", "data": encodedEnvelope(t, event.MessageTypeData, "x")},
		map[string]interface{}{"recordId": "a", "data": encodedEnvelope(t, event.MessageTypeData, "y")},
	)

	tests := []struct {
		name string
		body []byte
	}{
		{"malformed json", []byte(`{"records": [`)},
		{"empty batch", transformRequest(t)},
		{"duplicate record id", dup},
		{"data not base64", []byte(`{"records":[{"recordId":"a","data":"%%%"}]}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/v1/transform", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestTransform_InvocationFailure(t *testing.T) {
	s := newTestServer(t, "version: v1\n", nil)
	body := transformRequest(t,
		map[string]interface{}{"recordId": "a", "data": base64.StdEncoding.EncodeToString([]byte("not gzip"))},
	)

	rec := s.do(t, http.MethodPost, "/v1/transform", body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "record a")
}

func TestTransform_ReingestFailure(t *testing.T) {
	p := engine.DefaultPipeline()
	p.CeilingBytes = 1
	s := newTestServer(t, "version: v1\n", p)
	body := transformRequest(t,
		map[string]interface{}{"recordId": "a", "data": encodedEnvelope(t, event.MessageTypeData, "x")},
	)

	rec := s.do(t, http.MethodPost, "/v1/transform", body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "no credentials")
}

func TestConfigEndpoints(t *testing.T) {
	s := newTestServer(t, "version: v1\n", nil)

	rec := s.do(t, http.MethodGet, "/v1/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Contains(t, got["pipeline"], "transform=newline")
	assert.ElementsMatch(t, []interface{}{"json", "newline"}, got["transforms"])

	require.NoError(t, os.WriteFile(s.cfgPath, []byte("version: v1\ntransform:\n  name: json\n"), 0o644))
	rec = s.do(t, http.MethodPost, "/v1/config/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "json", s.eng.Pipeline().Transformer.Name())

	require.NoError(t, os.WriteFile(s.cfgPath, []byte("version: v1\ntransform:\n  name: nope\n"), 0o644))
	rec = s.do(t, http.MethodPost, "/v1/config/reload", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "json", s.eng.Pipeline().Transformer.Name(), "invalid config keeps the running pipeline")

	require.NoError(t, os.WriteFile(s.cfgPath, []byte("version: [unclosed\n"), 0o644))
	rec = s.do(t, http.MethodPost, "/v1/config/reload", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestProbes(t *testing.T) {
	s := newTestServer(t, "version: v1\n", nil)

	rec := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready"`)

	rec = s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "logbridge_")
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, "version: v1\n", nil)
	rec := s.do(t, http.MethodGet, "/v1/transform", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
