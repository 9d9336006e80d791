package booking

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBookingHandlerOK(t *testing.T) {
	up := &fakeUpstream{}
	h := NewHandler(newTestService(t, up), nil)

	payload := `{"slip":"ABC@09:00XDEF","customer_tos_agree":1,"form":{"customer_first_name":"Jane"}}`
	req := httptest.NewRequest(http.MethodPost, "/checkfront/v1/create-booking", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.CreateBooking(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "S1", body["_session_id"])
	booking := body["booking"].(map[string]any)
	assert.Equal(t, "B1", booking["id"])
}

func TestCreateBookingHandlerMissingSlip(t *testing.T) {
	h := NewHandler(newTestService(t, &fakeUpstream{}), nil)

	req := httptest.NewRequest(http.MethodPost, "/checkfront/v1/create-booking", strings.NewReader(`{"form":{}}`))
	rec := httptest.NewRecorder()
	h.CreateBooking(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "missing_slip", payload["code"])
}

func TestCreateBookingHandlerBadJSON(t *testing.T) {
	h := NewHandler(newTestService(t, &fakeUpstream{}), nil)

	req := httptest.NewRequest(http.MethodPost, "/checkfront/v1/create-booking", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.CreateBooking(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBookingHandlerNoSession(t *testing.T) {
	up := &fakeUpstream{sessionResp: map[string]any{"booking": map[string]any{}}}
	h := NewHandler(newTestService(t, up), nil)

	req := httptest.NewRequest(http.MethodPost, "/checkfront/v1/create-booking", strings.NewReader(`{"slip":"slip"}`))
	rec := httptest.NewRecorder()
	h.CreateBooking(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "no_session", payload["code"])
}
