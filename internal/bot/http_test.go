package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astrobot/internal/models"
)

func newTestMux(b *Bot, webhookMode bool) *http.ServeMux {
	mux := http.NewServeMux()
	NewHTTPServer(b, webhookMode).RegisterRoutes(mux)
	return mux
}

// signedInitData builds initData the way Telegram signs it
func signedInitData(token string, userID int64, authDate time.Time) string {
	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("user", `{"id":`+strconv.FormatInt(userID, 10)+`,"first_name":"Анна"}`)
	values.Set("query_id", "AAE")

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}

	values.Set("hash", signInitData(token, strings.Join(lines, "\n")))
	return values.Encode()
}

func TestHTTP_Slots(t *testing.T) {
	b, _, _ := newTestBot(t, testOptions())
	mux := newTestMux(b, false)

	req := httptest.NewRequest(http.MethodGet, "/api/slots?date=2025-03-11&user_id=123", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp slotsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "2025-03-11", resp.Date)
	assert.Equal(t, []int{9, 10, 11, 12, 14, 15, 16, 17, 18}, resp.Hours)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/slots?date=11.03.2025&user_id=123", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTP_PollingModeRequiresUserID(t *testing.T) {
	b, _, _ := newTestBot(t, testOptions())
	mux := newTestMux(b, false)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTP_CreateBooking(t *testing.T) {
	b, _, db := newTestBot(t, testOptions())
	mux := newTestMux(b, false)

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/bookings?user_id=123", strings.NewReader(body))
		mux.ServeHTTP(rec, req)
		return rec
	}

	rec := post(`{"date":"2025-03-11","hour":10,"name":"Анна"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Booking
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, testUserID, created.UserID)
	assert.True(t, created.StartsAt.Equal(time.Date(2025, time.March, 11, 10, 0, 0, 0, time.UTC)))

	// Same slot twice
	assert.Equal(t, http.StatusConflict, post(`{"date":"2025-03-11","hour":10}`).Code)
	// Lunch break
	assert.Equal(t, http.StatusConflict, post(`{"date":"2025-03-11","hour":13}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`not json`).Code)

	bookings, err := db.ListUserBookings(context.Background(), testUserID, testNow)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bookings?user_id=123", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []models.Booking
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listed))
	assert.Len(t, listed, 1)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/bookings?user_id=123", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHTTP_ProfileWithInitData(t *testing.T) {
	b, _, db := newTestBot(t, testOptions())
	mux := newTestMux(b, true)

	require.NoError(t, db.SaveNatalProfile(context.Background(), models.NatalProfile{
		UserID:    testUserID,
		Name:      "Анна",
		BirthDate: time.Date(1990, time.May, 15, 0, 0, 0, 0, time.UTC),
		TimeKnown: true,
		BirthHour: 14,
		Place:     "Москва",
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "tma "+signedInitData(b.token, testUserID, testNow.Add(-time.Hour)))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp profileResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Profile)
	assert.Equal(t, "Анна", resp.Profile.Name)
	assert.Equal(t, 14, resp.Profile.BirthHour)
	assert.Empty(t, resp.Bookings)
}

func TestHTTP_InitDataRejected(t *testing.T) {
	opts := testOptions()
	opts.AllowedUserIDs = []int64{testUserID}
	b, _, _ := newTestBot(t, opts)
	mux := newTestMux(b, true)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Bearer abc"},
		{"bad signature", "tma " + signedInitData("other-token", testUserID, testNow)},
		{"too old", "tma " + signedInitData(b.token, testUserID, testNow.Add(-48*time.Hour))},
		{"not allowed", "tma " + signedInitData(b.token, testAdminID, testNow)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
