package bot

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"astrobot/internal/models"
	"astrobot/internal/storage"
)

// initDataMaxAge is how long a Mini App initData stays valid
const initDataMaxAge = 24 * time.Hour

type userIDKey struct{}

// HTTPServer serves the JSON API used by the Mini App
type HTTPServer struct {
	bot         *Bot
	webhookMode bool // If false (polling mode), user_id query parameter is trusted for local dev
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(bot *Bot, webhookMode bool) *HTTPServer {
	return &HTTPServer{
		bot:         bot,
		webhookMode: webhookMode,
	}
}

// RegisterRoutes registers API routes on the provided mux
func (hs *HTTPServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/profile", hs.authMiddleware(hs.handleProfile))
	mux.HandleFunc("/api/slots", hs.authMiddleware(hs.handleSlots))
	mux.HandleFunc("/api/bookings", hs.authMiddleware(hs.handleBookings))
}

// validateTelegramInitData validates the Telegram Mini App initData and
// returns the user it was issued for
func (hs *HTTPServer) validateTelegramInitData(initData string) (int64, error) {
	if initData == "" {
		return 0, errors.New("missing initData")
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return 0, fmt.Errorf("invalid initData format: %w", err)
	}

	hash := values.Get("hash")
	if hash == "" {
		return 0, errors.New("missing hash in initData")
	}
	values.Del("hash")

	// Create data-check-string
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var dataCheckString strings.Builder
	for i, k := range keys {
		if i > 0 {
			dataCheckString.WriteByte('\n')
		}
		dataCheckString.WriteString(k)
		dataCheckString.WriteByte('=')
		dataCheckString.WriteString(values.Get(k))
	}

	if !hmac.Equal([]byte(signInitData(hs.bot.token, dataCheckString.String())), []byte(hash)) {
		return 0, errors.New("invalid hash")
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return 0, errors.New("missing auth_date")
	}
	if hs.bot.now().Sub(time.Unix(authDate, 0)) > initDataMaxAge {
		return 0, errors.New("initData is too old")
	}

	userStr := values.Get("user")
	if userStr == "" {
		return 0, errors.New("missing user data")
	}
	var userData struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(userStr), &userData); err != nil {
		return 0, fmt.Errorf("invalid user data: %w", err)
	}

	if !hs.bot.isAllowed(userData.ID) {
		return 0, errors.New("user not allowed")
	}
	return userData.ID, nil
}

// signInitData computes the hex HMAC Telegram puts into the hash field
func signInitData(token, dataCheckString string) string {
	secretKey := hmac.New(sha256.New, []byte("WebAppData"))
	secretKey.Write([]byte(token))

	h := hmac.New(sha256.New, secretKey.Sum(nil))
	h.Write([]byte(dataCheckString))
	return hex.EncodeToString(h.Sum(nil))
}

// authMiddleware resolves the calling user and stores it in the request context.
// In polling mode the user_id query parameter is trusted for local development
func (hs *HTTPServer) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var userID int64
		if !hs.webhookMode {
			id, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "user_id is required in polling mode")
				return
			}
			hs.bot.logger.Debug("Skipping authentication (polling mode)",
				zap.String("path", r.URL.Path),
				zap.Int64("user_id", id),
			)
			userID = id
		} else {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "tma ") {
				hs.bot.logger.Warn("Missing or invalid authorization header")
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			id, err := hs.validateTelegramInitData(strings.TrimPrefix(authHeader, "tma "))
			if err != nil {
				hs.bot.logger.Warn("Failed to validate initData",
					zap.Error(err),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			userID = id
		}

		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey{}, userID)))
	}
}

func requestUser(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey{}).(int64)
	return id
}

// profileResponse is returned by /api/profile
type profileResponse struct {
	Profile  *models.NatalProfile `json:"profile"`
	Bookings []models.Booking     `json:"bookings"`
}

// handleProfile returns the natal profile and upcoming bookings of the caller
func (hs *HTTPServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	userID := requestUser(r)

	profile, err := hs.bot.db.GetNatalProfile(r.Context(), userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		hs.bot.logger.Error("Failed to get natal profile", zap.Error(err), zap.Int64("user_id", userID))
		writeError(w, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}

	bookings, err := hs.bot.db.ListUserBookings(r.Context(), userID, hs.bot.now().UTC())
	if err != nil {
		hs.bot.logger.Error("Failed to list user bookings", zap.Error(err), zap.Int64("user_id", userID))
		writeError(w, http.StatusInternalServerError, "Failed to fetch bookings")
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}

	writeJSON(w, http.StatusOK, profileResponse{Profile: profile, Bookings: bookings})
}

// slotsResponse is returned by /api/slots
type slotsResponse struct {
	Date  string `json:"date"`
	Hours []int  `json:"hours"`
}

// handleSlots returns the bookable hours of ?date=YYYY-MM-DD
func (hs *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	day, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format")
		return
	}

	writeJSON(w, http.StatusOK, slotsResponse{Date: dayKey(day), Hours: hs.bot.availableHours(r.Context(), day)})
}

// CreateBookingRequest represents the request body for creating a booking
type CreateBookingRequest struct {
	Date string `json:"date"`
	Hour int    `json:"hour"`
	Name string `json:"name"`
}

// handleBookings lists the upcoming bookings of the caller (GET) or books a slot (POST)
func (hs *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	userID := requestUser(r)

	switch r.Method {
	case http.MethodGet:
		bookings, err := hs.bot.db.ListUserBookings(r.Context(), userID, hs.bot.now().UTC())
		if err != nil {
			hs.bot.logger.Error("Failed to list user bookings", zap.Error(err), zap.Int64("user_id", userID))
			writeError(w, http.StatusInternalServerError, "Failed to fetch bookings")
			return
		}
		if bookings == nil {
			bookings = []models.Booking{}
		}
		writeJSON(w, http.StatusOK, bookings)

	case http.MethodPost:
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			hs.bot.logger.Warn("Failed to decode request body", zap.Error(err))
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		day, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format")
			return
		}
		if !slices.Contains(hs.bot.availableHours(r.Context(), day), req.Hour) {
			writeError(w, http.StatusConflict, "Slot is not available")
			return
		}

		booking := models.Booking{
			ID:       uuid.NewString(),
			UserID:   userID,
			Name:     req.Name,
			StartsAt: hs.bot.slotStart(day, req.Hour),
		}
		err = hs.bot.db.CreateBooking(r.Context(), booking)
		hs.bot.slots.invalidate(dayKey(day))
		if errors.Is(err, storage.ErrSlotTaken) {
			writeError(w, http.StatusConflict, "Slot is not available")
			return
		}
		if err != nil {
			hs.bot.logger.Error("Failed to create booking", zap.Error(err), zap.Int64("user_id", userID))
			writeError(w, http.StatusInternalServerError, "Failed to create booking")
			return
		}

		hs.bot.logger.Info("Booking created via API",
			zap.String("booking_id", booking.ID),
			zap.Int64("user_id", userID),
			zap.Time("starts_at", booking.StartsAt),
		)
		writeJSON(w, http.StatusCreated, booking)

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
