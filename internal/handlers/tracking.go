package handlers

import (
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"

	"foodflow-backend/internal/middleware"
	"foodflow-backend/internal/models"
	"foodflow-backend/internal/session"
	"foodflow-backend/internal/tracking"
	"foodflow-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// defaultRiderSpeedKmh is used for ETA estimates when the caller gives no speed
const defaultRiderSpeedKmh = 20.0

var (
	errInvalidMarker  = errors.New("invalid marker")
	errInvalidSession = errors.New("invalid tracking session")
	errNotYourOrder   = errors.New("order belongs to another customer")
)

// TrackingResponse is the tracking view of one user
type TrackingResponse struct {
	ActiveTracking *models.TrackingSession            `json:"active_tracking"`
	Progress       *models.OrderProgress              `json:"progress,omitempty"`
	Locations      map[string]models.DeliveryLocation `json:"locations"`
	Markers        []models.MapMarker                 `json:"markers"`
}

type MarkerPositionRequest struct {
	Coordinates models.Coordinates `json:"coordinates"`
}

// trackingCommand runs fn against the caller's aggregator, persists it and replies with the tracking view
// Superadmins are registered as fleet viewers so their ledger follows every order
func trackingCommand(sessions *session.Manager, fn func(r *http.Request, agg *tracking.Aggregator) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := currentUser(w, r)
		if !ok {
			return
		}

		agg, err := sessions.Tracker(r.Context(), userClaims.UserID)
		if err != nil {
			log.Printf("❌ %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load tracking")
			return
		}
		if userClaims.Role == models.RoleSuperadmin {
			sessions.SetFleetViewer(userClaims.UserID, true)
		}

		if fn != nil {
			if err := fn(r, agg); err != nil {
				switch {
				case errors.Is(err, errBadBody):
					utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
				case errors.Is(err, errInvalidMarker), errors.Is(err, errInvalidSession), errors.Is(err, tracking.ErrInvalidLocation):
					utils.RespondError(w, http.StatusBadRequest, err.Error())
				case errors.Is(err, errNotYourOrder):
					utils.RespondError(w, http.StatusForbidden, err.Error())
				default:
					log.Printf("❌ Tracking command failed for %s: %v", userClaims.UserID, err)
					utils.RespondError(w, http.StatusInternalServerError, "Tracking update failed")
				}
				return
			}

			if err := sessions.SaveTracking(r.Context(), userClaims.UserID); err != nil {
				log.Printf("❌ %v", err)
				utils.RespondError(w, http.StatusInternalServerError, "Failed to save tracking")
				return
			}
		}

		utils.RespondSuccess(w, newTrackingResponse(agg))
	}
}

func newTrackingResponse(agg *tracking.Aggregator) TrackingResponse {
	snap := agg.Snapshot()
	resp := TrackingResponse{
		ActiveTracking: snap.ActiveTracking,
		Locations:      snap.Locations,
		Markers:        snap.Markers,
	}
	if snap.ActiveTracking != nil {
		progress := models.GetOrderProgress(snap.ActiveTracking.Status)
		resp.Progress = &progress
	}
	return resp
}

func validateMarker(m models.MapMarker) error {
	if m.ID == "" {
		return fmt.Errorf("%w: id is required", errInvalidMarker)
	}
	if !m.Type.IsValid() {
		return fmt.Errorf("%w: unknown type %q", errInvalidMarker, m.Type)
	}
	return validateCoordinates(m.Coordinates)
}

func validateCoordinates(c models.Coordinates) error {
	return tracking.ValidateLocation(models.DeliveryLocation{Latitude: c[0], Longitude: c[1]})
}

// GetTracking returns the caller's active session, ledger and markers
func GetTracking(sessions *session.Manager) http.HandlerFunc {
	return trackingCommand(sessions, nil)
}

// SetActiveTracking replaces the watched session (a null body clears it)
// Customers may only watch their own orders; orders not yet out for delivery have no owner to check
func SetActiveTracking(sessions *session.Manager, assignments AssignmentLookup) http.HandlerFunc {
	return trackingCommand(sessions, func(r *http.Request, agg *tracking.Aggregator) error {
		var active *models.TrackingSession
		if err := decodeBody(r, &active); err != nil {
			return err
		}
		if active != nil && active.OrderID == "" {
			return fmt.Errorf("%w: order_id is required", errInvalidSession)
		}

		if active != nil && assignments != nil {
			userClaims, _ := middleware.GetUserFromContext(r)
			assignment, err := assignments.GetAssignment(r.Context(), active.OrderID)
			if err != nil {
				return err
			}
			if assignment != nil && assignment.CustomerID != userClaims.UserID && userClaims.Role != models.RoleSuperadmin {
				log.Printf("❌ %s tried to watch order %s of %s", userClaims.UserID, active.OrderID, assignment.CustomerID)
				return errNotYourOrder
			}
		}

		agg.SetActiveTracking(active)
		return nil
	})
}

// ClearTracking resets the caller's tracking state
func ClearTracking(sessions *session.Manager) http.HandlerFunc {
	return trackingCommand(sessions, func(r *http.Request, agg *tracking.Aggregator) error {
		agg.ClearTracking()
		return nil
	})
}

// SetMarkers replaces all markers
func SetMarkers(sessions *session.Manager) http.HandlerFunc {
	return trackingCommand(sessions, func(r *http.Request, agg *tracking.Aggregator) error {
		var markers []models.MapMarker
		if err := decodeBody(r, &markers); err != nil {
			return err
		}
		for _, m := range markers {
			if err := validateMarker(m); err != nil {
				return err
			}
		}
		agg.SetMarkers(markers)
		return nil
	})
}

// AddMarker adds or replaces one marker
func AddMarker(sessions *session.Manager) http.HandlerFunc {
	return trackingCommand(sessions, func(r *http.Request, agg *tracking.Aggregator) error {
		var marker models.MapMarker
		if err := decodeBody(r, &marker); err != nil {
			return err
		}
		if err := validateMarker(marker); err != nil {
			return err
		}
		agg.AddMarker(marker)
		return nil
	})
}

// RemoveMarker removes a marker by id
func RemoveMarker(sessions *session.Manager) http.HandlerFunc {
	return trackingCommand(sessions, func(r *http.Request, agg *tracking.Aggregator) error {
		agg.RemoveMarker(chi.URLParam(r, "id"))
		return nil
	})
}

// UpdateMarkerPosition moves a marker
func UpdateMarkerPosition(sessions *session.Manager) http.HandlerFunc {
	return trackingCommand(sessions, func(r *http.Request, agg *tracking.Aggregator) error {
		var req MarkerPositionRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		if err := validateCoordinates(req.Coordinates); err != nil {
			return err
		}
		agg.UpdateMarkerPosition(chi.URLParam(r, "id"), req.Coordinates)
		return nil
	})
}

// GetDistance returns the great-circle distance between two points with a rough ETA
// GET /api/tracking/distance?from_lat=&from_lng=&to_lat=&to_lng=[&speed_kmh=]
func GetDistance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		values := make([]float64, 0, 4)
		for _, key := range []string{"from_lat", "from_lng", "to_lat", "to_lng"} {
			v, err := strconv.ParseFloat(q.Get(key), 64)
			if err != nil {
				utils.RespondError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a number", key))
				return
			}
			values = append(values, v)
		}

		for _, c := range []models.Coordinates{{values[0], values[1]}, {values[2], values[3]}} {
			if err := validateCoordinates(c); err != nil {
				utils.RespondError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		speed := defaultRiderSpeedKmh
		if raw := q.Get("speed_kmh"); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil || parsed <= 0 {
				utils.RespondError(w, http.StatusBadRequest, "speed_kmh must be a positive number")
				return
			}
			speed = parsed
		}

		km := utils.CalculateDistance(values[0], values[1], values[2], values[3])
		minutes := int(math.Ceil(km / speed * 60))

		utils.RespondSuccess(w, map[string]interface{}{
			"distance_km":        km,
			"formatted_distance": utils.FormatDistance(km),
			"eta_minutes":        minutes,
			"formatted_eta":      utils.FormatDuration(minutes),
		})
	}
}
