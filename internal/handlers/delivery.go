package handlers

import (
	"errors"
	"log"
	"net/http"

	"foodflow-backend/internal/models"
	"foodflow-backend/internal/services"
	"foodflow-backend/internal/tracking"
	"foodflow-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

type StartDeliveryRequest struct {
	CustomerID       string  `json:"customer_id"`
	EstimatedArrival *string `json:"estimated_arrival,omitempty"`
}

// PostDeliveryLocation is the HTTP fallback for location_update frames
func PostDeliveryLocation(locations *services.LocationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := currentUser(w, r)
		if !ok {
			return
		}

		var update models.LocationUpdate
		if err := decodeBody(r, &update); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		result, err := locations.Ingest(r.Context(), userClaims.UserID, update.OrderID, update.DeliveryLocation)
		switch {
		case errors.Is(err, tracking.ErrInvalidLocation):
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, services.ErrAssignmentNotFound):
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		case errors.Is(err, services.ErrNotAssigned):
			utils.RespondError(w, http.StatusForbidden, err.Error())
			return
		case errors.Is(err, services.ErrNotInFlight):
			utils.RespondError(w, http.StatusConflict, err.Error())
			return
		case err != nil:
			log.Printf("❌ Location ingest failed: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to record location")
			return
		}

		utils.RespondSuccess(w, result)
	}
}

// StartDelivery assigns the order to the calling agent and starts the customer's tracking
func StartDelivery(deliveries *services.DeliveryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req StartDeliveryRequest
		if err := decodeBody(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.CustomerID == "" {
			utils.RespondError(w, http.StatusBadRequest, "customer_id is required")
			return
		}

		assignment, err := deliveries.Start(r.Context(), userClaims.UserID, chi.URLParam(r, "id"), req.CustomerID, req.EstimatedArrival)
		if errors.Is(err, services.ErrNotAssigned) {
			utils.RespondError(w, http.StatusForbidden, err.Error())
			return
		}
		if err != nil {
			log.Printf("❌ Failed to start delivery: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to start delivery")
			return
		}

		utils.RespondSuccess(w, assignment)
	}
}

// CompleteDelivery marks the calling agent's order delivered
func CompleteDelivery(deliveries *services.DeliveryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := currentUser(w, r)
		if !ok {
			return
		}

		assignment, err := deliveries.Complete(r.Context(), userClaims.UserID, chi.URLParam(r, "id"))
		switch {
		case errors.Is(err, services.ErrAssignmentNotFound):
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		case errors.Is(err, services.ErrNotAssigned):
			utils.RespondError(w, http.StatusForbidden, err.Error())
			return
		case err != nil:
			log.Printf("❌ Failed to complete delivery: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to complete delivery")
			return
		}

		utils.RespondSuccess(w, assignment)
	}
}

// ListDeliveryLocations returns the durable latest location of every order
func ListDeliveryLocations(locations LocationLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := locations.ListLocations(r.Context())
		if err != nil {
			log.Printf("❌ %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to list delivery locations")
			return
		}

		utils.RespondSuccess(w, list)
	}
}
