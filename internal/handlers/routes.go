package handlers

import (
	"net/http"

	"foodflow-backend/internal/middleware"
	"foodflow-backend/internal/models"
	"foodflow-backend/internal/services"
	"foodflow-backend/internal/session"
	"foodflow-backend/internal/websocket"
	"foodflow-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps is everything the router hands to handlers
type Deps struct {
	JWTSecret   string
	Display     Display
	Sessions    *session.Manager
	Users       UserStore
	Assignments AssignmentLookup
	Locations   LocationLister
	Ingest      *services.LocationService
	Deliveries  *services.DeliveryService
	Hub         *websocket.Hub
}

// NewRouter builds the HTTP API
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{"status": "ok", "sessions": d.Sessions.Stats()}
		if d.Hub != nil {
			status["websocket_clients"] = d.Hub.GetClientCount()
		}
		utils.RespondJSON(w, http.StatusOK, status)
	})

	if d.Users != nil {
		r.Post("/api/auth/login", Login(d.Users, d.JWTSecret))
	}

	// WebSocket endpoint (authentication handled in handler via query param)
	if d.Hub != nil {
		r.Get("/ws", websocket.HandleWebSocket(d.Hub, d.JWTSecret))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(d.JWTSecret))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", GetCart(d.Sessions, d.Display))
			r.Delete("/", ClearCart(d.Sessions, d.Display))
			r.Post("/items", AddCartItem(d.Sessions, d.Display))
			r.Delete("/items/{id}", RemoveCartItem(d.Sessions, d.Display))
			r.Patch("/items/{id}/quantity", UpdateCartItemQuantity(d.Sessions, d.Display))
			r.Patch("/items/{id}/instructions", UpdateCartItemInstructions(d.Sessions, d.Display))
			r.Put("/restaurant", SetCartRestaurant(d.Sessions, d.Display))
			r.Post("/coupon", ApplyCartCoupon(d.Sessions, d.Display))
			r.Delete("/coupon", RemoveCartCoupon(d.Sessions, d.Display))
		})

		r.Route("/tracking", func(r chi.Router) {
			r.Get("/", GetTracking(d.Sessions))
			r.Delete("/", ClearTracking(d.Sessions))
			r.Put("/active", SetActiveTracking(d.Sessions, d.Assignments))
			r.Put("/markers", SetMarkers(d.Sessions))
			r.Post("/markers", AddMarker(d.Sessions))
			r.Delete("/markers/{id}", RemoveMarker(d.Sessions))
			r.Patch("/markers/{id}/position", UpdateMarkerPosition(d.Sessions))
			r.Get("/distance", GetDistance())
		})

		if d.Users != nil {
			r.Post("/fcm-token", RegisterFCMToken(d.Users))
		}

		// Delivery agent endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleDelivery))
			r.Post("/delivery/location", PostDeliveryLocation(d.Ingest))
			if d.Deliveries != nil {
				r.Post("/delivery/orders/{id}/start", StartDelivery(d.Deliveries))
				r.Post("/delivery/orders/{id}/complete", CompleteDelivery(d.Deliveries))
			}
		})

		// Superadmin endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleSuperadmin))
			if d.Locations != nil {
				r.Get("/admin/delivery-locations", ListDeliveryLocations(d.Locations))
			}
			if d.Users != nil {
				r.Post("/users", CreateUser(d.Users))
			}
		})
	})

	return r
}
