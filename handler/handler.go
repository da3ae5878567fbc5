package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	models "storefront/model"
	"storefront/service"
)

const requestIDHeader = "X-Request-ID"

// statusClientClosed is the nginx convention for a request whose client went away.
const statusClientClosed = 499

// Handler is the HTTP layer in front of the inventory and cart services.
type Handler struct {
	inventory service.InventoryServiceInterface
	carts     service.CartServiceInterface
	log       logrus.FieldLogger
	timeout   time.Duration
}

func NewHandler(inv service.InventoryServiceInterface, carts service.CartServiceInterface, log logrus.FieldLogger, timeout time.Duration) *Handler {
	return &Handler{inventory: inv, carts: carts, log: log.WithField("component", "http"), timeout: timeout}
}

// RegisterRoutes registers all routes on the provided router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Use(h.requestContext)

	// Inventory
	r.HandleFunc("/inventory", h.ListProducts).Methods(http.MethodGet)
	r.HandleFunc("/inventory", h.AddProduct).Methods(http.MethodPost)
	r.HandleFunc("/inventory/{pid}", h.GetProduct).Methods(http.MethodGet)
	r.HandleFunc("/inventory/{pid}", h.UpdateProduct).Methods(http.MethodPut)
	r.HandleFunc("/inventory/{pid}", h.RemoveProduct).Methods(http.MethodDelete)
	r.HandleFunc("/inventory/{pid}/{amount}", h.IncrementStock).Methods(http.MethodPut)
	r.HandleFunc("/inventory/{pid}/{amount}", h.DecrementStock).Methods(http.MethodDelete)

	// Cart
	r.HandleFunc("/cart", h.CreateCart).Methods(http.MethodPost)
	r.HandleFunc("/cart/{id}", h.GetCart).Methods(http.MethodGet)
	r.HandleFunc("/cart/{id}", h.DeleteCart).Methods(http.MethodDelete)
	r.HandleFunc("/cart/{id}", h.AddItem).Methods(http.MethodPost)
	r.HandleFunc("/cart/{id}", h.ChangeAmount).Methods(http.MethodPut)
	r.HandleFunc("/cart/{id}/remove", h.RemoveItem).Methods(http.MethodPut)
	r.HandleFunc("/cart/{id}/empty", h.EmptyCart).Methods(http.MethodPut)
	r.HandleFunc("/cart/{id}/products", h.ListItems).Methods(http.MethodGet)
	r.HandleFunc("/cart/{id}/lock", h.Lock).Methods(http.MethodPut)
	r.HandleFunc("/cart/{id}/unlock", h.Unlock).Methods(http.MethodPut)
	r.HandleFunc("/cart/{id}/locked", h.IsLocked).Methods(http.MethodGet)

	// Checkout
	r.HandleFunc("/checkout/{id}", h.BeginCheckout).Methods(http.MethodPost)
	r.HandleFunc("/checkout/{id}", h.AbandonCheckout).Methods(http.MethodDelete)
	r.HandleFunc("/checkout/{id}", h.CompleteCheckout).Methods(http.MethodPut)
}

// --- response envelope ---
type envelope struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// --- helpers ---
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, code int, msg string, data interface{}) {
	writeJSON(w, code, envelope{Message: msg, Data: data})
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, envelope{Message: msg})
}

// statusFor maps a service failure onto an HTTP status. Client mistakes keep
// the 400 the storefront API has always answered with.
func statusFor(err error) int {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, models.ErrDuplicateIdentity),
		errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrInsufficientStock),
		errors.Is(err, models.ErrCartEmpty):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrAlreadyLocked),
		errors.Is(err, models.ErrCartLocked),
		errors.Is(err, models.ErrCheckoutNotStarted):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosed
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == statusClientClosed {
		h.logger(r).WithError(err).Info("client went away")
	}
	if code == http.StatusInternalServerError {
		h.logger(r).WithError(err).Error("request failed")
		msg = "internal error"
	}
	writeErr(w, code, msg)
}

func decode(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return models.Invalid("body", "cannot be empty")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.Invalid("body", "invalid json")
	}
	return nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, models.Invalid(name, "must be an integer")
	}
	return v, nil
}

func pathInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		return 0, models.Invalid(name, "must be an integer")
	}
	return v, nil
}

type ctxKey struct{}

// requestContext tags each request with an id, bounds it by the configured
// timeout and logs it.
func (h *Handler) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		log := h.log.WithField("request_id", id)
		log.WithFields(logrus.Fields{
			"method":     r.Method,
			"url":        r.URL.String(),
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
		}).Info("got a new request")

		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		ctx = context.WithValue(ctx, ctxKey{}, log)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) logger(r *http.Request) logrus.FieldLogger {
	if l, ok := r.Context().Value(ctxKey{}).(logrus.FieldLogger); ok {
		return l
	}
	return h.log
}
