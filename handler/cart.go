package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	models "storefront/model"
)

// --- request shapes ---
type createCartReq struct {
	CartID string `json:"cart_id"`
	models.Owner
}

type itemReq struct {
	PID    int64 `json:"pid"`
	Amount int   `json:"amount,omitempty"` // not used by remove
}

func cartID(r *http.Request) string { return mux.Vars(r)["id"] }

// CreateCart handles POST /cart
// body: { "cart_id": "...", "uid": "..." } or { "cart_id": "...", "sid": "..." }
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	var req createCartReq
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.carts.CreateCart(r.Context(), req.CartID, req.Owner)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Cart created.", c.View())
}

// GetCart handles GET /cart/{id}
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.GetCart(r.Context(), cartID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Cart retrieved.", c.View())
}

// DeleteCart handles DELETE /cart/{id}
func (h *Handler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	n, err := h.carts.DeleteCart(r.Context(), cartID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Cart deleted.", n)
}

// AddItem handles POST /cart/{id}
// body: { "pid": 1, "amount": 2 }
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req itemReq
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.carts.AddItem(r.Context(), cartID(r), req.PID, req.Amount)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Product added.", item)
}

// ChangeAmount handles PUT /cart/{id}
// body: { "pid": 1, "amount": 5 }
func (h *Handler) ChangeAmount(w http.ResponseWriter, r *http.Request) {
	var req itemReq
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.carts.ChangeAmount(r.Context(), cartID(r), req.PID, req.Amount)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Amount updated.", item)
}

// RemoveItem handles PUT /cart/{id}/remove
// body: { "pid": 1 }
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	var req itemReq
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := h.carts.RemoveItem(r.Context(), cartID(r), req.PID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Product removed.", n)
}

// EmptyCart handles PUT /cart/{id}/empty
func (h *Handler) EmptyCart(w http.ResponseWriter, r *http.Request) {
	n, err := h.carts.EmptyCart(r.Context(), cartID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Cart cleared.", n)
}

// ListItems handles GET /cart/{id}/products
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.carts.ListItems(r.Context(), cartID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Product listing returned.", items)
}

// Lock handles PUT /cart/{id}/lock
func (h *Handler) Lock(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Lock(r.Context(), cartID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Cart locked.", map[string]bool{"locked": true})
}

// Unlock handles PUT /cart/{id}/unlock
func (h *Handler) Unlock(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Unlock(r.Context(), cartID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Cart unlocked.", map[string]bool{"locked": false})
}

// IsLocked handles GET /cart/{id}/locked
func (h *Handler) IsLocked(w http.ResponseWriter, r *http.Request) {
	locked, err := h.carts.IsLocked(r.Context(), cartID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Lock status retrieved.", map[string]bool{"locked": locked})
}

// BeginCheckout handles POST /checkout/{id}
func (h *Handler) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.BeginCheckout(r.Context(), cartID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Checkout started.", c.View())
}

// AbandonCheckout handles DELETE /checkout/{id}
func (h *Handler) AbandonCheckout(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.AbandonCheckout(r.Context(), cartID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Checkout abandoned.", c.View())
}

// CompleteCheckout handles PUT /checkout/{id}
func (h *Handler) CompleteCheckout(w http.ResponseWriter, r *http.Request) {
	items, err := h.carts.CompleteCheckout(r.Context(), cartID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Checkout completed.", items)
}
