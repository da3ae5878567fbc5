package handler

import (
	"context"
	"fmt"
	"net/http"

	models "storefront/model"
)

// ListProducts handles GET /inventory
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.inventory.ListProducts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Products retrieved.", ps)
}

// AddProduct handles POST /inventory
// body: { "pid": 3, "pcode": "PQR123", "price": 100, "sku": "LMN", "amount_in_stock": 20, ... }
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var in models.ProductInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	key, err := h.inventory.AddProduct(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Added product.", []models.ProductKey{key})
}

// GetProduct handles GET /inventory/{pid}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	pid, err := pathInt64(r, "pid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.inventory.GetProduct(r.Context(), pid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Product retrieved.", p)
}

// UpdateProduct handles PUT /inventory/{pid}
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	pid, err := pathInt64(r, "pid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var in models.ProductInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	key, err := h.inventory.UpdateProduct(r.Context(), pid, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Product updated.", []models.ProductKey{key})
}

// RemoveProduct handles DELETE /inventory/{pid}
func (h *Handler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	pid, err := pathInt64(r, "pid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := h.inventory.RemoveProduct(r.Context(), pid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Product removed.", n)
}

// IncrementStock handles PUT /inventory/{pid}/{amount}
func (h *Handler) IncrementStock(w http.ResponseWriter, r *http.Request) {
	h.adjustStock(w, r, h.inventory.IncrementStock, "Added %d to product %d.")
}

// DecrementStock handles DELETE /inventory/{pid}/{amount}
func (h *Handler) DecrementStock(w http.ResponseWriter, r *http.Request) {
	h.adjustStock(w, r, h.inventory.DecrementStock, "Removed %d from product %d.")
}

type stockFunc = func(ctx context.Context, pid int64, amount int) (models.Product, error)

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request, apply stockFunc, msg string) {
	pid, err := pathInt64(r, "pid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	amount, err := pathInt(r, "amount")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := apply(r.Context(), pid, amount)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, fmt.Sprintf(msg, amount, pid), p)
}
