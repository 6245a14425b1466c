package api

import (
	"net/http"

	"github.com/terra-clan/studyhub/internal/cart"
	"github.com/terra-clan/studyhub/internal/marketplace"
)

// Cart handlers load the caller's cart, apply one operation and store the
// result back.

type cartResponse struct {
	*marketplace.CartView
	AlreadyInCart bool `json:"already_in_cart,omitempty"`
}

func (s *Server) loadCart(w http.ResponseWriter, r *http.Request) (cart.Cart, bool) {
	c, err := s.svc.Cart(r.Context(), UserFromContext(r.Context()).ID)
	if err != nil {
		s.respondServiceError(w, r, "load cart", err)
		return cart.Cart{}, false
	}
	return c, true
}

// respondCart resolves, stores and writes the cart
func (s *Server) respondCart(w http.ResponseWriter, r *http.Request, status int, c cart.Cart, alreadyInCart bool) {
	view, resolved, err := s.svc.ViewCart(r.Context(), c)
	if err != nil {
		s.respondServiceError(w, r, "view cart", err)
		return
	}
	if err := s.svc.SaveCart(r.Context(), UserFromContext(r.Context()).ID, resolved); err != nil {
		s.respondServiceError(w, r, "save cart", err)
		return
	}
	respondJSON(w, status, cartResponse{CartView: view, AlreadyInCart: alreadyInCart})
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCart(w, r)
	if !ok {
		return
	}
	s.respondCart(w, r, http.StatusOK, c, false)
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	courseID, ok := idParam(w, r, "courseId")
	if !ok {
		return
	}
	c, ok := s.loadCart(w, r)
	if !ok {
		return
	}

	c, res, err := s.svc.AddToCart(r.Context(), UserFromContext(r.Context()), c, courseID)
	if err != nil {
		s.respondServiceError(w, r, "add to cart", err)
		return
	}

	status := http.StatusCreated
	if res.AlreadyInCart {
		status = http.StatusOK
	}
	s.respondCart(w, r, status, c, res.AlreadyInCart)
}

func (s *Server) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	courseID, ok := idParam(w, r, "courseId")
	if !ok {
		return
	}
	c, ok := s.loadCart(w, r)
	if !ok {
		return
	}

	s.respondCart(w, r, http.StatusOK, s.svc.RemoveFromCart(c, courseID), false)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	c, ok := s.loadCart(w, r)
	if !ok {
		return
	}

	order, err := s.svc.Checkout(r.Context(), user, c)
	if err != nil {
		s.respondServiceError(w, r, "check out", err)
		return
	}

	if err := s.svc.ClearCart(r.Context(), user.ID); err != nil {
		s.logger.Error("failed to clear cart after checkout", "error", err, "user_id", user.ID, "order_id", order.ID)
	}
	respondJSON(w, http.StatusCreated, order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.svc.Orders(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, "list orders", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  len(orders),
	})
}
