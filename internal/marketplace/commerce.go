package marketplace

import (
	"context"
	"fmt"

	"github.com/terra-clan/studyhub/internal/authz"
	"github.com/terra-clan/studyhub/internal/cart"
	"github.com/terra-clan/studyhub/internal/metrics"
	"github.com/terra-clan/studyhub/internal/models"
)

// AddResult reports what AddToCart did
type AddResult struct {
	Course        *models.Course `json:"course"`
	AlreadyInCart bool           `json:"already_in_cart"`
}

// CartView is the resolved cart content
type CartView struct {
	Courses []*models.Course `json:"courses"`
	Total   int64            `json:"total"`
	Count   int              `json:"count"`
}

// AddToCart puts a paid course into the cart
func (s *Service) AddToCart(ctx context.Context, user *models.User, c cart.Cart, courseID int64) (cart.Cart, *AddResult, error) {
	if err := s.authorize(user, authz.CartWrite, nil); err != nil {
		return c, nil, err
	}

	course, err := s.publishedCourse(ctx, courseID)
	if err != nil {
		return c, nil, err
	}
	if course.IsFree() {
		return c, nil, fmt.Errorf("%w: free courses are enrolled directly", ErrCourseNotFree)
	}

	enrollment, err := s.enrollment(ctx, user, course.ID)
	if err != nil {
		return c, nil, err
	}
	if enrollment != nil {
		return c, nil, fmt.Errorf("%w: already enrolled in %q", ErrConflict, course.Title)
	}

	if c.Contains(course.ID) {
		return c, &AddResult{Course: course, AlreadyInCart: true}, nil
	}
	return c.Add(course.ID), &AddResult{Course: course}, nil
}

// RemoveFromCart drops a course from the cart; absent courses are ignored
func (s *Service) RemoveFromCart(c cart.Cart, courseID int64) cart.Cart {
	return c.Remove(courseID)
}

// ViewCart resolves cart items into courses. Courses that are gone,
// unpublished or free are dropped from the returned cart.
func (s *Service) ViewCart(ctx context.Context, c cart.Cart) (*CartView, cart.Cart, error) {
	view := &CartView{Courses: make([]*models.Course, 0, c.Len())}
	valid := make(map[int64]bool, c.Len())

	for _, id := range c.CourseIDs {
		course, err := s.publishedCourse(ctx, id)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, c, err
		}
		if course.IsFree() {
			continue
		}
		valid[id] = true
		view.Courses = append(view.Courses, course)
		view.Total += course.Price
	}

	view.Count = len(view.Courses)
	return view, c.Retain(func(id int64) bool { return valid[id] }), nil
}

// Checkout pays for every course in the cart and enrolls the buyer.
// The caller clears the cart after a successful checkout.
func (s *Service) Checkout(ctx context.Context, user *models.User, c cart.Cart) (*models.Order, error) {
	if err := s.authorize(user, authz.OrderCreate, nil); err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, ErrCartEmpty
	}

	view, _, err := s.ViewCart(ctx, c)
	if err != nil {
		return nil, err
	}
	if len(view.Courses) == 0 {
		return nil, ErrNoPaidItems
	}

	order := &models.Order{
		UserID:    user.ID,
		Status:    models.OrderPaid,
		Total:     view.Total,
		CreatedAt: s.now().UTC(),
		Items:     make([]*models.OrderItem, 0, len(view.Courses)),
	}
	for _, course := range view.Courses {
		order.Items = append(order.Items, &models.OrderItem{
			CourseID:    course.ID,
			CourseTitle: course.Title,
			Price:       course.Price,
		})
	}

	if err := s.repo.PlaceOrder(ctx, order); err != nil {
		return nil, storageErr("place order", err)
	}

	metrics.RecordCheckout(order.Total, len(order.Items))
	s.logger.Info("order placed", "order_id", order.ID, "user_id", user.ID, "total", order.Total, "courses", len(order.Items))
	return order, nil
}

// Orders lists the user's orders, newest first
func (s *Service) Orders(ctx context.Context, user *models.User) ([]*models.Order, error) {
	if err := s.authorize(user, authz.OrderRead, nil); err != nil {
		return nil, err
	}
	orders, err := s.repo.ListOrders(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	return orders, nil
}
