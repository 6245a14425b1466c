package marketplace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/studyhub/internal/cart"
	"github.com/terra-clan/studyhub/internal/models"
)

func TestAddToCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutor := f.user(t, "tutor", models.RoleTutor)
	student := f.user(t, "student", models.RoleStudent)

	paid := f.course(t, tutor, "Paid", price(250000))
	free := f.course(t, tutor, "Free")
	hidden := f.course(t, tutor, "Hidden", price(1000), draft())
	owned := f.course(t, tutor, "Owned", price(1000))
	f.enroll(t, student, owned)

	c, res, err := f.svc.AddToCart(ctx, student, cart.Cart{}, paid.ID)
	require.NoError(t, err)
	assert.False(t, res.AlreadyInCart)
	assert.Equal(t, []int64{paid.ID}, c.CourseIDs)

	c, res, err = f.svc.AddToCart(ctx, student, c, paid.ID)
	require.NoError(t, err)
	assert.True(t, res.AlreadyInCart)
	assert.Equal(t, 1, c.Len())

	_, _, err = f.svc.AddToCart(ctx, student, c, free.ID)
	assert.ErrorIs(t, err, ErrCourseNotFree)
	_, _, err = f.svc.AddToCart(ctx, student, c, hidden.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = f.svc.AddToCart(ctx, student, c, owned.ID)
	assert.ErrorIs(t, err, ErrConflict)
	_, _, err = f.svc.AddToCart(ctx, nil, c, paid.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	c = f.svc.RemoveFromCart(c, 12345)
	assert.Equal(t, 1, c.Len())
	c = f.svc.RemoveFromCart(c, paid.ID)
	assert.True(t, c.IsEmpty())
}

func TestViewCartDropsStaleItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutor := f.user(t, "tutor", models.RoleTutor)

	a := f.course(t, tutor, "A", price(100000))
	b := f.course(t, tutor, "B", price(50000))
	becameFree := f.course(t, tutor, "C", price(1000))
	unpublished := f.course(t, tutor, "D", price(1000))

	becameFree.Price = 0
	require.NoError(t, f.repo.UpdateCourse(ctx, becameFree))
	unpublished.IsPublished = false
	require.NoError(t, f.repo.UpdateCourse(ctx, unpublished))

	in := cart.Cart{CourseIDs: []int64{a.ID, 999, becameFree.ID, b.ID, unpublished.ID}}
	view, out, err := f.svc.ViewCart(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), view.Total)
	assert.Equal(t, 2, view.Count)
	assert.Equal(t, []int64{a.ID, b.ID}, out.CourseIDs)
	assert.Len(t, in.CourseIDs, 5, "input cart is not modified")
}

func TestCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutor := f.user(t, "tutor", models.RoleTutor)
	student := f.user(t, "student", models.RoleStudent)

	a := f.course(t, tutor, "A", price(100000))
	b := f.course(t, tutor, "B", price(50000))

	_, err := f.svc.Checkout(ctx, student, cart.Cart{})
	assert.ErrorIs(t, err, ErrCartEmpty)

	_, err = f.svc.Checkout(ctx, student, cart.Cart{CourseIDs: []int64{999}})
	assert.ErrorIs(t, err, ErrNoPaidItems)

	order, err := f.svc.Checkout(ctx, student, cart.Cart{CourseIDs: []int64{a.ID, b.ID}})
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
	assert.Equal(t, models.OrderPaid, order.Status)
	assert.Equal(t, int64(150000), order.Total)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "A", order.Items[0].CourseTitle)
	assert.Equal(t, int64(100000), order.Items[0].Price)

	for _, c := range []*models.Course{a, b} {
		e, err := f.repo.GetEnrollment(ctx, student.ID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, e.CourseID)
	}

	orders, err := f.svc.Orders(ctx, student)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)

	_, _, err = f.svc.AddToCart(ctx, student, cart.Cart{}, a.ID)
	assert.ErrorIs(t, err, ErrConflict, "bought courses cannot be added again")
}

func TestCheckoutKeepsExistingEnrollments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutor := f.user(t, "tutor", models.RoleTutor)
	student := f.user(t, "student", models.RoleStudent)
	a := f.course(t, tutor, "A", price(100000))
	f.enroll(t, student, a)

	_, err := f.svc.Checkout(ctx, student, cart.Cart{CourseIDs: []int64{a.ID}})
	require.NoError(t, err)

	mine, err := f.svc.MyCourses(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, 1, mine.EnrolledCount)
}

func TestCartStoreRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SaveCart(ctx, 7, cart.Cart{CourseIDs: []int64{1, 2}}))
	c, err := f.svc.Cart(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, c.CourseIDs)

	require.NoError(t, f.svc.ClearCart(ctx, 7))
	c, err = f.svc.Cart(ctx, 7)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}
