package models

import "time"

// OrderStatus represents the payment state of an order
type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderPaid     OrderStatus = "paid"
	OrderCanceled OrderStatus = "canceled"
)

// Order is a completed checkout
type Order struct {
	ID        int64        `json:"id"`
	UserID    int64        `json:"user_id"`
	Status    OrderStatus  `json:"status"`
	Total     int64        `json:"total"`
	CreatedAt time.Time    `json:"created_at"`
	Items     []*OrderItem `json:"items"`
}

// OrderItem is a course bought within an order at its price at checkout time
type OrderItem struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"order_id"`
	CourseID    int64  `json:"course_id"`
	CourseTitle string `json:"course_title"`
	Price       int64  `json:"price"`
}

// CourseSales aggregates order items for one course
type CourseSales struct {
	CourseID int64  `json:"course_id"`
	Title    string `json:"title"`
	Sold     int    `json:"sold"`
	Revenue  int64  `json:"revenue"`
}

// PlatformTotals are the headline counters shown to admins
type PlatformTotals struct {
	Users            int `json:"users"`
	Courses          int `json:"courses"`
	PublishedCourses int `json:"published_courses"`
	Enrollments      int `json:"enrollments"`
	Orders           int `json:"orders"`
}
