package marketplace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/terra-clan/studyhub/internal/authz"
	"github.com/terra-clan/studyhub/internal/content"
	"github.com/terra-clan/studyhub/internal/models"
	"github.com/terra-clan/studyhub/internal/storage"
	"github.com/terra-clan/studyhub/internal/validation"
)

const (
	topCoursesLimit = 5
	revenueWindow   = 30 * 24 * time.Hour

	// SupportFilterAll lists requests of every status
	SupportFilterAll = "all"
)

// SupportInput is the contact form
type SupportInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Contact     string `json:"contact" validate:"required,max=200"`
	ContactType string `json:"contact_type" validate:"omitempty,oneof=email phone telegram"`
	Message     string `json:"message" validate:"required,max=5000"`
}

// SupportInbox is the admin view of support requests
type SupportInbox struct {
	Requests []*models.SupportRequest `json:"requests"`
	Status   string                   `json:"status"`
	Counts   *storage.SupportCounts   `json:"counts"`
}

// Stats is the admin dashboard
type Stats struct {
	Totals        *models.PlatformTotals `json:"totals"`
	TopCourses    []*models.CourseSales  `json:"top_courses"`
	RecentRevenue int64                  `json:"recent_revenue"`
	RecentOrders  int                    `json:"recent_orders"`
	WindowDays    int                    `json:"window_days"`
}

// CreateSupportRequest stores a contact form submission
func (s *Service) CreateSupportRequest(ctx context.Context, in SupportInput) (*models.SupportRequest, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Contact = strings.TrimSpace(in.Contact)
	in.Message = strings.TrimSpace(in.Message)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	req := &models.SupportRequest{
		Name:        in.Name,
		Contact:     in.Contact,
		ContactType: in.ContactType,
		Message:     in.Message,
		Status:      models.SupportPending,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateSupportRequest(ctx, req); err != nil {
		return nil, storageErr("create support request", err)
	}

	s.logger.Info("support request received", "request_id", req.ID, "contact_type", req.ContactType)
	return req, nil
}

// SupportRequests lists support requests by status: pending (default),
// completed or all
func (s *Service) SupportRequests(ctx context.Context, user *models.User, status string) (*SupportInbox, error) {
	if err := s.authorize(user, authz.SupportRead, nil); err != nil {
		return nil, err
	}

	status = strings.TrimSpace(status)
	if status == "" {
		status = string(models.SupportPending)
	}

	var filter models.SupportStatus
	if status != SupportFilterAll {
		filter = models.SupportStatus(status)
		if !filter.Valid() {
			return nil, validationErr("unknown status %q", status)
		}
	}

	inbox := &SupportInbox{Status: status}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		requests, err := s.repo.ListSupportRequests(gctx, filter)
		if err != nil {
			return fmt.Errorf("list support requests: %w", err)
		}
		inbox.Requests = requests
		return nil
	})
	g.Go(func() error {
		counts, err := s.repo.CountSupportRequests(gctx)
		if err != nil {
			return fmt.Errorf("count support requests: %w", err)
		}
		inbox.Counts = counts
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if inbox.Requests == nil {
		inbox.Requests = []*models.SupportRequest{}
	}
	return inbox, nil
}

// UpdateSupportStatus moves a request between pending and completed
func (s *Service) UpdateSupportStatus(ctx context.Context, user *models.User, id int64, status string) (*models.SupportRequest, error) {
	if err := s.authorize(user, authz.SupportUpdate, nil); err != nil {
		return nil, err
	}

	next := models.SupportStatus(strings.TrimSpace(status))
	if !next.Valid() {
		return nil, validationErr("status must be %q or %q", models.SupportPending, models.SupportCompleted)
	}

	req, err := s.repo.GetSupportRequest(ctx, id)
	if err != nil {
		return nil, storageErr("get support request", err)
	}

	req.Status = next
	if next == models.SupportCompleted {
		at := s.now().UTC()
		req.CompletedAt = &at
	} else {
		req.CompletedAt = nil
	}

	if err := s.repo.UpdateSupportRequest(ctx, req); err != nil {
		return nil, storageErr("update support request", err)
	}

	s.logger.Info("support request updated", "request_id", req.ID, "status", req.Status, "user_id", user.ID)
	return req, nil
}

// FAQ returns the FAQ page for a category id; unknown ids select the first category
func (s *Service) FAQ(category string) *content.FAQPage {
	return s.content.FAQ(category)
}

// AdminStats gathers the admin dashboard figures
func (s *Service) AdminStats(ctx context.Context, user *models.User) (*Stats, error) {
	if err := s.authorize(user, authz.StatsRead, nil); err != nil {
		return nil, err
	}

	stats := &Stats{WindowDays: int(revenueWindow / (24 * time.Hour))}
	since := s.now().UTC().Add(-revenueWindow)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totals, err := s.repo.Totals(gctx)
		if err != nil {
			return fmt.Errorf("totals: %w", err)
		}
		stats.Totals = totals
		return nil
	})
	g.Go(func() error {
		top, err := s.repo.TopSellingCourses(gctx, topCoursesLimit)
		if err != nil {
			return fmt.Errorf("top selling courses: %w", err)
		}
		stats.TopCourses = top
		return nil
	})
	g.Go(func() error {
		revenue, orders, err := s.repo.RevenueSince(gctx, since)
		if err != nil {
			return fmt.Errorf("recent revenue: %w", err)
		}
		stats.RecentRevenue = revenue
		stats.RecentOrders = orders
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if stats.TopCourses == nil {
		stats.TopCourses = []*models.CourseSales{}
	}
	return stats, nil
}
