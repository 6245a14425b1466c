package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/terra-clan/studyhub/internal/models"
)

// MemoryRepository implements Repository in process memory.
// Used for development and tests; all returned values are copies.
type MemoryRepository struct {
	mu sync.RWMutex

	nextID int64

	users       map[int64]*models.User
	sessions    map[string]*models.Session
	categories  map[int64]*models.Category
	courses     map[int64]*models.Course
	modules     map[int64]*models.Module
	lessons     map[int64]*models.Lesson
	enrollments map[int64]*models.Enrollment
	reviews     map[int64]*models.Review
	progress    map[progressKey]*models.Progress
	orders      map[int64]*models.Order
	support     map[int64]*models.SupportRequest
}

type progressKey struct {
	userID   int64
	lessonID int64
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:       make(map[int64]*models.User),
		sessions:    make(map[string]*models.Session),
		categories:  make(map[int64]*models.Category),
		courses:     make(map[int64]*models.Course),
		modules:     make(map[int64]*models.Module),
		lessons:     make(map[int64]*models.Lesson),
		enrollments: make(map[int64]*models.Enrollment),
		reviews:     make(map[int64]*models.Review),
		progress:    make(map[progressKey]*models.Progress),
		orders:      make(map[int64]*models.Order),
		support:     make(map[int64]*models.SupportRequest),
	}
}

func (r *MemoryRepository) id() int64 {
	r.nextID++
	return r.nextID
}

func now() time.Time {
	return time.Now().UTC()
}

// Ping always succeeds
func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (r *MemoryRepository) Close() error {
	return nil
}

// --- Users ---

func (r *MemoryRepository) CreateUser(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == u.Username || normalizeEmail(existing.Email) == normalizeEmail(u.Email) {
			return ErrDuplicate
		}
	}

	u.ID = r.id()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now()
	}
	r.users[u.ID] = copyUser(u)
	return nil
}

func (r *MemoryRepository) GetUser(ctx context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (r *MemoryRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findUser(func(u *models.User) bool { return u.Username == username })
}

func (r *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = normalizeEmail(email)
	return r.findUser(func(u *models.User) bool { return normalizeEmail(u.Email) == email })
}

func (r *MemoryRepository) findUser(match func(*models.User) bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) UpdateUser(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	for _, other := range r.users {
		if other.ID != u.ID && normalizeEmail(other.Email) == normalizeEmail(u.Email) {
			return ErrDuplicate
		}
	}

	updated := copyUser(u)
	updated.Username = existing.Username
	updated.CreatedAt = existing.CreatedAt
	r.users[u.ID] = updated
	return nil
}

func (r *MemoryRepository) ListUsersByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.User
	for _, u := range r.users {
		if u.Role == role {
			out = append(out, copyUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func copyUser(u *models.User) *models.User {
	c := *u
	if u.BirthDate != nil {
		bd := *u.BirthDate
		c.BirthDate = &bd
	}
	return &c
}

// --- Sessions ---

func (r *MemoryRepository) CreateSession(ctx context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID]; ok {
		return ErrDuplicate
	}
	c := *s
	r.sessions[s.ID] = &c
	return nil
}

func (r *MemoryRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *s
	return &c, nil
}

func (r *MemoryRepository) DeleteSession(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

func (r *MemoryRepository) DeleteExpiredSessions(ctx context.Context, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, s := range r.sessions {
		if s.IsExpired(at) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// --- Categories ---

func (r *MemoryRepository) CreateCategory(ctx context.Context, c *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.categories {
		if existing.Name == c.Name {
			return ErrDuplicate
		}
	}
	c.ID = r.id()
	cp := *c
	r.categories[c.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.categories {
		if c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Category, 0, len(r.categories))
	for _, c := range r.categories {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepository) DeleteCategory(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.categories[id]; !ok {
		return ErrNotFound
	}
	delete(r.categories, id)
	for _, c := range r.courses {
		if c.CategoryID == id {
			c.CategoryID = 0
		}
	}
	return nil
}

// --- Courses ---

func (r *MemoryRepository) CreateCourse(ctx context.Context, c *models.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.ID = r.id()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now()
	}
	c.UpdatedAt = c.CreatedAt
	cp := *c
	r.courses[c.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.courses[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.courseView(c), nil
}

func (r *MemoryRepository) UpdateCourse(ctx context.Context, c *models.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.courses[c.ID]
	if !ok {
		return ErrNotFound
	}
	c.UpdatedAt = now()
	cp := *c
	cp.AuthorID = existing.AuthorID
	cp.CreatedAt = existing.CreatedAt
	r.courses[c.ID] = &cp
	return nil
}

// DeleteCourse removes a course and everything hanging off it.
// Order items keep their title and price but lose the course reference.
func (r *MemoryRepository) DeleteCourse(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.courses[id]; !ok {
		return ErrNotFound
	}
	delete(r.courses, id)

	for mid, m := range r.modules {
		if m.CourseID == id {
			r.deleteModuleLocked(mid)
		}
	}
	for eid, e := range r.enrollments {
		if e.CourseID == id {
			delete(r.enrollments, eid)
		}
	}
	for rid, rv := range r.reviews {
		if rv.CourseID == id {
			delete(r.reviews, rid)
		}
	}
	for _, o := range r.orders {
		for _, item := range o.Items {
			if item.CourseID == id {
				item.CourseID = 0
			}
		}
	}
	return nil
}

func (r *MemoryRepository) ListCourses(ctx context.Context, q CourseQuery) ([]*models.Course, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(q.Search)
	var matched []*models.Course
	for _, c := range r.courses {
		if q.PublishedOnly && !c.IsPublished {
			continue
		}
		if q.CategoryID != 0 && c.CategoryID != q.CategoryID {
			continue
		}
		if q.Level != "" && c.Level != q.Level {
			continue
		}
		if q.FreeOnly && !c.IsFree() {
			continue
		}
		if q.PopularOnly && !c.IsPopular {
			continue
		}
		if q.AuthorID != 0 && c.AuthorID != q.AuthorID {
			continue
		}
		if q.ExcludeID != 0 && c.ID == q.ExcludeID {
			continue
		}
		view := r.courseView(c)
		if search != "" &&
			!strings.Contains(strings.ToLower(view.Title), search) &&
			!strings.Contains(strings.ToLower(view.Description), search) &&
			!strings.Contains(strings.ToLower(view.AuthorName), search) {
			continue
		}
		matched = append(matched, view)
	}

	sortNewestFirst(matched)
	total := len(matched)

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[q.Offset:]
		}
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, total, nil
}

func (r *MemoryRepository) PublishedCourses(ctx context.Context) ([]*models.Course, error) {
	courses, _, err := r.ListCourses(ctx, CourseQuery{PublishedOnly: true})
	return courses, err
}

// courseView copies c and fills the joined category and author names
func (r *MemoryRepository) courseView(c *models.Course) *models.Course {
	cp := *c
	cp.CategoryName = ""
	if cat, ok := r.categories[c.CategoryID]; ok {
		cp.CategoryName = cat.Name
	}
	if u, ok := r.users[c.AuthorID]; ok {
		cp.AuthorName = u.Username
	}
	return &cp
}

func sortNewestFirst(courses []*models.Course) {
	sort.Slice(courses, func(i, j int) bool {
		if !courses[i].CreatedAt.Equal(courses[j].CreatedAt) {
			return courses[i].CreatedAt.After(courses[j].CreatedAt)
		}
		return courses[i].ID > courses[j].ID
	})
}

// --- Modules and lessons ---

func (r *MemoryRepository) CreateModule(ctx context.Context, m *models.Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.courses[m.CourseID]; !ok {
		return ErrNotFound
	}
	m.ID = r.id()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	cp := *m
	cp.Lessons = nil
	r.modules[m.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetModule(ctx context.Context, id int64) (*models.Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.moduleView(m), nil
}

func (r *MemoryRepository) UpdateModule(ctx context.Context, m *models.Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.modules[m.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Title = m.Title
	existing.Description = m.Description
	existing.Order = m.Order
	return nil
}

func (r *MemoryRepository) DeleteModule(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.modules[id]; !ok {
		return ErrNotFound
	}
	r.deleteModuleLocked(id)
	return nil
}

func (r *MemoryRepository) deleteModuleLocked(id int64) {
	delete(r.modules, id)
	for lid, l := range r.lessons {
		if l.ModuleID == id {
			r.deleteLessonLocked(lid)
		}
	}
}

func (r *MemoryRepository) ListModules(ctx context.Context, courseID int64) ([]*models.Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Module
	for _, m := range r.modules {
		if m.CourseID == courseID {
			out = append(out, r.moduleView(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) moduleView(m *models.Module) *models.Module {
	cp := *m
	cp.Lessons = nil
	for _, l := range r.lessons {
		if l.ModuleID == m.ID {
			lc := *l
			cp.Lessons = append(cp.Lessons, &lc)
		}
	}
	sort.Slice(cp.Lessons, func(i, j int) bool {
		if cp.Lessons[i].Order != cp.Lessons[j].Order {
			return cp.Lessons[i].Order < cp.Lessons[j].Order
		}
		return cp.Lessons[i].ID < cp.Lessons[j].ID
	})
	return &cp
}

func (r *MemoryRepository) CreateLesson(ctx context.Context, l *models.Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.modules[l.ModuleID]; !ok {
		return ErrNotFound
	}
	l.ID = r.id()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now()
	}
	cp := *l
	r.lessons[l.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetLesson(ctx context.Context, id int64) (*models.Lesson, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.lessons[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *MemoryRepository) UpdateLesson(ctx context.Context, l *models.Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.lessons[l.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Title = l.Title
	existing.Content = l.Content
	existing.VideoURL = l.VideoURL
	existing.DurationMinutes = l.DurationMinutes
	existing.Order = l.Order
	return nil
}

func (r *MemoryRepository) DeleteLesson(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lessons[id]; !ok {
		return ErrNotFound
	}
	r.deleteLessonLocked(id)
	return nil
}

func (r *MemoryRepository) deleteLessonLocked(id int64) {
	delete(r.lessons, id)
	for k := range r.progress {
		if k.lessonID == id {
			delete(r.progress, k)
		}
	}
}

// --- Enrollments ---

func (r *MemoryRepository) CreateEnrollment(ctx context.Context, e *models.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.enrollLocked(e)
}

func (r *MemoryRepository) enrollLocked(e *models.Enrollment) error {
	for _, existing := range r.enrollments {
		if existing.UserID == e.UserID && existing.CourseID == e.CourseID {
			return ErrDuplicate
		}
	}
	e.ID = r.id()
	if e.EnrolledAt.IsZero() {
		e.EnrolledAt = now()
	}
	cp := *e
	r.enrollments[e.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetEnrollment(ctx context.Context, userID, courseID int64) (*models.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) ListEnrolledCourses(ctx context.Context, userID int64) ([]*models.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var enrollments []*models.Enrollment
	for _, e := range r.enrollments {
		if e.UserID == userID {
			enrollments = append(enrollments, e)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool {
		if !enrollments[i].EnrolledAt.Equal(enrollments[j].EnrolledAt) {
			return enrollments[i].EnrolledAt.After(enrollments[j].EnrolledAt)
		}
		return enrollments[i].ID > enrollments[j].ID
	})

	var out []*models.Course
	for _, e := range enrollments {
		if c, ok := r.courses[e.CourseID]; ok {
			out = append(out, r.courseView(c))
		}
	}
	return out, nil
}

func (r *MemoryRepository) CountStudents(ctx context.Context, authorID int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	students := make(map[int64]struct{})
	for _, e := range r.enrollments {
		if c, ok := r.courses[e.CourseID]; ok && c.AuthorID == authorID {
			students[e.UserID] = struct{}{}
		}
	}
	return len(students), nil
}

// --- Reviews ---

func (r *MemoryRepository) CreateReview(ctx context.Context, rv *models.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.reviews {
		if existing.UserID == rv.UserID && existing.CourseID == rv.CourseID {
			return ErrDuplicate
		}
	}
	rv.ID = r.id()
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = now()
	}
	cp := *rv
	r.reviews[rv.ID] = &cp
	return nil
}

func (r *MemoryRepository) ListReviews(ctx context.Context, courseID int64) ([]*models.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Review
	for _, rv := range r.reviews {
		if rv.CourseID != courseID {
			continue
		}
		cp := *rv
		if u, ok := r.users[rv.UserID]; ok {
			cp.Username = u.Username
		}
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// --- Progress ---

func (r *MemoryRepository) UpsertProgress(ctx context.Context, p *models.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *p
	if p.CompletedAt != nil {
		at := *p.CompletedAt
		cp.CompletedAt = &at
	}
	r.progress[progressKey{userID: p.UserID, lessonID: p.LessonID}] = &cp
	return nil
}

func (r *MemoryRepository) ListProgress(ctx context.Context, userID, courseID int64) ([]*models.Progress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Progress
	for k, p := range r.progress {
		if k.userID != userID {
			continue
		}
		l, ok := r.lessons[k.lessonID]
		if !ok {
			continue
		}
		m, ok := r.modules[l.ModuleID]
		if !ok || m.CourseID != courseID {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LessonID < out[j].LessonID })
	return out, nil
}

// --- Orders ---

// PlaceOrder stores the order and enrolls the buyer in every purchased course
func (r *MemoryRepository) PlaceOrder(ctx context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o.ID = r.id()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now()
	}

	stored := *o
	stored.Items = make([]*models.OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		item.ID = r.id()
		item.OrderID = o.ID
		ic := *item
		stored.Items = append(stored.Items, &ic)

		err := r.enrollLocked(&models.Enrollment{UserID: o.UserID, CourseID: item.CourseID, EnrolledAt: o.CreatedAt})
		if err != nil && err != ErrDuplicate {
			return err
		}
	}
	r.orders[o.ID] = &stored
	return nil
}

func (r *MemoryRepository) ListOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func copyOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = make([]*models.OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		ic := *item
		cp.Items = append(cp.Items, &ic)
	}
	return &cp
}

func (r *MemoryRepository) TopSellingCourses(ctx context.Context, limit int) ([]*models.CourseSales, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type key struct {
		courseID int64
		title    string
	}
	agg := make(map[key]*models.CourseSales)
	for _, o := range r.orders {
		if o.Status != models.OrderPaid {
			continue
		}
		for _, item := range o.Items {
			k := key{courseID: item.CourseID, title: item.CourseTitle}
			s, ok := agg[k]
			if !ok {
				s = &models.CourseSales{CourseID: item.CourseID, Title: item.CourseTitle}
				agg[k] = s
			}
			s.Sold++
			s.Revenue += item.Price
		}
	}

	out := make([]*models.CourseSales, 0, len(agg))
	for _, s := range agg {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sold != out[j].Sold {
			return out[i].Sold > out[j].Sold
		}
		return out[i].Title < out[j].Title
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) RevenueSince(ctx context.Context, since time.Time) (int64, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var revenue int64
	var orders int
	for _, o := range r.orders {
		if o.Status != models.OrderPaid || o.CreatedAt.Before(since) {
			continue
		}
		orders++
		for _, item := range o.Items {
			revenue += item.Price
		}
	}
	return revenue, orders, nil
}

func (r *MemoryRepository) Totals(ctx context.Context) (*models.PlatformTotals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t := &models.PlatformTotals{
		Users:       len(r.users),
		Courses:     len(r.courses),
		Enrollments: len(r.enrollments),
		Orders:      len(r.orders),
	}
	for _, c := range r.courses {
		if c.IsPublished {
			t.PublishedCourses++
		}
	}
	return t, nil
}

// --- Support requests ---

func (r *MemoryRepository) CreateSupportRequest(ctx context.Context, s *models.SupportRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.ID = r.id()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now()
	}
	r.support[s.ID] = copySupport(s)
	return nil
}

func (r *MemoryRepository) GetSupportRequest(ctx context.Context, id int64) (*models.SupportRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.support[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySupport(s), nil
}

func (r *MemoryRepository) UpdateSupportRequest(ctx context.Context, s *models.SupportRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.support[s.ID]
	if !ok {
		return ErrNotFound
	}
	updated := copySupport(existing)
	updated.Status = s.Status
	updated.CompletedAt = nil
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		updated.CompletedAt = &at
	}
	r.support[s.ID] = updated
	return nil
}

func (r *MemoryRepository) ListSupportRequests(ctx context.Context, status models.SupportStatus) ([]*models.SupportRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.SupportRequest
	for _, s := range r.support {
		if status == "" || s.Status == status {
			out = append(out, copySupport(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) CountSupportRequests(ctx context.Context) (*SupportCounts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var c SupportCounts
	for _, s := range r.support {
		switch s.Status {
		case models.SupportPending:
			c.Pending++
		case models.SupportCompleted:
			c.Completed++
		}
		c.Total++
	}
	return &c, nil
}

func copySupport(s *models.SupportRequest) *models.SupportRequest {
	cp := *s
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		cp.CompletedAt = &at
	}
	return &cp
}

var _ Repository = (*MemoryRepository)(nil)
var _ Repository = (*PostgresRepository)(nil)
