package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/terra-clan/studyhub/internal/marketplace"
	"github.com/terra-clan/studyhub/internal/models"
)

// Client is a Go SDK for the studyhub API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new studyhub client. token may be empty for
// anonymous access; Login sets it.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Token returns the bearer token in use
func (c *Client) Token() string {
	return c.token
}

// APIError is a non-2xx response from the API
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s - %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// CourseListOptions filters the catalog listing
type CourseListOptions struct {
	Category int64
	Level    models.Level
	FreeOnly bool
	Search   string
	Page     int
}

func (o CourseListOptions) query() url.Values {
	q := url.Values{}
	if o.Category > 0 {
		q.Set("category", strconv.FormatInt(o.Category, 10))
	}
	if o.Level != "" {
		q.Set("level", string(o.Level))
	}
	if o.FreeOnly {
		q.Set("free", "1")
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	return q
}

// CartResponse is the cart view returned by cart endpoints
type CartResponse struct {
	marketplace.CartView
	AlreadyInCart bool `json:"already_in_cart,omitempty"`
}

// Register creates a student account
func (c *Client) Register(ctx context.Context, in marketplace.RegisterInput) (*models.User, error) {
	var user models.User
	if err := c.call(ctx, http.MethodPost, "/api/v1/auth/register", in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates and keeps the returned token for later calls
func (c *Client) Login(ctx context.Context, username, password string) (*marketplace.LoginResult, error) {
	req := map[string]string{"username": username, "password": password}
	var res marketplace.LoginResult
	if err := c.call(ctx, http.MethodPost, "/api/v1/auth/login", req, &res); err != nil {
		return nil, err
	}
	c.token = res.Token
	return &res, nil
}

// Logout ends the current session
func (c *Client) Logout(ctx context.Context) error {
	if err := c.call(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

// Profile returns the caller's profile
func (c *Client) Profile(ctx context.Context) (*marketplace.Profile, error) {
	var p marketplace.Profile
	if err := c.call(ctx, http.MethodGet, "/api/v1/me", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListCourses retrieves one page of the published catalog
func (c *Client) ListCourses(ctx context.Context, opts CourseListOptions) (*marketplace.Page, error) {
	path := "/api/v1/courses"
	if q := opts.query(); len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page marketplace.Page
	if err := c.call(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetCourse retrieves a course detail page
func (c *Client) GetCourse(ctx context.Context, id int64) (*marketplace.CourseDetail, error) {
	var detail marketplace.CourseDetail
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/v1/courses/%d", id), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Recommend submits questionnaire answers keyed by form field name
func (c *Client) Recommend(ctx context.Context, answers map[string]interface{}) (*marketplace.Recommendations, error) {
	var res marketplace.Recommendations
	if err := c.call(ctx, http.MethodPost, "/api/v1/recommendations", answers, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Enroll enrolls the caller in a free course
func (c *Client) Enroll(ctx context.Context, courseID int64) (*marketplace.EnrollResult, error) {
	var res marketplace.EnrollResult
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/api/v1/courses/%d/enroll", courseID), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CompleteLesson marks a lesson as completed
func (c *Client) CompleteLesson(ctx context.Context, lessonID int64) (*marketplace.LessonProgress, error) {
	var res marketplace.LessonProgress
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/api/v1/lessons/%d/complete", lessonID), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Cart returns the caller's cart
func (c *Client) Cart(ctx context.Context) (*CartResponse, error) {
	return c.cart(ctx, http.MethodGet, "/api/v1/cart")
}

// AddToCart adds a paid course to the cart
func (c *Client) AddToCart(ctx context.Context, courseID int64) (*CartResponse, error) {
	return c.cart(ctx, http.MethodPost, fmt.Sprintf("/api/v1/cart/items/%d", courseID))
}

// RemoveFromCart removes a course from the cart
func (c *Client) RemoveFromCart(ctx context.Context, courseID int64) (*CartResponse, error) {
	return c.cart(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/cart/items/%d", courseID))
}

func (c *Client) cart(ctx context.Context, method, path string) (*CartResponse, error) {
	var res CartResponse
	if err := c.call(ctx, method, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Checkout pays for the cart and returns the order
func (c *Client) Checkout(ctx context.Context) (*models.Order, error) {
	var order models.Order
	if err := c.call(ctx, http.MethodPost, "/api/v1/cart/checkout", nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders retrieves the caller's orders
func (c *Client) ListOrders(ctx context.Context) ([]*models.Order, error) {
	var res struct {
		Orders []*models.Order `json:"orders"`
		Total  int             `json:"total"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/orders", nil, &res); err != nil {
		return nil, err
	}
	return res.Orders, nil
}

// CreateSupportRequest files a support request
func (c *Client) CreateSupportRequest(ctx context.Context, in marketplace.SupportInput) (*models.SupportRequest, error) {
	var req models.SupportRequest
	if err := c.call(ctx, http.MethodPost, "/api/v1/support", in, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/health", nil, nil)
}

// call sends in as JSON and decodes the data field of the envelope into out
func (c *Client) call(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	status, resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		if status >= 400 {
			return &APIError{StatusCode: status, Code: "http_error", Message: string(resp)}
		}
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		apiErr := &APIError{StatusCode: status}
		if result.Error != nil {
			apiErr.Code = result.Error.Code
			apiErr.Message = result.Error.Message
		}
		return apiErr
	}

	if out == nil || len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
