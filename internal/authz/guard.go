// Package authz decides whether a user may perform an action on a resource.
//
// Role permissions come from a casbin RBAC model with an embedded policy
// (model.conf, policy.csv). Roles inherit upwards:
// anonymous < student < tutor < admin. Ownership of courses is checked on
// top of the role policy for actions that modify an existing course.
package authz

import (
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/terra-clan/studyhub/internal/models"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Anonymous is the subject used for requests without a user
const Anonymous = "anonymous"

// Deny reasons
const (
	ReasonAuthRequired = "authentication required"
	ReasonNotAuthor    = "not the course author"
)

// Action is an (object, verb) pair checked against the policy
type Action struct {
	Object string
	Verb   string
}

func (a Action) String() string {
	return a.Object + ":" + a.Verb
}

var (
	CatalogRead         = Action{"catalog", "read"}
	RecommendationsRead = Action{"recommendations", "read"}
	FAQRead             = Action{"faq", "read"}
	TutorsRead          = Action{"tutors", "read"}
	SupportCreate       = Action{"support", "create"}
	AccountCreate       = Action{"account", "create"}

	AccountRead      = Action{"account", "read"}
	AccountUpdate    = Action{"account", "update"}
	MyCoursesRead    = Action{"courses_mine", "read"}
	EnrollmentCreate = Action{"enrollment", "create"}
	ReviewCreate     = Action{"review", "create"}
	CartRead         = Action{"cart", "read"}
	CartWrite        = Action{"cart", "write"}
	OrderCreate      = Action{"order", "create"}
	OrderRead        = Action{"order", "read"}
	ProgressWrite    = Action{"progress", "write"}

	CourseCreate = Action{"course", "create"}
	CourseUpdate = Action{"course", "update"}
	CourseDelete = Action{"course", "delete"}

	SupportRead   = Action{"support", "read"}
	SupportUpdate = Action{"support", "update"}
	StatsRead     = Action{"stats", "read"}
)

// Owned is implemented by resources that belong to a user
type Owned interface {
	OwnerID() int64
}

// Decision is the outcome of an authorization check
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Allow returns a positive decision
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a negative decision carrying reason
func Deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Guard evaluates role policy and resource ownership
type Guard struct {
	enforcer *casbin.SyncedEnforcer
	logger   *slog.Logger
}

// NewGuard creates a guard from the embedded model and policy
func NewGuard() (*Guard, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	if err := loadPolicy(enforcer, embeddedPolicy); err != nil {
		return nil, err
	}

	return newGuard(enforcer), nil
}

// NewGuardFromFile creates a guard from the embedded model and a policy CSV on disk
func NewGuardFromFile(policyPath string) (*Guard, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(policyPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load policy %s: %w", policyPath, err)
	}

	return newGuard(enforcer), nil
}

func newGuard(enforcer *casbin.SyncedEnforcer) *Guard {
	return &Guard{
		enforcer: enforcer,
		logger:   slog.With("component", "authz"),
	}
}

// loadPolicy parses policy lines of the form "p, sub, obj, act" and "g, role, parent"
func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Subject returns the policy subject of a user
func Subject(user *models.User) string {
	if user == nil || !user.Role.Valid() {
		return Anonymous
	}
	return string(user.Role)
}

// Authorize checks whether user may perform action on resource.
// resource may be nil for actions that do not target an owned object.
func (g *Guard) Authorize(user *models.User, action Action, resource Owned) Decision {
	subject := Subject(user)

	allowed, err := g.enforcer.Enforce(subject, action.Object, action.Verb)
	if err != nil {
		g.logger.Error("policy enforcement failed", "error", err, "subject", subject, "action", action.String())
		return Deny("authorization error")
	}

	if !allowed {
		if user == nil {
			return Deny(ReasonAuthRequired)
		}
		g.logger.Debug("permission denied", "user_id", user.ID, "role", subject, "action", action.String())
		return Deny(fmt.Sprintf("role %s may not %s %s", subject, action.Verb, action.Object))
	}

	if resource != nil {
		if user == nil {
			return Deny(ReasonAuthRequired)
		}
		if !user.IsAdmin() && resource.OwnerID() != user.ID {
			return Deny(ReasonNotAuthor)
		}
	}

	return Allow()
}

// Can is a shorthand for Authorize(...).Allowed
func (g *Guard) Can(user *models.User, action Action, resource Owned) bool {
	return g.Authorize(user, action, resource).Allowed
}
