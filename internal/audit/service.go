package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/parkconnect-api/internal/common"
	"github.com/noah-isme/parkconnect-api/internal/obs"
)

// Entry is one recorded staff action.
type Entry struct {
	ID         uuid.UUID       `json:"id"`
	Actor      string          `json:"actor"`
	Role       string          `json:"role"`
	Action     string          `json:"action"`
	Resource   string          `json:"resource"`
	ResourceID string          `json:"resourceId,omitempty"`
	Method     string          `json:"method"`
	Path       string          `json:"path"`
	Status     int             `json:"status"`
	IP         string          `json:"ip,omitempty"`
	RequestID  string          `json:"requestId,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Store persists audit entries. ListAudit returns newest first.
type Store interface {
	InsertAudit(ctx context.Context, e Entry) error
	ListAudit(ctx context.Context, limit, offset int) ([]Entry, error)
}

// Service records staff actions on bookings, pricing and reports.
type Service struct {
	Store   Store
	Enabled bool
	Now     func() time.Time
}

// Record persists an entry for req when auditing is enabled. Anonymous
// requests are recorded with actor "anonymous".
func (s Service) Record(ctx context.Context, action, resource, resourceID string, req *http.Request, status int, metadata []byte) error {
	if !s.Enabled {
		return nil
	}
	if req == nil {
		return errors.New("audit: request is required")
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	route := obs.RoutePatternFromContext(req.Context())
	if route == "" {
		route = strings.TrimSpace(req.URL.Path)
	}
	e := Entry{
		ID:         uuid.New(),
		Actor:      "anonymous",
		Action:     buildAction(action, req.Method, route),
		Resource:   buildResource(resource, route),
		ResourceID: strings.TrimSpace(resourceID),
		Method:     req.Method,
		Path:       req.URL.Path,
		Status:     status,
		IP:         common.ClientIP(req),
		RequestID:  strings.TrimSpace(req.Header.Get("X-Request-ID")),
		Metadata:   toJSON(metadata, req.URL.RawQuery),
		CreatedAt:  now().UTC(),
	}
	if staff, ok := common.StaffFrom(req.Context()); ok {
		e.Actor = staff.Username
		e.Role = staff.Role
	}
	if e.Status == 0 {
		e.Status = http.StatusOK
	}
	return s.Store.InsertAudit(ctx, e)
}

func buildAction(action, method, route string) string {
	trimmed := strings.TrimSpace(action)
	if trimmed != "" {
		return trimmed
	}
	target := route
	if target == "" {
		target = "/"
	}
	return strings.ToUpper(strings.TrimSpace(method)) + " " + target
}

func buildResource(resource, route string) string {
	trimmed := strings.TrimSpace(resource)
	if trimmed != "" {
		return trimmed
	}
	route = strings.TrimSpace(route)
	if route == "" {
		return "unknown"
	}
	segments := strings.Split(strings.Trim(route, "/"), "/")
	if len(segments) >= 3 && segments[0] == "api" && segments[1] == "v1" {
		return strings.Join(segments[2:], ".")
	}
	return strings.ReplaceAll(strings.Trim(route, "/"), "/", ".")
}

func toJSON(metadata []byte, query string) json.RawMessage {
	if len(metadata) > 0 {
		return metadata
	}
	if strings.TrimSpace(query) == "" {
		return nil
	}
	data, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil
	}
	return data
}
