package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/trail/internal/audit"
	"github.com/gosuda/trail/internal/domain"
	"github.com/gosuda/trail/internal/server/middleware"
)

type LogEventInput struct {
	Body struct {
		EventType  string         `json:"event_type" minLength:"1" doc:"Dotted event type, e.g. sale.created"`
		EntityType *string        `json:"entity_type,omitempty" doc:"Kind of entity the event concerns"`
		EntityID   *int64         `json:"entity_id,omitempty" doc:"Entity ID"`
		Payload    map[string]any `json:"payload,omitempty" doc:"Free-form event data; member order is preserved"`
	}
	RawBody []byte
}

type LogEventOutput struct {
	Body struct {
		ID int64 `json:"id"`
	}
}

type ListEventsInput struct {
	EventType  string `query:"event_type" doc:"Filter by event type"`
	UserID     int64  `query:"user_id" doc:"Filter by acting user"`
	EntityType string `query:"entity_type" doc:"Filter by entity type"`
	EntityID   int64  `query:"entity_id" doc:"Filter by entity ID"`
	ID         int64  `query:"id" doc:"Filter by event ID"`
	DateFrom   string `query:"date_from" doc:"Inclusive start date (YYYY-MM-DD)"`
	DateTo     string `query:"date_to" doc:"Inclusive end date (YYYY-MM-DD)"`
	Limit      int    `query:"limit" minimum:"1" maximum:"500" default:"50" doc:"Max results"`
	Offset     int    `query:"offset" minimum:"0" default:"0" doc:"Results to skip"`
}

type ListEventsOutput struct {
	Body struct {
		Events []*domain.AuditEvent `json:"events"`
		Total  int64                `json:"total"`
		Limit  int                  `json:"limit"`
		Offset int                  `json:"offset"`
	}
}

type EventIDInput struct {
	ID int64 `path:"id" doc:"Audit event ID"`
}

type GetEventOutput struct {
	Body *domain.AuditEvent
}

type VerifyEventOutput struct {
	Body struct {
		ID     int64              `json:"id"`
		Valid  bool               `json:"valid"`
		Status audit.VerifyStatus `json:"status"`
	}
}

type EventStatsInput struct {
	DateFrom string `query:"date_from" doc:"Inclusive start date (YYYY-MM-DD)"`
	DateTo   string `query:"date_to" doc:"Inclusive end date (YYYY-MM-DD)"`
}

type EventStatsOutput struct {
	Body []*domain.EventStat
}

func RegisterAuditRoutes(api huma.API, svc AuditService) {
	huma.Register(api, huma.Operation{
		OperationID:   "log-audit-event",
		Method:        http.MethodPost,
		Path:          "/audit/events",
		Summary:       "Append a signed audit event",
		Tags:          []string{"Audit"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *LogEventInput) (*LogEventOutput, error) {
		companyID, ok := middleware.TenantScope(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing tenant context")
		}

		body, err := objectField(input.RawBody, "payload")
		if err != nil {
			return nil, huma.Error400BadRequest("invalid payload", err)
		}

		in := audit.EventInput{
			CompanyID:  companyID,
			EventType:  input.Body.EventType,
			EntityType: input.Body.EntityType,
			EntityID:   input.Body.EntityID,
			Payload:    body,
			Client:     middleware.ClientInfoFromContext(ctx),
		}
		if userID, ok := middleware.UserIDFromContext(ctx); ok {
			in.UserID = &userID
		}

		id, err := svc.LogEvent(ctx, in)
		if err != nil {
			return nil, toHTTPError("failed to log event", err)
		}

		out := &LogEventOutput{}
		out.Body.ID = id
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-audit-events",
		Method:      http.MethodGet,
		Path:        "/audit/events",
		Summary:     "List audit events, newest first",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *ListEventsInput) (*ListEventsOutput, error) {
		companyID, ok := middleware.TenantScope(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing tenant context")
		}

		from, err := parseDate("date_from", input.DateFrom)
		if err != nil {
			return nil, err
		}
		to, err := parseDate("date_to", input.DateTo)
		if err != nil {
			return nil, err
		}

		filter := domain.AuditFilter{
			EventType:  input.EventType,
			UserID:     optionalID(input.UserID),
			EntityType: input.EntityType,
			EntityID:   optionalID(input.EntityID),
			ID:         optionalID(input.ID),
			DateFrom:   from,
			DateTo:     to,
		}

		events, err := svc.GetLogs(ctx, companyID, filter, input.Limit, input.Offset)
		if err != nil {
			return nil, toHTTPError("failed to list audit events", err)
		}

		total, err := svc.GetLogsCount(ctx, companyID, filter)
		if err != nil {
			return nil, toHTTPError("failed to count audit events", err)
		}

		out := &ListEventsOutput{}
		out.Body.Events = events
		if out.Body.Events == nil {
			out.Body.Events = []*domain.AuditEvent{}
		}
		out.Body.Total = total
		out.Body.Limit = input.Limit
		out.Body.Offset = input.Offset
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-audit-event",
		Method:      http.MethodGet,
		Path:        "/audit/events/{id}",
		Summary:     "Get an audit event by ID",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *EventIDInput) (*GetEventOutput, error) {
		companyID, ok := middleware.TenantScope(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing tenant context")
		}

		ev, err := svc.GetEvent(ctx, input.ID, companyID)
		if err != nil {
			return nil, toHTTPError("audit event", err)
		}

		return &GetEventOutput{Body: ev}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "verify-audit-event",
		Method:      http.MethodGet,
		Path:        "/audit/events/{id}/verify",
		Summary:     "Check the signature of an audit event",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *EventIDInput) (*VerifyEventOutput, error) {
		companyID, ok := middleware.TenantScope(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing tenant context")
		}

		// Tenant check before verification.
		if _, err := svc.GetEvent(ctx, input.ID, companyID); err != nil {
			return nil, toHTTPError("audit event", err)
		}

		verifyErr := svc.Verify(ctx, input.ID)
		status, known := audit.StatusOf(verifyErr)
		if !known {
			return nil, toHTTPError("failed to verify audit event", verifyErr)
		}

		out := &VerifyEventOutput{}
		out.Body.ID = input.ID
		out.Body.Valid = status == audit.StatusValid
		out.Body.Status = status
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "audit-event-stats",
		Method:      http.MethodGet,
		Path:        "/audit/stats",
		Summary:     "Aggregate audit activity per event type",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *EventStatsInput) (*EventStatsOutput, error) {
		companyID, ok := middleware.TenantScope(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing tenant context")
		}

		from, err := parseDate("date_from", input.DateFrom)
		if err != nil {
			return nil, err
		}
		to, err := parseDate("date_to", input.DateTo)
		if err != nil {
			return nil, err
		}

		stats, err := svc.GetEventStats(ctx, companyID, from, to)
		if err != nil {
			return nil, toHTTPError("failed to compute audit stats", err)
		}
		if stats == nil {
			stats = []*domain.EventStat{}
		}

		return &EventStatsOutput{Body: stats}, nil
	})
}
