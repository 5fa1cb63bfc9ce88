package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/trail/internal/auth"
	"github.com/gosuda/trail/internal/domain"
	"github.com/gosuda/trail/internal/server/middleware"
	"github.com/gosuda/trail/internal/versioning"
)

type CreateVersionInput struct {
	Body struct {
		TableName string         `json:"table_name" minLength:"1" doc:"Tracked table name"`
		RecordID  int64          `json:"record_id" minimum:"1" doc:"Primary key of the row"`
		Action    string         `json:"action" enum:"create,update,delete" doc:"Mutation being recorded"`
		OldData   map[string]any `json:"old_data,omitempty" doc:"Row state before the mutation"`
		NewData   map[string]any `json:"new_data,omitempty" doc:"Row state after the mutation"`
	}
	RawBody []byte
}

type CreateVersionOutput struct {
	Body struct {
		ID int64 `json:"id"`
	}
}

type VersionHistoryInput struct {
	Table    string `path:"table" doc:"Tracked table name"`
	RecordID int64  `path:"recordID" doc:"Primary key of the row"`
}

type VersionHistoryOutput struct {
	Body []*domain.VersionRecord
}

type VersionIDInput struct {
	ID int64 `path:"id" doc:"Version ID"`
}

type VersionOutput struct {
	Body *domain.VersionRecord
}

func RegisterVersionRoutes(api huma.API, svc VersionService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-version",
		Method:        http.MethodPost,
		Path:          "/versions",
		Summary:       "Record a row version",
		Tags:          []string{"Versions"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateVersionInput) (*CreateVersionOutput, error) {
		companyID, ok := middleware.CompanyIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("versions require a company")
		}

		oldData, err := objectField(input.RawBody, "old_data")
		if err != nil {
			return nil, huma.Error400BadRequest("invalid snapshot", err)
		}
		newData, err := objectField(input.RawBody, "new_data")
		if err != nil {
			return nil, huma.Error400BadRequest("invalid snapshot", err)
		}

		in := versioning.VersionInput{
			CompanyID: companyID,
			TableName: input.Body.TableName,
			RecordID:  input.Body.RecordID,
			Action:    domain.VersionAction(input.Body.Action),
			OldData:   oldData,
			NewData:   newData,
			Client:    middleware.ClientInfoFromContext(ctx),
		}
		if userID, ok := middleware.UserIDFromContext(ctx); ok {
			in.UserID = &userID
		}

		id, err := svc.CreateVersion(ctx, in)
		if err != nil {
			return nil, toHTTPError("failed to record version", err)
		}

		out := &CreateVersionOutput{}
		out.Body.ID = id
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-version-history",
		Method:      http.MethodGet,
		Path:        "/records/{table}/{recordID}/versions",
		Summary:     "List versions of a row, newest first",
		Tags:        []string{"Versions"},
	}, func(ctx context.Context, input *VersionHistoryInput) (*VersionHistoryOutput, error) {
		companyID, ok := middleware.TenantScope(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing tenant context")
		}

		history, err := svc.GetVersionHistory(ctx, input.Table, input.RecordID, companyID)
		if err != nil {
			return nil, toHTTPError("failed to load version history", err)
		}
		if history == nil {
			history = []*domain.VersionRecord{}
		}

		return &VersionHistoryOutput{Body: history}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/versions/{id}",
		Summary:     "Get a version by ID",
		Tags:        []string{"Versions"},
	}, func(ctx context.Context, input *VersionIDInput) (*VersionOutput, error) {
		companyID, ok := middleware.CompanyIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("versions require a company")
		}

		v, err := svc.GetVersion(ctx, input.ID, companyID)
		if err != nil {
			return nil, toHTTPError("version", err)
		}

		return &VersionOutput{Body: v}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "rollback-version",
		Method:      http.MethodPost,
		Path:        "/versions/{id}/rollback",
		Summary:     "Restore a row to the state before a version",
		Tags:        []string{"Versions"},
		Middlewares: huma.Middlewares{middleware.RequireRole(api, auth.RoleAdmin, auth.RoleOperator)},
	}, func(ctx context.Context, input *VersionIDInput) (*VersionOutput, error) {
		companyID, ok := middleware.CompanyIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("versions require a company")
		}

		var userID *int64
		if uid, ok := middleware.UserIDFromContext(ctx); ok {
			userID = &uid
		}

		v, err := svc.RollbackToVersion(ctx, input.ID, companyID, userID, middleware.ClientInfoFromContext(ctx))
		if err != nil {
			return nil, toHTTPError("rollback failed", err)
		}

		return &VersionOutput{Body: v}, nil
	})
}
