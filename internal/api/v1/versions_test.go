package v1_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/trail/internal/api/v1"
	"github.com/gosuda/trail/internal/domain"
	"github.com/gosuda/trail/internal/payload"
	"github.com/gosuda/trail/internal/versioning"
)

func TestCreateVersion(t *testing.T) {
	t.Parallel()

	t.Run("snapshots_keep_order", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockVersionService{
			createVersionFunc: func(_ context.Context, in versioning.VersionInput) (int64, error) {
				assert.Equal(t, int64(3), in.CompanyID)
				assert.Equal(t, "products", in.TableName)
				assert.Equal(t, int64(42), in.RecordID)
				assert.Equal(t, domain.VersionActionUpdate, in.Action)
				assert.Equal(t, `{"price":"10.00","name":"Tea"}`, string(in.OldData.Canonical()))
				assert.Equal(t, `{"price":"12.00","name":"Tea"}`, string(in.NewData.Canonical()))
				require.NotNil(t, in.UserID)
				assert.Equal(t, int64(7), *in.UserID)
				return 900, nil
			},
		}
		v1.RegisterVersionRoutes(api, svc)

		body := `{"table_name":"products","record_id":42,"action":"update",` +
			`"old_data":{"price":"10.00","name":"Tea"},"new_data":{"price":"12.00","name":"Tea"}}`
		resp := api.PostCtx(companyCtx(3), "/versions", "Content-Type: application/json", strings.NewReader(body))
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		assert.Contains(t, resp.Body.String(), `"id":900`)
	})

	t.Run("create_without_old_data", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockVersionService{
			createVersionFunc: func(_ context.Context, in versioning.VersionInput) (int64, error) {
				assert.Nil(t, in.OldData)
				assert.NotNil(t, in.NewData)
				return 1, nil
			},
		}
		v1.RegisterVersionRoutes(api, svc)

		resp := api.PostCtx(companyCtx(3), "/versions", map[string]any{
			"table_name": "products", "record_id": 1, "action": "create",
			"new_data": map[string]any{"name": "Tea"},
		})
		assert.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	})

	t.Run("unknown_action", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterVersionRoutes(api, &mockVersionService{})

		resp := api.PostCtx(companyCtx(3), "/versions", map[string]any{
			"table_name": "products", "record_id": 1, "action": "merge",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("operator_without_company", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterVersionRoutes(api, &mockVersionService{})

		resp := api.PostCtx(operatorCtx(), "/versions", map[string]any{
			"table_name": "products", "record_id": 1, "action": "create",
		})
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}

func TestVersionHistory(t *testing.T) {
	t.Parallel()

	_, api := humatest.New(t)
	svc := &mockVersionService{
		getVersionHistoryFunc: func(_ context.Context, table string, recordID int64, companyID *int64) ([]*domain.VersionRecord, error) {
			assert.Equal(t, "products", table)
			assert.Equal(t, int64(42), recordID)
			assert.Equal(t, int64(3), *companyID)
			return []*domain.VersionRecord{
				{ID: 2, CompanyID: 3, TableName: "products", RecordID: 42, Action: domain.VersionActionUpdate,
					OldData: payload.ObjectOf(payload.M("price", payload.String("10.00")))},
				{ID: 1, CompanyID: 3, TableName: "products", RecordID: 42, Action: domain.VersionActionCreate},
			}, nil
		},
	}
	v1.RegisterVersionRoutes(api, svc)

	resp := api.GetCtx(companyCtx(3), "/records/products/42/versions")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out []struct {
		ID      int64           `json:"id"`
		OldData json.RawMessage `json:"old_data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, int64(2), out[0].ID)
	assert.Equal(t, `{"price":"10.00"}`, string(out[0].OldData))
	assert.Equal(t, "null", string(out[1].OldData))
}

func TestGetVersion(t *testing.T) {
	t.Parallel()

	_, api := humatest.New(t)
	svc := &mockVersionService{
		getVersionFunc: func(_ context.Context, id, companyID int64) (*domain.VersionRecord, error) {
			if companyID != 3 {
				return nil, domain.ErrNotFound
			}
			return &domain.VersionRecord{ID: id, CompanyID: companyID, Action: domain.VersionActionDelete}, nil
		},
	}
	v1.RegisterVersionRoutes(api, svc)

	resp := api.GetCtx(companyCtx(3), "/versions/11")
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = api.GetCtx(companyCtx(4), "/versions/11")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRollbackVersion(t *testing.T) {
	t.Parallel()

	t.Run("admin_rolls_back", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockVersionService{
			rollbackFunc: func(_ context.Context, versionID, companyID int64, userID *int64, client domain.ClientInfo) (*domain.VersionRecord, error) {
				assert.Equal(t, int64(11), versionID)
				assert.Equal(t, int64(3), companyID)
				assert.Equal(t, int64(7), *userID)
				assert.Equal(t, "10.0.0.9:5555", client.RemoteAddr)
				return &domain.VersionRecord{ID: 12, CompanyID: 3, Action: domain.VersionActionUpdate}, nil
			},
		}
		v1.RegisterVersionRoutes(api, svc)

		resp := api.PostCtx(adminCtx(3), "/versions/11/rollback")
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Contains(t, resp.Body.String(), `"id":12`)
	})

	t.Run("member_forbidden", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterVersionRoutes(api, &mockVersionService{})

		resp := api.PostCtx(companyCtx(3), "/versions/11/rollback")
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterVersionRoutes(api, &mockVersionService{})

		resp := api.PostCtx(context.Background(), "/versions/11/rollback")
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "unknown_version", err: fmt.Errorf("versioning.RollbackToVersion: %w", domain.ErrNotFound), wantCode: http.StatusNotFound},
		{name: "create_action", err: domain.ErrUnsupportedRollback, wantCode: http.StatusUnprocessableEntity},
		{name: "malformed", err: domain.ErrMalformedSnapshot, wantCode: http.StatusUnprocessableEntity},
		{name: "storage", err: domain.ErrStorageUnavailable, wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			svc := &mockVersionService{
				rollbackFunc: func(context.Context, int64, int64, *int64, domain.ClientInfo) (*domain.VersionRecord, error) {
					return nil, tt.err
				},
			}
			v1.RegisterVersionRoutes(api, svc)

			resp := api.PostCtx(adminCtx(3), "/versions/11/rollback")
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}
