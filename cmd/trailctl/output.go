package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gosuda/trail/internal/domain"
	"github.com/gosuda/trail/internal/payload"
)

const (
	formatYAML = "yaml"
	formatJSON = "json"
)

// render writes v to w in the requested format.
func render(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want yaml or json)", format)
	}
}

type eventView struct {
	ID         int64           `json:"id" yaml:"id"`
	CompanyID  *int64          `json:"company_id" yaml:"company_id"`
	UserID     *int64          `json:"user_id" yaml:"user_id"`
	EventType  string          `json:"event_type" yaml:"event_type"`
	EntityType *string         `json:"entity_type" yaml:"entity_type"`
	EntityID   *int64          `json:"entity_id" yaml:"entity_id"`
	IPAddress  *string         `json:"ip_address" yaml:"ip_address"`
	CreatedAt  string          `json:"created_at" yaml:"created_at"`
	Signed     bool            `json:"signed" yaml:"signed"`
	Payload    *payload.Object `json:"payload" yaml:"payload"`
}

func newEventView(ev *domain.AuditEvent) eventView {
	return eventView{
		ID:         ev.ID,
		CompanyID:  ev.CompanyID,
		UserID:     ev.UserID,
		EventType:  ev.EventType,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
		IPAddress:  ev.IPAddress,
		CreatedAt:  ev.CreatedAt.UTC().Format(time.RFC3339),
		Signed:     ev.Signature != "",
		Payload:    ev.Payload,
	}
}

type versionView struct {
	ID        int64                `json:"id" yaml:"id"`
	CompanyID int64                `json:"company_id" yaml:"company_id"`
	TableName string               `json:"table_name" yaml:"table_name"`
	RecordID  int64                `json:"record_id" yaml:"record_id"`
	Action    domain.VersionAction `json:"action" yaml:"action"`
	UserID    *int64               `json:"user_id" yaml:"user_id"`
	IPAddress *string              `json:"ip_address" yaml:"ip_address"`
	CreatedAt string               `json:"created_at" yaml:"created_at"`
	OldData   *payload.Object      `json:"old_data" yaml:"old_data"`
	NewData   *payload.Object      `json:"new_data" yaml:"new_data"`
}

func newVersionView(v *domain.VersionRecord) versionView {
	return versionView{
		ID:        v.ID,
		CompanyID: v.CompanyID,
		TableName: v.TableName,
		RecordID:  v.RecordID,
		Action:    v.Action,
		UserID:    v.UserID,
		IPAddress: v.IPAddress,
		CreatedAt: v.CreatedAt.UTC().Format(time.RFC3339),
		OldData:   v.OldData,
		NewData:   v.NewData,
	}
}

// parseDateFlag parses a YYYY-MM-DD flag value; empty means unset.
func parseDateFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, fmt.Errorf("--%s: want YYYY-MM-DD, got %q", name, value)
	}
	return &t, nil
}
