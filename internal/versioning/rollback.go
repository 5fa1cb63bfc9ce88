package versioning

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/trail/internal/domain"
	"github.com/gosuda/trail/internal/payload"
)

// RollbackToVersion restores the OldData snapshot of a version and appends
// a new update version describing the restored state. Both happen in one
// transaction.
//
// Deletes are restored by inserting the snapshot columns, updates by writing
// the snapshot columns back onto (RecordID, CompanyID). Rolling back a create
// fails with domain.ErrUnsupportedRollback. The appended version has no
// OldData, so a rollback cannot itself be rolled back.
func (s *Service) RollbackToVersion(ctx context.Context, versionID, companyID int64, userID *int64, client domain.ClientInfo) (*domain.VersionRecord, error) {
	target, err := s.repo.GetByID(ctx, versionID, companyID)
	if err != nil {
		return nil, fmt.Errorf("versioning.RollbackToVersion: %w", err)
	}

	if err := s.checkRestorable(target); err != nil {
		return nil, fmt.Errorf("versioning.RollbackToVersion: version %d: %w", versionID, err)
	}

	restored := &domain.VersionRecord{
		CompanyID: target.CompanyID,
		TableName: target.TableName,
		RecordID:  target.RecordID,
		Action:    domain.VersionActionUpdate,
		NewData:   target.OldData.Clone(),
		UserID:    userID,
		IPAddress: client.ResolveIP(),
	}

	err = s.uow.WithinTx(ctx, func(tx domain.VersionTx) error {
		if err := applySnapshot(ctx, tx.Records(), target); err != nil {
			return err
		}
		return tx.Versions().Create(ctx, restored)
	})
	if err != nil {
		return nil, fmt.Errorf("versioning.RollbackToVersion: version %d: %w", versionID, err)
	}

	log.Info().
		Int64("version_id", versionID).
		Int64("new_version_id", restored.ID).
		Str("table", target.TableName).
		Int64("record_id", target.RecordID).
		Str("action", string(target.Action)).
		Msg("versioning: rolled back")

	return restored, nil
}

// Rollback is RollbackToVersion reporting only success. Failures are logged.
func (s *Service) Rollback(ctx context.Context, versionID, companyID int64, userID *int64, client domain.ClientInfo) bool {
	if _, err := s.RollbackToVersion(ctx, versionID, companyID, userID, client); err != nil {
		log.Warn().Err(err).Int64("version_id", versionID).Msg("versioning: rollback failed")
		return false
	}
	return true
}

func (s *Service) checkRestorable(v *domain.VersionRecord) error {
	if !s.isTracked(v.TableName) {
		return fmt.Errorf("%w: table %q is not tracked", domain.ErrNotFound, v.TableName)
	}

	switch v.Action {
	case domain.VersionActionCreate:
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedRollback, v.Action)
	case domain.VersionActionUpdate, domain.VersionActionDelete:
		if v.OldData == nil || v.OldData.Len() == 0 {
			return fmt.Errorf("%w: no previous state recorded", domain.ErrMalformedSnapshot)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", domain.ErrInvalidAction, v.Action)
	}
}

func applySnapshot(ctx context.Context, records domain.RecordStore, v *domain.VersionRecord) error {
	columns, err := records.Columns(ctx, v.TableName)
	if err != nil {
		return err
	}
	if err := checkColumns(v.OldData, columns); err != nil {
		return err
	}
	row, err := ownedSnapshot(v, columns)
	if err != nil {
		return err
	}

	switch v.Action {
	case domain.VersionActionDelete:
		return records.InsertRow(ctx, v.TableName, row)
	case domain.VersionActionUpdate:
		n, err := records.UpdateRow(ctx, v.TableName, v.RecordID, v.CompanyID, row)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s row %d", domain.ErrNotFound, v.TableName, v.RecordID)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedRollback, v.Action)
	}
}

func checkColumns(snapshot *payload.Object, columns []string) error {
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[c] = struct{}{}
	}

	var missing []string
	for _, key := range snapshot.Keys() {
		if _, ok := known[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: unknown columns %v", domain.ErrMalformedSnapshot, missing)
	}
	return nil
}

// ownedSnapshot returns the columns to write back for v. A snapshot whose
// id or company_id differs from the version's row is malformed. Restored
// deletes get both filled in when the table has them.
func ownedSnapshot(v *domain.VersionRecord, columns []string) (*payload.Object, error) {
	row := v.OldData.Clone()

	pins := []struct {
		column string
		want   int64
	}{
		{column: "id", want: v.RecordID},
		{column: "company_id", want: v.CompanyID},
	}
	for _, pin := range pins {
		if val, ok := row.Get(pin.column); ok {
			if !sameID(val, pin.want) {
				return nil, fmt.Errorf("%w: %s %s does not match the versioned row", domain.ErrMalformedSnapshot, pin.column, val)
			}
			continue
		}
		if v.Action == domain.VersionActionDelete && slices.Contains(columns, pin.column) {
			row.Set(pin.column, payload.Int(pin.want))
		}
	}
	return row, nil
}

func sameID(val payload.Value, want int64) bool {
	lit, ok := val.Literal()
	if !ok {
		if lit, ok = val.Str(); !ok {
			return false
		}
	}
	n, err := strconv.ParseInt(lit, 10, 64)
	return err == nil && n == want
}
