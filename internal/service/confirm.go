package service

import (
	"context"
	"fmt"

	"hygiene-client/internal/api"
	"hygiene-client/internal/directory"
	"hygiene-client/internal/models"
	"hygiene-client/internal/storage"

	"github.com/sirupsen/logrus"
)

// ConfirmResult is the structured outcome of a confirm/unconfirm action.
type ConfirmResult struct {
	OK        bool   `json:"ok"`
	Confirmed bool   `json:"supervisor_confirmed"`
	ErrorCode string `json:"errorCode,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ConfirmService records supervisor confirm/unconfirm decisions. The local
// overlay is authoritative for the UI; when the row has a backend PK the
// decision is also pushed to the server, but a failed push never loses the
// local decision.
type ConfirmService struct {
	client *api.Client
	dir    *directory.Directory
	store  *storage.ConfirmationStore
	logger *logrus.Logger
}

func NewConfirmService(client *api.Client, dir *directory.Directory, store *storage.ConfirmationStore) *ConfirmService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &ConfirmService{
		client: client,
		dir:    dir,
		store:  store,
		logger: logger,
	}
}

// SetConfirmed writes the decision to the overlay store and, when possible,
// to the backend.
func (c *ConfirmService) SetConfirmed(ctx context.Context, row models.MergedRow, confirmed bool, supervisorCode string) ConfirmResult {
	result := confirmed

	if row.RemoteID != nil {
		got, err := c.client.SupervisorConfirm(ctx, fmt.Sprint(*row.RemoteID), confirmed, supervisorCode)
		if err != nil {
			c.logger.WithError(err).WithField("record_id", row.ID).Warn("Remote confirmation push failed, keeping local decision")
		} else {
			result = got
		}
	}

	if err := c.store.SetConfirmed(row.ID, result); err != nil {
		return ConfirmResult{
			OK:        false,
			ErrorCode: ErrorCodeStorage,
			Message:   "確認状態の保存に失敗しました。",
		}
	}

	return ConfirmResult{OK: true, Confirmed: result}
}

// CanConfirmRow reports whether a reviewer may confirm a row. Only terminal
// rows (departure recorded or day off) are confirmable; HQ admins may
// confirm anywhere, a branch manager only inside their own office.
func (c *ConfirmService) CanConfirmRow(ctx context.Context, role models.Role, row models.MergedRow, userOffice, fallbackOffice string) bool {
	if row.ID == "" {
		return false
	}

	if row.Status != models.StatusDeparted && row.Status != models.StatusDayOff {
		return false
	}

	if role == models.RoleHQAdmin {
		return true
	}
	if role != models.RoleBranchManager {
		return false
	}

	rowOffice := row.OfficeName
	if rowOffice == "" {
		rowOffice = fallbackOffice
	}
	if rowOffice == "" || userOffice == "" {
		return false
	}
	return c.dir.OfficeEqual(ctx, rowOffice, userOffice)
}
