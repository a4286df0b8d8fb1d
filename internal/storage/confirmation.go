package storage

import (
	"github.com/sirupsen/logrus"
)

// ConfirmationStore persists reviewer confirm/unconfirm decisions keyed by
// record id, independent of record content, so re-deriving rows never loses
// a reviewer's decision.
type ConfirmationStore struct {
	snap   *SnapshotStore
	logger *logrus.Logger
}

func NewConfirmationStore(snap *SnapshotStore) *ConfirmationStore {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &ConfirmationStore{
		snap:   snap,
		logger: log,
	}
}

// SetConfirmed upserts the decision for recordID and rewrites the whole map.
func (c *ConfirmationStore) SetConfirmed(recordID string, confirmed bool) error {
	m := Load(c.snap, KeyConfirmations, map[string]bool{})
	m[recordID] = confirmed

	if err := Save(c.snap, KeyConfirmations, m); err != nil {
		c.logger.WithError(err).WithField("record_id", recordID).Error("Failed to save confirmation")
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"record_id": recordID,
		"confirmed": confirmed,
	}).Info("Supervisor confirmation saved")

	return nil
}

// GetConfirmed returns the stored decision for recordID. ok=false means no
// explicit decision exists and the record's own default applies.
func (c *ConfirmationStore) GetConfirmed(recordID string) (bool, bool) {
	m := Load(c.snap, KeyConfirmations, map[string]bool{})
	v, ok := m[recordID]
	return v, ok
}
