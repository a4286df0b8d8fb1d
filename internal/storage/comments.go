package storage

// Free-text comment per record id, stored under its own key so it survives
// independent of the record snapshot.

func (s *SnapshotStore) SaveFreeComment(recordID, text string) error {
	return s.SaveRaw(commentKeyPrefix+recordID, text)
}

func (s *SnapshotStore) LoadFreeComment(recordID string) string {
	raw, ok := s.LoadRaw(commentKeyPrefix + recordID)
	if !ok {
		return ""
	}
	return raw
}
