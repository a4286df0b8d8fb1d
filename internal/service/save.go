package service

import (
	"strings"
	"time"

	"hygiene-client/internal/models"
	"hygiene-client/internal/storage"

	"github.com/sirupsen/logrus"
)

const (
	StepArrival   = 1
	StepDeparture = 2
)

const (
	ErrorCodeValidation = "VALIDATION"
	ErrorCodeStepOrder  = "STEP_ORDER"
	ErrorCodeStorage    = "STORAGE"
)

// SaveResult is the structured outcome of a submission. Validation and
// step-order failures are expected and recoverable; STORAGE is the only
// unexpected class.
type SaveResult struct {
	OK        bool   `json:"ok"`
	ID        string `json:"id,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
	Message   string `json:"message,omitempty"`
}

type SaveItemInput struct {
	Category string `json:"category"`
	IsNormal bool   `json:"is_normal"`
	Value    string `json:"value,omitempty"`
}

type SaveInput struct {
	EmployeeCode string          `json:"employeeCode"`
	DateISO      string          `json:"dateISO,omitempty"` // defaults to today in the configured timezone
	Step         int             `json:"step"`              // 1=arrival, 2=departure
	Temperature  *float64        `json:"temperature,omitempty"`
	Items        []SaveItemInput `json:"items"`
	Comment      string          `json:"comment,omitempty"`
}

// SaveService validates and commits one day's checklist submission into the
// local snapshot store.
type SaveService struct {
	snap   *storage.SnapshotStore
	logger *logrus.Logger
	loc    *time.Location
	now    func() time.Time
}

func NewSaveService(snap *storage.SnapshotStore, timezone string) *SaveService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.WithError(err).WithField("timezone", timezone).Warn("Unknown timezone, falling back to UTC")
		loc = time.UTC
	}

	return &SaveService{
		snap:   snap,
		logger: logger,
		loc:    loc,
		now:    time.Now,
	}
}

// TodayISO returns today's civil date in the configured timezone, so records
// land on the right day regardless of the host clock's zone.
func (s *SaveService) TodayISO() string {
	return s.now().In(s.loc).Format("2006-01-02")
}

// SaveDailyCheck runs the validation chain and, on success, upserts the
// record and fully replaces its items. First failure wins; nothing is
// committed on any failure.
func (s *SaveService) SaveDailyCheck(input SaveInput) SaveResult {
	dateISO := input.DateISO
	if dateISO == "" {
		dateISO = s.TodayISO()
	}
	if len(dateISO) > 10 {
		dateISO = dateISO[:10]
	}
	id := models.RecordID(dateISO, input.EmployeeCode)

	s.logger.WithFields(logrus.Fields{
		"employee_code": input.EmployeeCode,
		"date":          dateISO,
		"step":          input.Step,
	}).Info("Saving daily check")

	hasAbnormal := false
	for _, it := range input.Items {
		if !it.IsNormal {
			hasAbnormal = true
			break
		}
	}
	if hasAbnormal && strings.TrimSpace(input.Comment) == "" {
		return SaveResult{
			OK:        false,
			ErrorCode: ErrorCodeValidation,
			Message:   "異常がある項目があります。コメントを入力してください。",
		}
	}
	if input.Temperature != nil && *input.Temperature >= 37.5 && strings.TrimSpace(input.Comment) == "" {
		return SaveResult{
			OK:        false,
			ErrorCode: ErrorCodeValidation,
			Message:   "体温が37.5℃以上です。コメントを入力してください。",
		}
	}

	records := s.snap.LoadRecords()
	items := s.snap.LoadItems()

	var existing *models.CheckRecord
	for i := range records {
		if records[i].ID == id {
			existing = &records[i]
			break
		}
	}

	if input.Step == StepDeparture && (existing == nil || existing.WorkStartTime == nil) {
		return SaveResult{
			OK:        false,
			ErrorCode: ErrorCodeStepOrder,
			Message:   "退勤は出勤登録の後に行ってください。",
		}
	}

	now := s.now()
	next := models.CheckRecord{
		ID:           id,
		EmployeeCode: input.EmployeeCode,
		Date:         dateISO,
	}
	if existing != nil {
		next = *existing
	}
	next.Temperature = input.Temperature
	next.Comment = input.Comment

	if input.Step == StepArrival {
		next.WorkStartTime = &now
	} else {
		next.WorkEndTime = &now
	}
	next.UpdateCalculatedFields()

	if !next.IsValid() {
		return SaveResult{
			OK:        false,
			ErrorCode: ErrorCodeValidation,
			Message:   "従業員コードと日付は必須です。",
		}
	}

	records = storage.Upsert(records, next, func(r models.CheckRecord) string { return r.ID })

	// replace this record's items wholesale
	kept := make([]models.CheckItem, 0, len(items)+len(input.Items))
	for _, it := range items {
		if it.RecordID != id {
			kept = append(kept, it)
		}
	}
	for _, it := range input.Items {
		kept = append(kept, models.CheckItem{
			RecordID: id,
			Category: it.Category,
			IsNormal: it.IsNormal,
			Value:    it.Value,
		})
	}

	if err := s.snap.SaveRecords(records); err != nil {
		s.logger.WithError(err).Error("Failed to persist record snapshot")
		return SaveResult{
			OK:        false,
			ErrorCode: ErrorCodeStorage,
			Message:   "保存に失敗しました（ストレージエラー）。",
		}
	}
	if err := s.snap.SaveItems(kept); err != nil {
		s.logger.WithError(err).Error("Failed to persist item snapshot")
		return SaveResult{
			OK:        false,
			ErrorCode: ErrorCodeStorage,
			Message:   "保存に失敗しました（ストレージエラー）。",
		}
	}

	s.logger.WithFields(logrus.Fields{
		"id":     id,
		"status": next.Status,
	}).Info("Daily check saved")

	return SaveResult{OK: true, ID: id}
}

// SaveFreeComment stores the optional free-form note for a record.
func (s *SaveService) SaveFreeComment(recordID, text string) SaveResult {
	if err := s.snap.SaveFreeComment(recordID, text); err != nil {
		return SaveResult{
			OK:        false,
			ErrorCode: ErrorCodeStorage,
			Message:   "保存に失敗しました（ストレージエラー）。",
		}
	}
	return SaveResult{OK: true, ID: recordID}
}

func (s *SaveService) LoadFreeComment(recordID string) string {
	return s.snap.LoadFreeComment(recordID)
}
