package service

import (
	"path/filepath"
	"testing"
	"time"

	"hygiene-client/internal/models"
	"hygiene-client/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSnap(t *testing.T) *storage.SnapshotStore {
	t.Helper()

	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "snapshot.db"))
	require.NoError(t, err)

	snap, err := storage.NewSnapshotStore(db)
	require.NoError(t, err)
	return snap
}

func newTestSaveService(t *testing.T) (*SaveService, *storage.SnapshotStore) {
	t.Helper()
	snap := newTestSnap(t)
	return NewSaveService(snap, "Asia/Tokyo"), snap
}

func floatPtr(v float64) *float64 { return &v }

func TestSaveAbnormalItemRequiresComment(t *testing.T) {
	svc, _ := newTestSaveService(t)

	res := svc.SaveDailyCheck(SaveInput{
		EmployeeCode: "100002",
		DateISO:      "2025-08-01",
		Step:         StepArrival,
		Items: []SaveItemInput{
			{Category: "nails_groomed", IsNormal: false, Value: ""},
		},
	})

	assert.False(t, res.OK)
	assert.Equal(t, ErrorCodeValidation, res.ErrorCode)
	assert.Contains(t, res.Message, "コメント")

	// supplying the comment makes the same submission pass
	res = svc.SaveDailyCheck(SaveInput{
		EmployeeCode: "100002",
		DateISO:      "2025-08-01",
		Step:         StepArrival,
		Items: []SaveItemInput{
			{Category: "nails_groomed", IsNormal: false, Value: "爪が伸びていた"},
		},
		Comment: "爪切り指導済み",
	})
	assert.True(t, res.OK)
	assert.Equal(t, "2025-08-01-100002", res.ID)
}

func TestSaveHighTemperatureRequiresComment(t *testing.T) {
	svc, _ := newTestSaveService(t)

	res := svc.SaveDailyCheck(SaveInput{
		EmployeeCode: "100002",
		DateISO:      "2025-08-01",
		Step:         StepArrival,
		Temperature:  floatPtr(37.5),
	})
	assert.False(t, res.OK)
	assert.Equal(t, ErrorCodeValidation, res.ErrorCode)

	res = svc.SaveDailyCheck(SaveInput{
		EmployeeCode: "100002",
		DateISO:      "2025-08-01",
		Step:         StepArrival,
		Temperature:  floatPtr(37.4),
	})
	assert.True(t, res.OK)
}

func TestSaveRejectsMissingEmployeeCode(t *testing.T) {
	svc, snap := newTestSaveService(t)

	res := svc.SaveDailyCheck(SaveInput{
		DateISO: "2025-08-01",
		Step:    StepArrival,
	})

	assert.False(t, res.OK)
	assert.Equal(t, ErrorCodeValidation, res.ErrorCode)
	assert.Empty(t, snap.LoadRecords())
}

func TestSaveDepartureBeforeArrivalFails(t *testing.T) {
	svc, _ := newTestSaveService(t)

	res := svc.SaveDailyCheck(SaveInput{
		EmployeeCode: "100002",
		DateISO:      "2025-08-01",
		Step:         StepDeparture,
	})

	assert.False(t, res.OK)
	assert.Equal(t, ErrorCodeStepOrder, res.ErrorCode)
}

func TestSaveArrivalThenDeparture(t *testing.T) {
	svc, snap := newTestSaveService(t)

	res := svc.SaveDailyCheck(SaveInput{
		EmployeeCode: "100002",
		DateISO:      "2025-08-01",
		Step:         StepArrival,
	})
	require.True(t, res.OK)

	res = svc.SaveDailyCheck(SaveInput{
		EmployeeCode: "100002",
		DateISO:      "2025-08-01",
		Step:         StepDeparture,
	})
	require.True(t, res.OK)

	records := snap.LoadRecords()
	require.Len(t, records, 1)
	assert.Equal(t, models.StatusDeparted, records[0].Status)
	assert.NotNil(t, records[0].WorkStartTime)
	assert.NotNil(t, records[0].WorkEndTime)
}

func TestSaveArrivalTwiceIsIdempotent(t *testing.T) {
	svc, snap := newTestSaveService(t)

	first := time.Date(2025, 8, 1, 8, 0, 0, 0, time.UTC)
	second := time.Date(2025, 8, 1, 8, 30, 0, 0, time.UTC)

	svc.now = func() time.Time { return first }
	require.True(t, svc.SaveDailyCheck(SaveInput{
		EmployeeCode: "100002", DateISO: "2025-08-01", Step: StepArrival,
	}).OK)

	svc.now = func() time.Time { return second }
	require.True(t, svc.SaveDailyCheck(SaveInput{
		EmployeeCode: "100002", DateISO: "2025-08-01", Step: StepArrival,
	}).OK)

	records := snap.LoadRecords()
	require.Len(t, records, 1)
	assert.True(t, records[0].WorkStartTime.Equal(second))
}

func TestSaveReplacesItemsWholesale(t *testing.T) {
	svc, snap := newTestSaveService(t)

	require.True(t, svc.SaveDailyCheck(SaveInput{
		EmployeeCode: "100002",
		DateISO:      "2025-08-01",
		Step:         StepArrival,
		Items: []SaveItemInput{
			{Category: "temperature", IsNormal: true, Value: "36.2"},
			{Category: "no_health_issues", IsNormal: true},
		},
	}).OK)

	// items of another record must be left alone
	other := snap.LoadItems()
	other = append(other, models.CheckItem{RecordID: "2025-08-01-100003", Category: "temperature", IsNormal: true})
	require.NoError(t, snap.SaveItems(other))

	require.True(t, svc.SaveDailyCheck(SaveInput{
		EmployeeCode: "100002",
		DateISO:      "2025-08-01",
		Step:         StepDeparture,
		Items: []SaveItemInput{
			{Category: "proper_handwashing", IsNormal: true},
		},
	}).OK)

	mine := snap.ItemsForRecord("2025-08-01-100002")
	require.Len(t, mine, 1)
	assert.Equal(t, "proper_handwashing", mine[0].Category)

	theirs := snap.ItemsForRecord("2025-08-01-100003")
	assert.Len(t, theirs, 1)
}

func TestSaveDefaultsToTodayInTimezone(t *testing.T) {
	svc, snap := newTestSaveService(t)

	// 2025-08-01 23:30 UTC is already 2025-08-02 in Asia/Tokyo
	svc.now = func() time.Time {
		return time.Date(2025, 8, 1, 23, 30, 0, 0, time.UTC)
	}

	res := svc.SaveDailyCheck(SaveInput{EmployeeCode: "100002", Step: StepArrival})
	require.True(t, res.OK)
	assert.Equal(t, "2025-08-02-100002", res.ID)

	records := snap.LoadRecords()
	require.Len(t, records, 1)
	assert.Equal(t, "2025-08-02", records[0].Date)
}

func TestSaveKeepsOverallCommentAndTemperature(t *testing.T) {
	svc, snap := newTestSaveService(t)

	require.True(t, svc.SaveDailyCheck(SaveInput{
		EmployeeCode: "100002",
		DateISO:      "2025-08-01",
		Step:         StepArrival,
		Temperature:  floatPtr(36.8),
		Comment:      "軽い咳あり",
		Items: []SaveItemInput{
			{Category: "no_respiratory_symptoms", IsNormal: false, Value: "咳"},
		},
	}).OK)

	records := snap.LoadRecords()
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Temperature)
	assert.Equal(t, 36.8, *records[0].Temperature)
	assert.Equal(t, "軽い咳あり", records[0].Comment)
}

func TestFreeCommentRoundTripViaService(t *testing.T) {
	svc, _ := newTestSaveService(t)

	res := svc.SaveFreeComment("2025-08-01-100002", "経過観察")
	assert.True(t, res.OK)
	assert.Equal(t, "経過観察", svc.LoadFreeComment("2025-08-01-100002"))
}
