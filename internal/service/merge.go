package service

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"hygiene-client/internal/api"
	"hygiene-client/internal/directory"
	"hygiene-client/internal/models"
	"hygiene-client/internal/storage"

	"github.com/sirupsen/logrus"
)

// MergeService produces the unified row model for the daily and monthly
// views, reconciling three sources per row: the local snapshot (freshest
// user-entered data, always wins), the remote API, and a synthesized
// not-submitted row when neither has anything. The supervisor-confirmation
// overlay is applied last. Read queries never fail outward; the worst case
// is an empty row set.
type MergeService struct {
	client   *api.Client
	dir      *directory.Directory
	snap     *storage.SnapshotStore
	confirms *storage.ConfirmationStore
	logger   *logrus.Logger

	detailCache map[string]*recordDetailEntry
}

type recordDetailEntry struct {
	raw    map[string]any
	detail *models.RecordDetail
}

func NewMergeService(
	client *api.Client,
	dir *directory.Directory,
	snap *storage.SnapshotStore,
	confirms *storage.ConfirmationStore,
) *MergeService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &MergeService{
		client:      client,
		dir:         dir,
		snap:        snap,
		confirms:    confirms,
		logger:      logger,
		detailCache: map[string]*recordDetailEntry{},
	}
}

// DailyRows returns one row per employee of the office for the given date.
// Employees without any record get a synthesized 未入力 row; remote rows
// whose employee is missing from the roster (retired, transferred) are kept.
func (s *MergeService) DailyRows(ctx context.Context, officeName, dateISO string) []models.MergedRow {
	s.logger.WithFields(logrus.Fields{
		"office": officeName,
		"date":   dateISO,
	}).Debug("Building daily rows")

	employees := s.rosterForOffice(ctx, officeName)
	remote := s.fetchDailyRemote(ctx, officeName, dateISO)

	byEmpID := map[string]*models.MergedRow{}
	byEmpCode := map[string]*models.MergedRow{}
	byEmpName := map[string]*models.MergedRow{}
	for i := range remote {
		r := &remote[i]
		if r.EmployeeID != "" {
			byEmpID[r.EmployeeID] = r
		}
		if r.EmployeeCode != "" {
			byEmpCode[r.EmployeeCode] = r
		}
		if r.EmployeeName != "" {
			byEmpName[r.EmployeeName] = r
		}
	}

	// Same display name twice in one roster makes name matching ambiguous.
	nameCount := map[string]int{}
	for _, e := range employees {
		nameCount[e.Name]++
	}

	localByID := map[string]models.CheckRecord{}
	for _, rec := range s.snap.LoadRecords() {
		if rec.Date == dateISO {
			localByID[rec.ID] = rec
		}
	}

	matched := map[*models.MergedRow]bool{}
	rows := make([]models.MergedRow, 0, len(employees))
	for _, e := range employees {
		if rec, ok := localByID[models.RecordID(dateISO, e.Code)]; ok {
			rows = append(rows, s.rowFromLocal(rec, e, officeName))
			// a remote twin of a locally-edited record must not reappear
			// as an extra row
			if hit := s.remoteHit(e, byEmpID, byEmpCode, byEmpName, nameCount); hit != nil {
				matched[hit] = true
			}
			continue
		}

		if hit := s.remoteHit(e, byEmpID, byEmpCode, byEmpName, nameCount); hit != nil {
			matched[hit] = true
			row := *hit
			if row.OfficeName == "" {
				row.OfficeName = officeName
			}
			if row.EmployeeName == "" {
				row.EmployeeName = e.Name
			}
			if row.EmployeeCode == "" {
				row.EmployeeCode = e.Code
			}
			if row.Date == "" {
				row.Date = dateISO
			}
			rows = append(rows, row)
			continue
		}

		rows = append(rows, models.MergedRow{
			ID:            models.RecordID(dateISO, e.Code),
			EmployeeCode:  e.Code,
			EmployeeName:  e.Name,
			OfficeName:    officeName,
			Date:          dateISO,
			Status:        models.StatusNotSubmitted,
			AbnormalItems: []string{},
		})
	}

	for i := range remote {
		if !matched[&remote[i]] {
			row := remote[i]
			if row.OfficeName == "" {
				row.OfficeName = officeName
			}
			rows = append(rows, row)
		}
	}

	s.finishRows(ctx, rows)

	if filtered := s.filterRowsByOffice(ctx, rows, officeName); len(filtered) > 0 {
		rows = filtered
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].EmployeeName < rows[j].EmployeeName
	})
	return rows
}

// MonthRows returns one row per calendar day of the month containing refISO
// for a single employee, most recent day first.
func (s *MergeService) MonthRows(ctx context.Context, employeeKey, refISO string) []models.MergedRow {
	key := strings.TrimSpace(employeeKey)
	if key == "" {
		return []models.MergedRow{}
	}

	ym := sliceISO(refISO)
	if len(ym) >= 7 {
		ym = ym[:7]
	}

	emp := s.resolveEmployee(ctx, key)
	remote := s.fetchMonthRemote(ctx, emp, key, ym)

	remoteByDate := map[string]*models.MergedRow{}
	for i := range remote {
		remoteByDate[remote[i].Date] = &remote[i]
	}

	localByID := map[string]models.CheckRecord{}
	for _, rec := range s.snap.LoadRecords() {
		if emp.Code != "" && rec.EmployeeCode == emp.Code {
			localByID[rec.ID] = rec
		}
	}

	officeName := emp.OfficeName
	if officeName == "" {
		officeName = s.dir.OfficeNameByCode(ctx, emp.OfficeCode)
	}

	days := dayListOfMonth(refISO)
	rows := make([]models.MergedRow, 0, len(days))
	for i := len(days) - 1; i >= 0; i-- {
		iso := days[i]

		if rec, ok := localByID[models.RecordID(iso, emp.Code)]; ok {
			rows = append(rows, s.rowFromLocal(rec, emp, officeName))
			continue
		}

		if hit, ok := remoteByDate[iso]; ok {
			row := *hit
			if row.EmployeeName == "" {
				row.EmployeeName = emp.Name
			}
			if row.OfficeName == "" {
				row.OfficeName = officeName
			}
			rows = append(rows, row)
			continue
		}

		rows = append(rows, models.MergedRow{
			ID:            models.RecordID(iso, emp.Code),
			EmployeeCode:  emp.Code,
			EmployeeName:  emp.Name,
			OfficeName:    officeName,
			Date:          iso,
			Status:        models.StatusNotSubmitted,
			AbnormalItems: []string{},
		})
	}

	s.finishRows(ctx, rows)
	return rows
}

// finishRows applies the shared tail of every query: detail hydration, name
// patching, and the confirmation overlay.
func (s *MergeService) finishRows(ctx context.Context, rows []models.MergedRow) {
	s.hydrateFromDetails(ctx, rows)
	for i := range rows {
		s.dir.PatchEmployeeName(&rows[i])
		if confirmed, ok := s.confirms.GetConfirmed(rows[i].ID); ok {
			rows[i].SupervisorConfirmed = confirmed
		}
		if rows[i].AbnormalItems == nil {
			rows[i].AbnormalItems = []string{}
		}
	}
}

// rowFromLocal projects a snapshot record into a merged row, deriving the
// abnormal labels and comment flag from the snapshot items.
func (s *MergeService) rowFromLocal(rec models.CheckRecord, emp models.Employee, officeName string) models.MergedRow {
	abnormal := []string{}
	seen := map[string]bool{}
	hasComment := false
	for _, it := range s.snap.ItemsForRecord(rec.ID) {
		if it.IsNormal {
			continue
		}
		label := models.CategoryLabel(it.Category, it.Category)
		if !seen[label] {
			seen[label] = true
			abnormal = append(abnormal, label)
		}
		if strings.TrimSpace(it.Value) != "" {
			hasComment = true
		}
	}

	name := emp.Name
	if name == "" {
		name = rec.EmployeeCode
	}

	return models.MergedRow{
		ID:            rec.ID,
		EmployeeCode:  rec.EmployeeCode,
		EmployeeName:  name,
		OfficeName:    officeName,
		Date:          rec.Date,
		Status:        rec.DeriveStatus(),
		AbnormalItems: abnormal,
		HasComment:    hasComment,
		Local:         true,
		EmployeeID:    emp.ID,
	}
}

func (s *MergeService) remoteHit(
	e models.Employee,
	byID, byCode, byName map[string]*models.MergedRow,
	nameCount map[string]int,
) *models.MergedRow {
	if e.ID != "" {
		if hit, ok := byID[e.ID]; ok {
			return hit
		}
	}
	if e.Code != "" {
		if hit, ok := byCode[e.Code]; ok {
			return hit
		}
	}
	if e.Name != "" && nameCount[e.Name] == 1 {
		if hit, ok := byName[e.Name]; ok {
			return hit
		}
	}
	return nil
}

// rosterForOffice returns the employees of an office, refreshing the local
// employee snapshot on success and reading it back when offline.
func (s *MergeService) rosterForOffice(ctx context.Context, officeName string) []models.Employee {
	employees := s.dir.EmployeesForOffice(ctx, officeName)
	if len(employees) > 0 {
		snapshot := s.snap.LoadEmployees()
		for _, e := range employees {
			snapshot = storage.Upsert(snapshot, e, func(x models.Employee) string { return x.ID })
		}
		if err := s.snap.SaveEmployees(snapshot); err != nil {
			s.logger.WithError(err).Warn("Failed to refresh employee snapshot")
		}
		return employees
	}

	s.logger.WithField("office", officeName).Debug("Roster fetch empty, falling back to snapshot")
	var out []models.Employee
	for _, e := range s.snap.LoadEmployees() {
		hint := e.OfficeName
		if hint == "" {
			hint = e.OfficeCode
		}
		if s.dir.OfficeEqual(ctx, hint, officeName) {
			out = append(out, e)
		}
	}
	return out
}

func (s *MergeService) resolveEmployee(ctx context.Context, key string) models.Employee {
	for _, e := range s.snap.LoadEmployees() {
		if e.Code == key || e.ID == key || e.Name == key {
			return e
		}
	}
	if isDigits(key) {
		return models.Employee{ID: key, Code: key}
	}
	return models.Employee{Name: key}
}

// fetchDailyRemote walks the ordered query strategies for an office+date
// query. Office-scoped variants are trusted to the extent of patching the
// office fields in; the date-only fallback is post-filtered. First non-empty
// result wins.
func (s *MergeService) fetchDailyRemote(ctx context.Context, officeName, dateISO string) []models.MergedRow {
	wantCode := s.dir.OfficeCodeByName(ctx, officeName)

	qName := url.QueryEscape(officeName)
	qDate := url.QueryEscape(dateISO)

	type strategy struct {
		path         string
		officeScoped bool
	}
	var strategies []strategy
	if wantCode != "" {
		strategies = append(strategies, strategy{
			path:         "/records/?office_code=" + url.QueryEscape(wantCode) + "&date=" + qDate,
			officeScoped: true,
		})
	}
	strategies = append(strategies,
		strategy{path: "/records/?office_name=" + qName + "&date=" + qDate, officeScoped: true},
		strategy{path: "/records/?office=" + qName + "&date=" + qDate, officeScoped: true},
		strategy{path: "/records/?branch_name=" + qName + "&date=" + qDate, officeScoped: true},
		strategy{path: "/records/?branch=" + qName + "&date=" + qDate, officeScoped: true},
		strategy{path: "/records/?date=" + qDate, officeScoped: false},
	)

	for _, st := range strategies {
		raw, err := s.client.GetList(ctx, st.path)
		if err != nil {
			s.logger.WithError(err).WithField("path", st.path).Debug("Daily query candidate failed")
			continue
		}
		if len(raw) == 0 {
			continue
		}

		rows := make([]models.MergedRow, 0, len(raw))
		for _, m := range raw {
			rows = append(rows, api.NormalizeRow(m))
		}

		if st.officeScoped {
			for i := range rows {
				if rows[i].OfficeName == "" {
					rows[i].OfficeName = officeName
				}
				if wantCode != "" && rows[i].OfficeCode == "" {
					rows[i].OfficeCode = directory.NormalizeCode(wantCode)
				}
			}
		} else {
			rows = s.filterRowsByOffice(ctx, rows, officeName)
		}

		if len(rows) > 0 {
			return rows
		}
	}
	return nil
}

// fetchMonthRemote walks the month query strategies for one employee,
// post-filtering every result by the employee identity.
func (s *MergeService) fetchMonthRemote(ctx context.Context, emp models.Employee, key, ym string) []models.MergedRow {
	qYM := url.QueryEscape(ym)

	var paths []string
	if emp.ID != "" {
		q := url.QueryEscape(emp.ID)
		paths = append(paths,
			"/records/?employee="+q+"&month="+qYM,
			"/records/?employee_id="+q+"&month="+qYM,
			"/records/?employee_pk="+q+"&month="+qYM,
		)
	}
	qKey := url.QueryEscape(key)
	paths = append(paths,
		"/records/?employee_name="+qKey+"&month="+qYM,
		"/records/?user_name="+qKey+"&month="+qYM,
		"/records/?employee="+qKey+"&month="+qYM,
		"/records/?month="+qYM,
	)

	for _, p := range paths {
		raw, err := s.client.GetList(ctx, p)
		if err != nil {
			s.logger.WithError(err).WithField("path", p).Debug("Month query candidate failed")
			continue
		}

		var rows []models.MergedRow
		for _, m := range raw {
			row := api.NormalizeRow(m)
			if !s.rowMatchesEmployee(row, emp, key) {
				continue
			}
			rows = append(rows, row)
		}
		if len(rows) > 0 {
			return rows
		}
	}
	return nil
}

func (s *MergeService) rowMatchesEmployee(row models.MergedRow, emp models.Employee, key string) bool {
	if emp.ID != "" && row.EmployeeID != "" {
		return row.EmployeeID == emp.ID
	}
	if emp.Code != "" && row.EmployeeCode != "" {
		return row.EmployeeCode == emp.Code
	}
	return directory.NormalizeName(row.EmployeeName) == directory.NormalizeName(key)
}

// filterRowsByOffice narrows rows to one office. Per row the strongest shared
// key decides: code when both sides carry one, then id, then normalized name.
func (s *MergeService) filterRowsByOffice(ctx context.Context, rows []models.MergedRow, officeName string) []models.MergedRow {
	wantCode := s.dir.OfficeCodeByName(ctx, officeName)
	wantID := s.dir.OfficeIDByName(ctx, officeName)

	var out []models.MergedRow
	for _, r := range rows {
		keep := false
		switch {
		case wantCode != "" && r.OfficeCode != "":
			keep = directory.NormalizeCode(r.OfficeCode) == directory.NormalizeCode(wantCode)
		case wantID != "" && r.OfficeID != "":
			keep = r.OfficeID == wantID
		default:
			keep = directory.NormalizeName(r.OfficeName) == directory.NormalizeName(officeName)
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}

// HasAnyComment reports whether a row carries any reviewer-visible note: an
// abnormal item value, the stored free comment, or the row's own flag.
func (s *MergeService) HasAnyComment(row models.MergedRow) bool {
	if row.HasComment {
		return true
	}
	if strings.TrimSpace(s.snap.LoadFreeComment(row.ID)) != "" {
		return true
	}
	for _, it := range s.snap.ItemsForRecord(row.ID) {
		if !it.IsNormal && strings.TrimSpace(it.Value) != "" {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// dayListOfMonth expands every calendar day of the month containing refISO.
func dayListOfMonth(refISO string) []string {
	ref, err := time.Parse("2006-01-02", sliceISO(refISO))
	if err != nil {
		return nil
	}
	year, month := ref.Year(), ref.Month()
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()

	out := make([]string, 0, last)
	for d := 1; d <= last; d++ {
		out = append(out, fmt.Sprintf("%04d-%02d-%02d", year, month, d))
	}
	return out
}

func sliceISO(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

// EnumerateYM lists every YYYY-MM from startYM through endYM inclusive.
func EnumerateYM(startYM, endYM string) []string {
	start, err1 := time.Parse("2006-01", startYM)
	end, err2 := time.Parse("2006-01", endYM)
	if err1 != nil || err2 != nil {
		return []string{}
	}

	var out []string
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		out = append(out, cur.Format("2006-01"))
	}
	return out
}
