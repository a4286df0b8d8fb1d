package service

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"hygiene-client/internal/api"
	"hygiene-client/internal/models"
)

var (
	reDateEmp = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(\d+)$`)
	reEmpDate = regexp.MustCompile(`^(\d+)-(\d{4}-\d{2}-\d{2})$`)
)

// splitCompositeID extracts the date and employee parts from a composite
// record id, accepting both date-emp and emp-date orderings.
func splitCompositeID(id string) (datePart, empPart string) {
	if m := reDateEmp.FindStringSubmatch(id); m != nil {
		return m[1], m[2]
	}
	if m := reEmpDate.FindStringSubmatch(id); m != nil {
		return m[2], m[1]
	}
	return "", ""
}

// RecordDetail returns the per-record drill-down for a row: checklist items
// with dictionary labels plus a joined comment. Results (including misses)
// are memoized for the session. Never errors; an unresolvable record yields
// an empty detail.
func (s *MergeService) RecordDetail(ctx context.Context, row models.MergedRow) models.RecordDetail {
	key := row.ID
	if row.RemoteID != nil {
		key = fmt.Sprint(*row.RemoteID)
	}

	if entry, ok := s.detailCache[key]; ok && entry.detail != nil {
		return *entry.detail
	}

	// local snapshot first: items written by the save pipeline
	if items := s.snap.ItemsForRecord(row.ID); len(items) > 0 {
		detail := s.buildLocalDetail(row, items)
		s.detailCache[key] = &recordDetailEntry{detail: &detail}
		return detail
	}

	if raw := s.fetchRecordDetailForRow(ctx, &row); raw != nil {
		detail := s.buildDetailFromRecord(ctx, raw)
		s.detailCache[key] = &recordDetailEntry{raw: raw, detail: &detail}
		return detail
	}

	s.logger.WithField("record_id", row.ID).Warn("Failed to resolve record detail")
	empty := models.RecordDetail{Items: []models.DetailItem{}}
	s.detailCache[key] = &recordDetailEntry{detail: &empty}
	return empty
}

func (s *MergeService) buildLocalDetail(row models.MergedRow, items []models.CheckItem) models.RecordDetail {
	detail := models.RecordDetail{
		Items:        make([]models.DetailItem, 0, len(items)),
		EmployeeName: row.EmployeeName,
		OfficeName:   row.OfficeName,
		Date:         row.Date,
	}

	var parts []string
	for _, it := range items {
		d := models.DetailItem{
			Category: it.Category,
			Label:    models.CategoryLabel(it.Category, it.Category),
			Section:  models.CategorySection(it.Category),
			IsNormal: it.IsNormal,
			Value:    it.Value,
		}
		detail.Items = append(detail.Items, d)
		if !d.IsNormal && d.Value != "" {
			parts = append(parts, d.Label+": "+d.Value)
		}
	}

	detail.Comment = strings.Join(parts, " ／ ")
	if detail.Comment == "" {
		detail.Comment = s.snap.LoadFreeComment(row.ID)
	}
	return detail
}

// buildDetailFromRecord assembles a detail from a raw remote record, pulling
// items from the record body or the items endpoints.
func (s *MergeService) buildDetailFromRecord(ctx context.Context, rec map[string]any) models.RecordDetail {
	itemsRaw := embeddedItems(rec)
	if itemsRaw == nil {
		if id := api.Str(rec["id"]); id != "" {
			itemsRaw = s.client.ItemsByRecordID(ctx, id)
		}
	}

	items := api.NormalizeItems(itemsRaw)

	var parts []string
	for _, it := range items {
		if !it.IsNormal && it.Value != "" {
			parts = append(parts, it.Label+": "+it.Value)
		}
	}

	date := api.Str(rec["date"])
	if date == "" {
		date = api.Str(rec["record_date"])
	}
	if len(date) > 10 {
		date = date[:10]
	}

	detail := models.RecordDetail{
		Items:   items,
		Comment: strings.Join(parts, " ／ "),
		Date:    date,
	}

	if v, ok := rec["employee_name"]; ok {
		detail.EmployeeName = api.Str(v)
	} else if nested, ok := rec["employee"].(map[string]any); ok {
		detail.EmployeeName = api.Str(nested["name"])
	}
	if v, ok := rec["office_name"]; ok {
		detail.OfficeName = api.Str(v)
	} else if v, ok := rec["branch_name"]; ok {
		detail.OfficeName = api.Str(v)
	} else if nested, ok := rec["office"].(map[string]any); ok {
		detail.OfficeName = api.Str(nested["name"])
	}

	return detail
}

func embeddedItems(rec map[string]any) []map[string]any {
	for _, key := range []string{"items", "record_items"} {
		if arr, ok := rec[key].([]any); ok {
			out := make([]map[string]any, 0, len(arr))
			for _, v := range arr {
				if m, ok := v.(map[string]any); ok {
					out = append(out, m)
				}
			}
			return out
		}
	}
	return nil
}

// fetchRecordDetailForRow resolves the raw backend record behind a row: the
// record PK endpoint when a PK is known, otherwise a parameter search from
// the composite id, post-filtered so only the right employee's record is
// accepted. Misses are cached too.
func (s *MergeService) fetchRecordDetailForRow(ctx context.Context, row *models.MergedRow) map[string]any {
	key := row.ID
	if row.RemoteID != nil {
		key = fmt.Sprint(*row.RemoteID)
	}
	if entry, ok := s.detailCache[key]; ok {
		return entry.raw
	}

	if row.RemoteID != nil {
		id := fmt.Sprint(*row.RemoteID)
		for _, p := range []string{"/records/" + id + "/", "/records/" + id} {
			rec, err := s.client.GetOne(ctx, p)
			if err != nil {
				continue
			}
			s.detailCache[key] = &recordDetailEntry{raw: rec}
			return rec
		}
	}

	datePart, empPart := splitCompositeID(row.ID)

	wantID := row.EmployeeID
	wantCode := row.EmployeeCode
	wantName := row.EmployeeName

	if datePart != "" {
		qDate := url.QueryEscape(datePart)
		var paths []string
		if wantID != "" {
			paths = append(paths, "/records/?employee_id="+url.QueryEscape(wantID)+"&date="+qDate)
		}
		if wantCode != "" {
			paths = append(paths, "/records/?employee_code="+url.QueryEscape(wantCode)+"&date="+qDate)
		}
		if empPart != "" {
			paths = append(paths,
				"/records/?employee_id="+url.QueryEscape(empPart)+"&date="+qDate,
				"/records/?employee="+url.QueryEscape(empPart)+"&date="+qDate,
			)
		}

		for _, p := range paths {
			list, err := s.client.GetList(ctx, p)
			if err != nil {
				continue
			}
			for _, rec := range list {
				if matchesWantedEmployee(rec, wantID, wantCode, wantName) {
					s.detailCache[key] = &recordDetailEntry{raw: rec}
					return rec
				}
			}
		}
	}

	s.detailCache[key] = &recordDetailEntry{}
	return nil
}

func matchesWantedEmployee(rec map[string]any, wantID, wantCode, wantName string) bool {
	rid := api.Str(rec["employee_id"])
	rcode := api.Str(rec["employee_code"])
	rname := api.Str(rec["employee_name"])
	if nested, ok := rec["employee"].(map[string]any); ok {
		if rid == "" {
			rid = api.Str(nested["id"])
		}
		if rcode == "" {
			rcode = api.Str(nested["code"])
		}
		if rname == "" {
			rname = api.Str(nested["name"])
		}
	}

	if wantID != "" && rid != "" {
		return rid == wantID
	}
	if wantCode != "" && rcode != "" {
		return rcode == wantCode
	}
	return wantID == "" && wantCode == "" && wantName != "" && rname == wantName
}

// hydrateFromDetails fills abnormal items and the comment flag for rows
// whose listing endpoint did not carry them, using the per-record detail.
func (s *MergeService) hydrateFromDetails(ctx context.Context, rows []models.MergedRow) {
	for i := range rows {
		row := &rows[i]
		if len(row.AbnormalItems) > 0 && row.HasComment {
			continue
		}
		// snapshot-derived fields are authoritative, even when empty
		if row.Local {
			continue
		}
		if row.RemoteID == nil && row.EmployeeID == "" {
			continue
		}

		rec := s.fetchRecordDetailForRow(ctx, row)
		if rec == nil {
			continue
		}

		itemsRaw := embeddedItems(rec)
		if itemsRaw == nil {
			if id := api.Str(rec["id"]); id != "" {
				itemsRaw = s.client.ItemsByRecordID(ctx, id)
			}
		}

		var abnormal []string
		seen := map[string]bool{}
		hasComment := false
		for _, it := range api.NormalizeItems(itemsRaw) {
			if it.IsNormal {
				continue
			}
			if !seen[it.Label] {
				seen[it.Label] = true
				abnormal = append(abnormal, it.Label)
			}
			if strings.TrimSpace(it.Value) != "" {
				hasComment = true
			}
		}

		if len(abnormal) > 0 {
			row.AbnormalItems = abnormal
		}
		if hasComment {
			row.HasComment = true
		}
	}
}
