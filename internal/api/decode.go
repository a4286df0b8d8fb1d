package api

import (
	"strconv"
	"strings"

	"hygiene-client/internal/models"
)

// Remote response shapes are not fixed: ids, codes and names move between
// field names across endpoints and server versions. Every fallback chain
// lives here, in documented precedence order, so the rest of the module
// works with strict types.

// Str renders any JSON scalar as a string; nil becomes "".
func Str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "1"
	case float64:
		return t != 0
	default:
		return false
	}
}

// PickList accepts either a bare array or an envelope with the list under
// results/data/items/rows/employees/records.
func PickList(res any) []map[string]any {
	if arr, ok := res.([]any); ok {
		return toMaps(arr)
	}
	m, ok := res.(map[string]any)
	if !ok {
		return nil
	}
	for _, key := range []string{"results", "data", "items", "rows", "employees", "records"} {
		if arr, ok := m[key].([]any); ok {
			return toMaps(arr)
		}
	}
	return nil
}

func toMaps(arr []any) []map[string]any {
	out := make([]map[string]any, 0, len(arr))
	for _, v := range arr {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// first returns the first present value among keys, including one level of
// nesting written as "parent.child".
func first(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if parent, child, ok := strings.Cut(key, "."); ok {
			if nested, ok := m[parent].(map[string]any); ok {
				if v, exists := nested[child]; exists && v != nil {
					return v
				}
			}
			continue
		}
		if v, exists := m[key]; exists && v != nil {
			return v
		}
	}
	return nil
}

func firstStr(m map[string]any, keys ...string) string {
	return Str(first(m, keys...))
}

// CoerceStatus rounds any known status spelling, Japanese or English, into
// the four-value domain. Unknown values land on 未入力.
func CoerceStatus(raw string) models.Status {
	s := strings.ToLower(strings.Join(strings.Fields(strings.TrimSpace(raw)), ""))
	if strings.Contains(s, "休") {
		return models.StatusDayOff
	}
	if strings.Contains(s, "退勤") {
		return models.StatusDeparted
	}
	if strings.Contains(s, "出勤") {
		return models.StatusArrived
	}
	switch s {
	case "off", "dayoff":
		return models.StatusDayOff
	case "left", "checkedout", "clockout":
		return models.StatusDeparted
	case "arrived", "checkedin", "clockin":
		return models.StatusArrived
	}
	return models.StatusNotSubmitted
}

func sliceDate(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

// NormalizeRow converts one raw record row into a MergedRow. Office and
// employee names may still be missing; the directory patches those later.
func NormalizeRow(x map[string]any) models.MergedRow {
	id := firstStr(x, "id", "record_id", "uuid", "pk")
	if id == "" {
		id = firstStr(x, "employee_name", "employee") + "-" + firstStr(x, "date", "record_date")
	}

	var remoteID *int64
	if raw := firstStr(x, "recordId", "record_id", "id"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			remoteID = &n
		}
	}

	officeCode := firstStr(x, "office_code", "branch_code", "office.code", "branch.code")
	officeID := firstStr(x, "office_id", "branch_id", "office.id", "branch.id")

	empID := firstStr(x, "employee_id", "user_id", "employee.id")
	if empID == "" {
		// bare "employee" is an id in most responses, but can be a name
		if _, err := strconv.Atoi(firstStr(x, "employee")); err == nil {
			empID = firstStr(x, "employee")
		}
	}
	empCode := firstStr(x, "employee_code", "employee.code", "emp_code")

	officeName := firstStr(x, "officeName", "office_name", "branch_name", "office.name")
	if officeName == "" {
		if s, ok := x["office"].(string); ok {
			officeName = s
		} else if s, ok := x["branch"].(string); ok {
			officeName = s
		}
	}

	employeeName := firstStr(x, "employeeName", "employee_name", "employee.name", "user_name")
	if employeeName == "" {
		employeeName = empID
	}

	var status models.Status
	if raw := firstStr(x, "status_jp", "status"); raw != "" {
		status = CoerceStatus(raw)
	} else if asBool(first(x, "is_off", "day_off", "is_day_off")) {
		status = models.StatusDayOff
	} else if first(x, "clock_out", "checked_out", "work_end_time") != nil {
		status = models.StatusDeparted
	} else if first(x, "clock_in", "checked_in", "work_start_time") != nil {
		status = models.StatusArrived
	} else {
		status = models.StatusNotSubmitted
	}

	var abnormal []string
	if arr, ok := first(x, "abnormalItems", "abnormal_items", "abnormal_labels", "abnormal").([]any); ok {
		for _, v := range arr {
			if s := Str(v); s != "" {
				abnormal = append(abnormal, models.CategoryLabel(s, s))
			}
		}
	}

	hasComment := asBool(first(x, "hasAnyComment", "has_comment", "has_any_comment"))
	if !hasComment {
		if n, ok := first(x, "comment_count").(float64); ok && n > 0 {
			hasComment = true
		}
	}

	return models.MergedRow{
		ID:                  id,
		EmployeeCode:        empCode,
		EmployeeName:        employeeName,
		OfficeName:          officeName,
		Date:                sliceDate(firstStr(x, "date", "record_date", "ymd")),
		Status:              status,
		AbnormalItems:       abnormal,
		HasComment:          hasComment,
		SupervisorConfirmed: asBool(first(x, "supervisorConfirmed", "supervisor_confirmed", "confirmed")),
		RemoteID:            remoteID,
		OfficeCode:          officeCode,
		OfficeID:            officeID,
		EmployeeID:          empID,
	}
}

func NormalizeOffice(o map[string]any) models.Office {
	code := firstStr(o, "code", "office_code")
	id := firstStr(o, "id", "office_id", "pk")
	name := firstStr(o, "name", "title", "office_name")
	if name == "" {
		if code != "" {
			name = code
		} else {
			name = id
		}
	}
	return models.Office{ID: id, Code: code, Name: name}
}

func NormalizeEmployee(e map[string]any) models.Employee {
	active := true
	if v, exists := e["is_active"]; exists {
		active = asBool(v)
	}
	return models.Employee{
		ID:         firstStr(e, "id", "pk", "employee_id"),
		Code:       firstStr(e, "code", "employee_code"),
		Name:       firstStr(e, "name", "full_name", "display_name", "employee_name"),
		OfficeName: firstStr(e, "office_name", "branch_name", "office.name"),
		OfficeCode: firstStr(e, "office_code", "branch_code", "office.code"),
		OfficeID:   firstStr(e, "office_id", "branch_id", "office.id"),
		Position:   firstStr(e, "position"),
		IsActive:   active,
	}
}

// NormalizeItems converts raw checklist items from any endpoint shape into
// detail items with dictionary labels.
func NormalizeItems(raw []map[string]any) []models.DetailItem {
	out := make([]models.DetailItem, 0, len(raw))
	for _, it := range raw {
		cat := firstStr(it, "category", "key", "code")
		out = append(out, models.DetailItem{
			Category: cat,
			Label:    models.CategoryLabel(cat, firstStr(it, "label")),
			Section:  models.CategorySection(cat),
			IsNormal: asBool(first(it, "is_normal", "normal", "ok")),
			Value:    firstStr(it, "value", "comment"),
		})
	}
	return out
}
