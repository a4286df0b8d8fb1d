package directory

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"unicode"

	"hygiene-client/internal/api"
	"hygiene-client/internal/models"

	"github.com/sirupsen/logrus"
)

// NormalizeName strips ASCII and full-width whitespace and lowercases, so
// display names compare regardless of spacing conventions.
func NormalizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '　' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// NormalizeCode strips separators and uppercases, so office codes compare
// regardless of dash/underscore/dot conventions.
func NormalizeCode(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) || r == '-' || r == '_' || r == '.' {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

type officeIndex struct {
	nameByCode map[string]string // NormalizeCode(code) -> name
	codeByName map[string]string // NormalizeName(name) -> raw code
	nameByID   map[string]string // id -> name
	idByName   map[string]string // NormalizeName(name) -> id
	names      []string
}

func emptyOfficeIndex() *officeIndex {
	return &officeIndex{
		nameByCode: map[string]string{},
		codeByName: map[string]string{},
		nameByID:   map[string]string{},
		idByName:   map[string]string{},
	}
}

// Directory memoizes bidirectional office lookups (name<->code<->id) and
// employee id/code->name mappings for one session. There is no invalidation
// API: reference data changes rarely and a process restart is the expected
// recovery path.
type Directory struct {
	client *api.Client
	logger *logrus.Logger

	mu        sync.Mutex
	offices   *officeIndex
	empByID   map[string]string
	empByCode map[string]string
}

func New(client *api.Client) *Directory {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &Directory{
		client:    client,
		logger:    log,
		empByID:   map[string]string{},
		empByCode: map[string]string{},
	}
}

// ensureOffices builds the office index on first use. A failed fetch caches
// an empty index; lookups then degrade to identity behavior.
func (d *Directory) ensureOffices(ctx context.Context) *officeIndex {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.offices != nil {
		return d.offices
	}

	idx := emptyOfficeIndex()
	offices, err := d.client.Offices(ctx)
	if err != nil {
		d.logger.WithError(err).Warn("Office master fetch failed, cache stays empty")
		d.offices = idx
		return idx
	}

	for _, o := range offices {
		name := o.Name
		if name == "" {
			if o.Code != "" {
				name = o.Code
			} else {
				name = o.ID
			}
		}
		if o.Code != "" {
			idx.nameByCode[NormalizeCode(o.Code)] = name
		}
		if name != "" && o.Code != "" {
			idx.codeByName[NormalizeName(name)] = o.Code
		}
		if o.ID != "" {
			idx.nameByID[o.ID] = name
		}
		if name != "" && o.ID != "" {
			idx.idByName[NormalizeName(name)] = o.ID
		}
		if name != "" {
			idx.names = append(idx.names, name)
		}
	}

	d.logger.WithField("count", len(idx.names)).Debug("Office cache built")
	d.offices = idx
	return idx
}

func (d *Directory) OfficeNames(ctx context.Context) []string {
	idx := d.ensureOffices(ctx)
	out := make([]string, len(idx.names))
	copy(out, idx.names)
	return out
}

// OfficeNameByCode resolves a branch code to its display name, returning the
// code itself when unknown.
func (d *Directory) OfficeNameByCode(ctx context.Context, code string) string {
	if code == "" {
		return ""
	}
	idx := d.ensureOffices(ctx)
	if name, ok := idx.nameByCode[NormalizeCode(code)]; ok {
		return name
	}
	return code
}

func (d *Directory) OfficeCodeByName(ctx context.Context, name string) string {
	idx := d.ensureOffices(ctx)
	return idx.codeByName[NormalizeName(name)]
}

func (d *Directory) OfficeIDByName(ctx context.Context, name string) string {
	idx := d.ensureOffices(ctx)
	return idx.idByName[NormalizeName(name)]
}

func (d *Directory) OfficeNameByID(ctx context.Context, id string) string {
	idx := d.ensureOffices(ctx)
	return idx.nameByID[id]
}

// OfficeEqual reports whether two office identifiers (name or code, in any
// spelling) refer to the same office.
func (d *Directory) OfficeEqual(ctx context.Context, a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if NormalizeName(a) == NormalizeName(b) {
		return true
	}

	idx := d.ensureOffices(ctx)

	aCode, bCode := a, b
	if c, ok := idx.codeByName[NormalizeName(a)]; ok {
		aCode = c
	}
	if c, ok := idx.codeByName[NormalizeName(b)]; ok {
		bCode = c
	}
	if NormalizeCode(aCode) == NormalizeCode(bCode) {
		return true
	}

	aName, bName := a, b
	if n, ok := idx.nameByCode[NormalizeCode(a)]; ok {
		aName = n
	}
	if n, ok := idx.nameByCode[NormalizeCode(b)]; ok {
		bName = n
	}
	return NormalizeName(aName) == NormalizeName(bName)
}

// EmployeesForOffice resolves the employee roster for an office identified by
// name or code. Office-scoped query parameters are tried in order, and every
// result is post-filtered client-side; server-side filtering is never
// trusted.
func (d *Directory) EmployeesForOffice(ctx context.Context, officeKey string) []models.Employee {
	idx := d.ensureOffices(ctx)
	wantCode := idx.codeByName[NormalizeName(officeKey)]
	wantID := idx.idByName[NormalizeName(officeKey)]

	qName := url.QueryEscape(officeKey)
	paths := []string{}
	if wantCode != "" {
		paths = append(paths, "/employees/?office_code="+url.QueryEscape(wantCode))
	}
	paths = append(paths,
		"/employees/?office_name="+qName,
		"/employees/?office="+qName,
		"/employees/?branch_name="+qName,
		"/employees/?branch="+qName,
	)

	for _, p := range paths {
		rows, err := d.client.GetList(ctx, p)
		if err != nil {
			d.logger.WithError(err).WithField("path", p).Debug("Employee query candidate failed")
			continue
		}
		if len(rows) == 0 {
			continue
		}

		var employees []models.Employee
		for _, row := range rows {
			e := api.NormalizeEmployee(row)
			if e.ID == "" || e.Name == "" {
				continue
			}
			if !d.employeeInOffice(ctx, e, officeKey, wantCode, wantID) {
				continue
			}
			employees = append(employees, e)
		}

		d.rememberEmployees(employees)

		if len(employees) > 0 {
			return employees
		}
	}
	return nil
}

func (d *Directory) employeeInOffice(ctx context.Context, e models.Employee, officeKey, wantCode, wantID string) bool {
	if wantCode != "" && NormalizeCode(e.OfficeCode) == NormalizeCode(wantCode) {
		return true
	}
	if wantID != "" && e.OfficeID != "" && e.OfficeID == wantID {
		return true
	}
	hint := e.OfficeName
	if hint == "" {
		hint = e.OfficeCode
	}
	if hint == "" {
		hint = e.OfficeID
	}
	return d.OfficeEqual(ctx, hint, officeKey)
}

func (d *Directory) rememberEmployees(employees []models.Employee) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range employees {
		if e.ID != "" {
			d.empByID[e.ID] = e.Name
		}
		if e.Code != "" {
			d.empByCode[e.Code] = e.Name
		}
	}
}

// EmployeeName looks up a cached display name by id first, then code.
func (d *Directory) EmployeeName(id, code string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id != "" {
		if name, ok := d.empByID[id]; ok {
			return name
		}
	}
	if code != "" {
		if name, ok := d.empByCode[code]; ok {
			return name
		}
	}
	return ""
}

// PatchEmployeeName replaces a missing or numeric-looking employee name with
// the cached roster name when one is known.
func (d *Directory) PatchEmployeeName(row *models.MergedRow) {
	if row.EmployeeName != "" && !looksNumeric(row.EmployeeName) {
		return
	}
	if name := d.EmployeeName(row.EmployeeID, row.EmployeeCode); name != "" {
		row.EmployeeName = name
	}
}

func looksNumeric(s string) bool {
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

// OfficeOption is one entry of an office selector.
type OfficeOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// OfficeOptionsForRole builds the selector choices: HQ sees every office
// behind an all-offices entry, a branch manager sees only their own.
func (d *Directory) OfficeOptionsForRole(ctx context.Context, isHQ bool, myBranchCode string) []OfficeOption {
	if isHQ {
		opts := []OfficeOption{{Value: "all", Label: "全営業所"}}
		for _, name := range d.OfficeNames(ctx) {
			opts = append(opts, OfficeOption{Value: name, Label: name})
		}
		return opts
	}

	idx := d.ensureOffices(ctx)
	name, ok := idx.nameByCode[NormalizeCode(myBranchCode)]
	if !ok {
		return nil
	}
	return []OfficeOption{{Value: name, Label: name}}
}
