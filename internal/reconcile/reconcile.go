// Package reconcile maps loosely structured spreadsheet or AI-extraction
// fields onto the canonical inspection record schema. Every per-field problem
// degrades to a documented default plus a diagnostic; only a structurally
// invalid input bag is fatal.
package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/oilpro/tanks-cli/internal/model"
)

// dateLayout is the single date format accepted for inspection dates.
const dateLayout = "2006-01-02"

// reportPrefix prefixes synthesized report numbers.
const reportPrefix = "IMP-"

// spreadsheetExts are the file extensions a tank ID must never end with.
// Upstream importers have historically populated the tank ID with the
// uploaded filename; values shaped like that are rejected outright.
var spreadsheetExts = []string{".xlsx", ".xls", ".csv"}

// serviceCanon maps lowercased service synonyms to their canonical display
// form. Unmatched values pass through verbatim.
var serviceCanon = map[string]string{
	"crude_oil":               "Crude Oil",
	"crude oil":               "Crude Oil",
	"diesel":                  "Diesel",
	"gasoline":                "Gasoline",
	"alcohol":                 "Alcohol",
	"fish oil and sludge oil": "Fish Oil and Sludge Oil",
	"other":                   "Other",
}

// Reconciler transforms a RawFieldBag into a validated Inspection. It holds
// no per-call state and is safe for concurrent use.
type Reconciler struct {
	reg *Registry
	now func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithRegistry injects a synonym table other than the built-in default.
func WithRegistry(reg *Registry) Option {
	return func(rc *Reconciler) { rc.reg = reg }
}

// WithClock injects the time source used for date defaults and report-number
// synthesis. Tests use this to pin the clock.
func WithClock(now func() time.Time) Option {
	return func(rc *Reconciler) { rc.now = now }
}

// New returns a Reconciler with the default registry and wall clock.
func New(opts ...Option) *Reconciler {
	rc := &Reconciler{reg: DefaultRegistry(), now: time.Now}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// Registry returns the synonym table this Reconciler resolves against.
func (rc *Reconciler) Registry() *Registry {
	return rc.reg
}

// Reconcile resolves the raw bag into a canonical inspection record plus the
// list of per-field fallbacks that occurred. It never fails for missing or
// malformed scalar fields; the only error it returns is
// model.ErrInvalidInput for a bag that is not a valid mapping.
func (rc *Reconciler) Reconcile(raw model.RawFieldBag) (*model.Inspection, []model.Diagnostic, error) {
	if raw == nil {
		return nil, nil, model.ErrInvalidInput
	}

	idx := indexBag(raw)
	now := rc.now()
	var diags []model.Diagnostic

	insp := &model.Inspection{Status: model.StatusDraft}

	tankID, tankDiags := rc.resolveTankID(idx)
	insp.TankID = tankID
	diags = append(diags, tankDiags...)

	if v, ok := rc.resolve(idx, "report_number"); ok {
		insp.ReportNumber = coerceString(v)
	} else {
		// Millisecond epoch keeps synthesized numbers unique under normal
		// clock monotonicity. Clock rollback can repeat a number; known
		// limitation, not handled here.
		insp.ReportNumber = fmt.Sprintf("%s%d", reportPrefix, now.UnixMilli())
		diags = append(diags, missing("report_number", "synthesized from import time"))
	}

	if v, ok := rc.resolve(idx, "service"); ok {
		insp.Service = canonicalService(coerceString(v))
	} else {
		diags = append(diags, missing("service", "defaulted to empty string"))
	}

	if v, ok := rc.resolve(idx, "inspector"); ok {
		insp.Inspector = coerceString(v)
	} else {
		insp.Inspector = model.UnknownInspector
		diags = append(diags, missing("inspector", "defaulted to sentinel"))
	}

	date, dateDiags := rc.resolveDate(idx, now)
	insp.InspectionDate = date
	diags = append(diags, dateDiags...)

	for _, nf := range []struct {
		name string
		dst  *float64
	}{
		{"diameter", &insp.Diameter},
		{"height", &insp.Height},
		{"capacity", &insp.Capacity},
		{"year_built", &insp.YearBuilt},
	} {
		v, ok := rc.resolve(idx, nf.name)
		if !ok {
			diags = append(diags, missing(nf.name, "defaulted to zero"))
			continue
		}
		f, ok := coerceFloat(v)
		if !ok {
			diags = append(diags, coercionFailed(nf.name, coerceString(v), "not numeric, defaulted to zero"))
			continue
		}
		*nf.dst = f
	}

	for _, sf := range []struct {
		name string
		dst  *string
	}{
		{"shell_material", &insp.ShellMaterial},
		{"roof_type", &insp.RoofType},
		{"foundation_type", &insp.FoundationType},
	} {
		if v, ok := rc.resolve(idx, sf.name); ok {
			*sf.dst = coerceString(v)
		} else {
			diags = append(diags, missing(sf.name, "defaulted to empty string"))
		}
	}

	attachSpecials(insp, raw)

	return insp, diags, nil
}

// bagIndex indexes a raw bag by normalized key. When two raw keys normalize
// to the same value the lexicographically smaller original key wins, keeping
// resolution deterministic over an unordered map.
type bagIndex struct {
	raw  model.RawFieldBag
	norm map[string]string
}

func indexBag(raw model.RawFieldBag) *bagIndex {
	idx := &bagIndex{raw: raw, norm: make(map[string]string, len(raw))}
	for k := range raw {
		nk := normalizeKey(k)
		if prev, ok := idx.norm[nk]; !ok || k < prev {
			idx.norm[nk] = k
		}
	}
	return idx
}

// resolve applies the resolution precedence for one canonical field:
// normalized-key match over the candidate list, then exact label-variant
// match. Blank values are treated as absent.
func (rc *Reconciler) resolve(idx *bagIndex, name string) (any, bool) {
	for _, cand := range rc.reg.Candidates(name) {
		if orig, ok := idx.norm[cand]; ok {
			if v := idx.raw[orig]; !blank(v) {
				return v, true
			}
		}
	}
	for _, label := range rc.reg.Labels(name) {
		if v, ok := idx.raw[label]; ok && !blank(v) {
			return v, true
		}
	}
	return nil, false
}

// resolveTankID walks the tank-ID candidates one key at a time so that a
// filename-shaped value can be rejected and the next source tried. If every
// source is rejected or absent the sentinel UNKNOWN is used.
func (rc *Reconciler) resolveTankID(idx *bagIndex) (string, []model.Diagnostic) {
	var diags []model.Diagnostic

	tryKey := func(v any) (string, bool) {
		if blank(v) {
			return "", false
		}
		s := coerceString(v)
		if filenameLike(s) {
			diags = append(diags, rejected("tank_id", s, "value looks like a spreadsheet filename"))
			return "", false
		}
		return s, true
	}

	for _, cand := range rc.reg.Candidates("tank_id") {
		if orig, ok := idx.norm[cand]; ok {
			if s, ok := tryKey(idx.raw[orig]); ok {
				return s, diags
			}
		}
	}
	for _, label := range rc.reg.Labels("tank_id") {
		if v, ok := idx.raw[label]; ok {
			if s, ok := tryKey(v); ok {
				return s, diags
			}
		}
	}

	if len(diags) == 0 {
		diags = append(diags, missing("tank_id", "defaulted to sentinel"))
	}
	return model.UnknownTankID, diags
}

// resolveDate applies the date policy: a time.Time passes through, a string
// must match the fixed YYYY-MM-DD layout, and anything else falls back to
// the current date with a diagnostic.
func (rc *Reconciler) resolveDate(idx *bagIndex, now time.Time) (time.Time, []model.Diagnostic) {
	v, ok := rc.resolve(idx, "inspection_date")
	if !ok {
		return now, []model.Diagnostic{missing("inspection_date", "defaulted to current date")}
	}

	switch d := v.(type) {
	case time.Time:
		return d, nil
	case string:
		t, err := time.Parse(dateLayout, strings.TrimSpace(d))
		if err != nil {
			return now, []model.Diagnostic{coercionFailed("inspection_date", d, "not a YYYY-MM-DD date, defaulted to current date")}
		}
		return t, nil
	default:
		return now, []model.Diagnostic{coercionFailed("inspection_date", coerceString(v), "unsupported date value, defaulted to current date")}
	}
}

// attachSpecials carries the free-text fields through by exact key match
// only, after primary construction. Their presence or absence is preserved
// as-is: no synonym resolution, no trimming, no defaults.
func attachSpecials(insp *model.Inspection, raw model.RawFieldBag) {
	set := func(dst **string, key string) {
		v, ok := raw[key]
		if !ok || v == nil {
			return
		}
		s := fmt.Sprint(v)
		*dst = &s
	}
	set(&insp.Findings, "findings")
	set(&insp.Recommendations, "recommendations")
	set(&insp.Notes, "notes")
}

// canonicalService normalizes a service string through the fixed synonym
// map. Unmatched values pass through with their casing intact.
func canonicalService(s string) string {
	if canon, ok := serviceCanon[strings.ToLower(s)]; ok {
		return canon
	}
	return s
}

// filenameLike reports whether a tank-ID value ends in a recognized
// spreadsheet file extension.
func filenameLike(s string) bool {
	lower := strings.ToLower(s)
	for _, ext := range spreadsheetExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func missing(field, detail string) model.Diagnostic {
	return model.Diagnostic{Field: field, Kind: model.FieldMissing, Detail: detail}
}

func coercionFailed(field, value, detail string) model.Diagnostic {
	return model.Diagnostic{Field: field, Kind: model.FieldCoercionFailed, Value: value, Detail: detail}
}

func rejected(field, value, detail string) model.Diagnostic {
	return model.Diagnostic{Field: field, Kind: model.FieldRejected, Value: value, Detail: detail}
}
