package reconcile

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Field describes one canonical record attribute and the ordered list of raw
// keys that may carry its value. The canonical name is always tried first;
// synonyms are tried in declaration order.
type Field struct {
	Name     string   `yaml:"name"`
	Synonyms []string `yaml:"synonyms,omitempty"`
}

// Registry is the synonym table a Reconciler resolves raw keys against. It is
// immutable after construction, so a single Registry can back any number of
// concurrent reconciliations.
type Registry struct {
	fields []Field
	byName map[string]int
	labels map[string][]string
}

var titleCaser = cases.Title(language.English)

// NewRegistry builds a Registry from the given field table. Synonym keys are
// normalized to lowercase; human-readable label variants ("tank_id" ->
// "Tank Id") are derived from the canonical name and every synonym.
func NewRegistry(fields []Field) *Registry {
	r := &Registry{
		fields: make([]Field, len(fields)),
		byName: make(map[string]int, len(fields)),
		labels: make(map[string][]string, len(fields)),
	}
	for i, f := range fields {
		cp := Field{Name: normalizeKey(f.Name), Synonyms: make([]string, 0, len(f.Synonyms))}
		for _, s := range f.Synonyms {
			cp.Synonyms = append(cp.Synonyms, normalizeKey(s))
		}
		r.fields[i] = cp
		r.byName[cp.Name] = i

		seen := map[string]bool{}
		for _, key := range append([]string{cp.Name}, cp.Synonyms...) {
			label := titleCaser.String(strings.ReplaceAll(key, "_", " "))
			if !seen[label] {
				seen[label] = true
				r.labels[cp.Name] = append(r.labels[cp.Name], label)
			}
		}
	}
	return r
}

// LoadRegistry reads a field table from a YAML file of the form:
//
//	fields:
//	  - name: tank_id
//	    synonyms: [tank_number, unit_id]
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read file")
	}
	var doc struct {
		Fields []Field `yaml:"fields"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "registry: parse yaml")
	}
	if len(doc.Fields) == 0 {
		return nil, eris.Errorf("registry: no fields defined in %s", path)
	}
	return NewRegistry(doc.Fields), nil
}

// Fields returns the canonical field table in declaration order.
func (r *Registry) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Candidates returns the ordered raw-key candidates for a canonical field:
// the canonical name itself, then its synonyms.
func (r *Registry) Candidates(name string) []string {
	i, ok := r.byName[name]
	if !ok {
		return nil
	}
	f := r.fields[i]
	return append([]string{f.Name}, f.Synonyms...)
}

// Labels returns the derived human-readable label variants for a canonical
// field, used as the second-precedence exact match.
func (r *Registry) Labels(name string) []string {
	return r.labels[name]
}

// normalizeKey lowercases and trims a raw key so that "Tank ID", "tank id"
// and "TANK ID " all compare equal.
func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

// DefaultRegistry returns the built-in synonym table. The synonym lists cover
// both spreadsheet column headings and the flattened key names produced by
// the AI extraction response (tank_number, diameter_ft, capacity_gal, ...).
func DefaultRegistry() *Registry {
	return NewRegistry([]Field{
		{Name: "tank_id", Synonyms: []string{
			"tank id", "tank_number", "tank_no", "unit_id", "unit_number",
			"equipment_id", "vessel_id", "asset_id", "tank_tag",
		}},
		{Name: "report_number", Synonyms: []string{
			"report number", "report_no", "report_num", "document_number",
		}},
		{Name: "service", Synonyms: []string{
			"product", "contents", "product_stored", "material_stored", "tank_service",
		}},
		{Name: "inspector", Synonyms: []string{
			"inspector_name", "examiner", "certified_inspector", "api_inspector",
		}},
		{Name: "inspection_date", Synonyms: []string{
			"date_of_inspection", "date_inspected", "last_inspection", "examination_date",
		}},
		{Name: "diameter", Synonyms: []string{
			"diameter_ft", "tank_diameter", "shell_diameter",
		}},
		{Name: "height", Synonyms: []string{
			"height_ft", "tank_height", "shell_height", "overall_height",
		}},
		{Name: "capacity", Synonyms: []string{
			"capacity_gal", "tank_capacity", "volume", "nominal_capacity", "working_capacity",
		}},
		{Name: "year_built", Synonyms: []string{
			"construction_year", "year_constructed", "year_installed", "fabrication_year",
		}},
		{Name: "shell_material", Synonyms: []string{
			"material", "tank_material", "plate_material", "construction_material",
		}},
		{Name: "roof_type", Synonyms: []string{
			"roof", "tank_roof", "roof_design",
		}},
		{Name: "foundation_type", Synonyms: []string{
			"foundation", "tank_foundation", "base_type", "foundation_design",
		}},
	})
}
