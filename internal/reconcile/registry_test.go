package reconcile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry([]Field{
		{Name: "Tank_ID", Synonyms: []string{" Tank_Number ", "unit_id"}},
		{Name: "service"},
	})

	t.Run("names and synonyms are normalized", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []string{"tank_id", "tank_number", "unit_id"}, reg.Candidates("tank_id"))
	})

	t.Run("label variants derived from every key", func(t *testing.T) {
		t.Parallel()
		labels := reg.Labels("tank_id")
		assert.Contains(t, labels, "Tank Id")
		assert.Contains(t, labels, "Tank Number")
		assert.Contains(t, labels, "Unit Id")
	})

	t.Run("unknown field has no candidates", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, reg.Candidates("nope"))
		assert.Nil(t, reg.Labels("nope"))
	})

	t.Run("field without synonyms still gets its own label", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []string{"service"}, reg.Candidates("service"))
		assert.Equal(t, []string{"Service"}, reg.Labels("service"))
	})
}

func TestDefaultRegistry_CoversRecordSchema(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry()
	for _, name := range []string{
		"tank_id", "report_number", "service", "inspector", "inspection_date",
		"diameter", "height", "capacity", "year_built",
		"shell_material", "roof_type", "foundation_type",
	} {
		assert.NotEmpty(t, reg.Candidates(name), "missing canonical field %s", name)
	}
}

func TestLoadRegistry(t *testing.T) {
	t.Parallel()

	t.Run("valid file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "synonyms.yaml")
		doc := `fields:
  - name: tank_id
    synonyms: [tank_number]
  - name: service
`
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

		reg, err := LoadRegistry(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"tank_id", "tank_number"}, reg.Candidates("tank_id"))
		assert.Equal(t, []string{"service"}, reg.Candidates("service"))
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("empty field table", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte("fields: []\n"), 0o644))
		_, err := LoadRegistry(path)
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("fields: {nope"), 0o644))
		_, err := LoadRegistry(path)
		assert.Error(t, err)
	})
}

func TestRegistry_FieldsReturnsCopy(t *testing.T) {
	t.Parallel()

	reg := NewRegistry([]Field{{Name: "tank_id"}})
	fields := reg.Fields()
	fields[0].Name = "mutated"
	assert.Equal(t, "tank_id", reg.Fields()[0].Name)
}
