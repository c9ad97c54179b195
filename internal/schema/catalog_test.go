package schema

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The shipped catalog must always load: a broken template file would
// otherwise only surface at server startup.
func TestLoadDir_ShippedCatalog(t *testing.T) {
	const dir = "../../templates"
	if _, err := os.Stat(dir); err != nil {
		t.Skipf("catalog not present: %v", err)
	}

	reg := NewRegistry()
	require.NoError(t, LoadDir(reg, dir))

	names := reg.TemplateNames()
	assert.Contains(t, names, "kuendigung_vermieter")
	assert.Contains(t, names, "mieterhoehung")
	assert.Contains(t, names, "mietmahnung")
	assert.Contains(t, names, "kautionsvereinbarung")

	for _, name := range names {
		s, err := reg.Template(name)
		require.NoError(t, err)
		assert.NotEmpty(t, s.FieldOrder, "template %q has no fields", name)
		require.NoError(t, s.Validate(), "template %q", name)
	}
}
