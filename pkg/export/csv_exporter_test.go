package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRenderKeepsAccentedNames(t *testing.T) {
	exporter := NewCSVExporter()

	payload, err := exporter.Render(Dataset{
		Headers: []string{"Eleve", "Statut"},
		Rows: []map[string]string{
			{"Eleve": "Héloïse Lefèvre", "Statut": "present"},
		},
	})
	require.NoError(t, err)

	out := string(payload)
	assert.True(t, strings.HasPrefix(out, "\ufeff"), "expected UTF-8 BOM prefix")
	assert.Contains(t, out, "Héloïse Lefèvre")
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}
