package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRendersOrderedRows(t *testing.T) {
	exporter := NewCSVExporter()

	data := Dataset{
		Headers: []string{"week", "interactions", "correct"},
		Rows: [][]string{
			{"TOTAL", "3", "1"},
			{"2026-08-23", "2", "1"},
		},
	}

	out, err := exporter.Render(data)
	require.NoError(t, err)
	assert.Equal(t, "week,interactions,correct\nTOTAL,3,1\n2026-08-23,2,1\n", string(out))
}

func TestCSVExporterRejectsMissingHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}

func TestCSVExporterRejectsRaggedRow(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{
		Headers: []string{"a", "b"},
		Rows:    [][]string{{"only-one"}},
	})
	require.Error(t, err)
}

func TestPDFExporterRendersDocument(t *testing.T) {
	exporter := NewPDFExporter()

	out, err := exporter.Render(Dataset{
		Headers: []string{"user", "events"},
		Rows:    [][]string{{"u1", "4"}},
	}, "Usage Report")
	require.NoError(t, err)
	assert.True(t, len(out) > 0)
	assert.Equal(t, "%PDF", string(out[:4]))
}
