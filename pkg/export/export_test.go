package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()
	data := Dataset{
		Headers: []string{"Title", "Starts"},
		Rows: []map[string]string{
			{"Title": "Algebra Review", "Starts": "2024-01-10 10:00"},
			{"Title": "Geometry", "Starts": "2024-01-11 09:00"},
		},
	}

	out, err := exporter.Render(data)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Title,Starts", lines[0])
	assert.Contains(t, lines[1], "Algebra Review")
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()
	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()
	data := Dataset{
		Headers: []string{"Title", "Starts", "Ends"},
		Rows: []map[string]string{
			{"Title": "Algebra Review", "Starts": "2024-01-10 10:00", "Ends": "2024-01-10 11:00"},
		},
	}

	out, err := exporter.Render(data, "My Schedule")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}

func TestPDFExporterRequiresHeaders(t *testing.T) {
	exporter := NewPDFExporter()
	_, err := exporter.Render(Dataset{}, "")
	require.Error(t, err)
}
