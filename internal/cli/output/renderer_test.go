package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/catrace/internal/pdb"
)

func newTestRenderer(mode Mode) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, false, mode), out, errOut
}

func TestRenderer_EffectiveMode(t *testing.T) {
	tests := []struct {
		mode Mode
		want Mode
	}{
		{ModeAuto, ModeText},
		{"", ModeText},
		{ModeText, ModeText},
		{ModeJSON, ModeJSON},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r, _, _ := newTestRenderer(tt.mode)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestNewRenderer_BufferIsNotTTY(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.False(t, r.IsTTY())
}

func TestRenderer_TextOutputIsPlainWithoutTTY(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText)

	r.Header("Run history")
	r.Success("done")
	r.Muted("quiet")
	r.StatusLine("Artifact", "1CRN.pdb")
	r.Warning("careful")
	r.Error("broken")

	assert.Equal(t, "Run history\ndone\nquiet\nArtifact: 1CRN.pdb\n", out.String())
	assert.Equal(t, "warning: careful\nerror: broken\n", errOut.String())
	assert.NotContains(t, out.String(), "\x1b[")
}

func TestRenderer_StatusAndCoordinates(t *testing.T) {
	coords := pdb.Coordinates{{X: "1.000", Y: "2.000", Z: "3.000"}, {X: "4.5", Y: "-1", Z: "0"}}

	t.Run("text", func(t *testing.T) {
		r, out, errOut := newTestRenderer(ModeText)
		r.Status("tracing rays")
		r.Coordinates(coords)
		assert.Equal(t, "tracing rays\n1.000,2.000,3.000\n4.5,-1,0\n", out.String())
		assert.Empty(t, errOut.String())
		assert.Same(t, out, r.ProcessOut())
	})

	t.Run("json", func(t *testing.T) {
		r, out, errOut := newTestRenderer(ModeJSON)
		r.Status("tracing rays")
		r.Coordinates(coords)
		assert.Empty(t, out.String())
		assert.Equal(t, "tracing rays\n", errOut.String())
		assert.Same(t, errOut, r.ProcessOut())
	})
}

func TestRenderer_Table(t *testing.T) {
	r, out, _ := newTestRenderer(ModeText)
	r.Table([]string{"X", "Y", "Z"}, [][]string{{"1.000", "2.000", "3.000"}})

	got := out.String()
	assert.Contains(t, got, "1.000")
	assert.Contains(t, got, "┌")
	lines := strings.Split(strings.TrimSpace(got), "\n")
	assert.Len(t, lines, 5, "top border, header, separator, row, bottom border")
}

func TestRenderer_JSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON)
	require.NoError(t, r.JSON(map[string]int{"count": 2}))

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, 2, decoded["count"])

	assert.Error(t, r.JSON(make(chan int)))
}
