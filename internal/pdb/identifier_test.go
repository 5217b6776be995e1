package pdb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Identifier
		wantErr bool
	}{
		{name: "lowercase", input: "4hhb", want: "4HHB"},
		{name: "already upper", input: "1CRN", want: "1CRN"},
		{name: "mixed with spaces", input: "  1cRn ", want: "1CRN"},
		{name: "extended id", input: "pdb_00001crn", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
		{name: "path traversal", input: "../etc", wantErr: true},
		{name: "non ascii", input: "1çrn", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIdentifier(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var ie *InvalidIdentifierError
				assert.True(t, errors.As(err, &ie))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSourceURL(t *testing.T) {
	tests := []struct {
		name     string
		template string
		id       Identifier
		want     string
		wantErr  bool
	}{
		{
			name: "default template",
			id:   "4HHB",
			want: "https://files.rcsb.org/download/4HHB.pdb",
		},
		{
			name:     "custom template",
			template: "http://localhost:8080/files/{ID}.pdb",
			id:       "1CRN",
			want:     "http://localhost:8080/files/1CRN.pdb",
		},
		{
			name:     "missing placeholder",
			template: "https://example.com/structure.pdb",
			id:       "1CRN",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SourceURL(tt.template, tt.id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
