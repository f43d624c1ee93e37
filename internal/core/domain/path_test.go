package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/extbuild/internal/core/domain"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		in   string
		want domain.PathParts
	}{
		{
			in:   "app/scripts/background_bundle.js",
			want: domain.PathParts{Dir: "app/scripts", Base: "background_bundle.js", Name: "background_bundle", Ext: ".js"},
		},
		{
			in:   "x",
			want: domain.PathParts{Dir: ".", Base: "x", Name: "x", Ext: ""},
		},
		{
			in:   "src/styles/main.scss",
			want: domain.PathParts{Dir: "src/styles", Base: "main.scss", Name: "main", Ext: ".scss"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ParsePath(tt.in))
		})
	}
}
