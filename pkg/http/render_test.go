package http

import (
	"bytes"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateRenderer(t *testing.T) {
	fsys := fstest.MapFS{
		"templates/layout.html": {Data: []byte(`{{define "layout"}}<main>{{template "content" .}}</main>{{end}}`)},
		"templates/index.html":  {Data: []byte(`{{define "content"}}hello {{.}}{{end}}`)},
		"templates/models.html": {Data: []byte(`{{define "content"}}models {{len .}}{{end}}`)},
	}
	r, err := NewTemplateRenderer(fsys, []string{"templates/layout.html"},
		[]string{"templates/index.html", "templates/models.html"}, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, "index.html", "IBM", nil))
	assert.Equal(t, "<main>hello IBM</main>", buf.String())

	buf.Reset()
	require.NoError(t, r.Render(&buf, "models.html", []int{1, 2}, nil))
	assert.Equal(t, "<main>models 2</main>", buf.String())

	assert.Error(t, r.Render(&buf, "missing.html", nil, nil))
}
