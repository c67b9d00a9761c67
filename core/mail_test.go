package core_test

import (
	"io/fs"
	"path"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinetwork/cin/backend/assets"
	"github.com/cinetwork/cin/backend/core"
)

func TestParseEmailTemplates(t *testing.T) {
	require.NoError(t, core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, "https://cin.test", true))

	fps, err := fs.Glob(assets.FS, path.Join(assets.EmailTemplatesDir, "*.txt"))
	require.NoError(t, err)

	data := map[string]interface{}{
		"Username":     "ada",
		"UID":          "uid",
		"Token":        "token",
		"Type":         "mission_creator",
		"Organization": "Green Lagos",
		"Status":       "approved",
		"Note":         "Welcome",
	}
	names := 0
	for _, fp := range fps {
		name := strings.TrimSuffix(path.Base(fp), ".txt")
		if strings.HasPrefix(name, "_") {
			continue
		}
		names++
		t.Run(name, func(t *testing.T) {
			msg := &core.EmailMessage{TemplateName: name, TemplateData: data}
			require.NoError(t, msg.Render())
			assert.Contains(t, msg.TextContent, "https://cin.test")
			assert.NotEmpty(t, msg.HTMLContent)
			assert.Contains(t, msg.HTMLContent, "<html")
		})
	}
	assert.Equal(t, 2, names)
}

func TestParseEmailTemplates_errors(t *testing.T) {
	tests := []struct {
		name string
		fsys fs.FS
	}{
		{name: "no templates", fsys: fstest.MapFS{}},
		{
			name: "missing layout",
			fsys: fstest.MapFS{"email/welcome.txt": {Data: []byte(`{{define "content"}}hi{{end}}`)}},
		},
		{
			name: "broken template",
			fsys: fstest.MapFS{
				"email/_base.txt":   {Data: []byte(`{{template "content" .}}`)},
				"email/welcome.txt": {Data: []byte(`{{define "content"}}{{.Data.Name{{end}}`)},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, core.ParseEmailTemplates(tt.fsys, "email", "", false))
		})
	}
}
