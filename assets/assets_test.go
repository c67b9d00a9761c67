package assets

import (
	"io/fs"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_emailLayouts(t *testing.T) {
	for _, name := range []string{"_base.txt", "_base.gohtml"} {
		t.Run(name, func(t *testing.T) {
			info, err := fs.Stat(FS, path.Join(EmailTemplatesDir, name))
			require.NoError(t, err)
			assert.NotZero(t, info.Size())
		})
	}

	_, err := fs.Stat(FS, CommonPasswordsFile)
	assert.NoError(t, err)
}
