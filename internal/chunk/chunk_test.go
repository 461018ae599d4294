package chunk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptpack/promptpack/internal/chunk"
)

func TestSplitPython(t *testing.T) {
	t.Parallel()

	source := `import os

CONFIG = {"debug": True}

def read(path):
    return os.open(path)

@staticmethod
def helper():
    pass

class Reader:
    def __init__(self):
        self.count = 0
`

	chunks, err := chunk.SplitPython("app.py", []byte(source))
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	assert.Equal(t, chunk.KindOther, chunks[0].Kind)
	assert.Empty(t, chunks[0].Name)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Contains(t, chunks[0].Content, "import os")
	assert.Contains(t, chunks[0].Content, "CONFIG")

	assert.Equal(t, chunk.KindFunction, chunks[1].Kind)
	assert.Equal(t, "read", chunks[1].Name)
	assert.Equal(t, 5, chunks[1].StartLine)
	assert.Equal(t, 6, chunks[1].EndLine)

	assert.Equal(t, chunk.KindFunction, chunks[2].Kind)
	assert.Equal(t, "helper", chunks[2].Name)
	assert.Contains(t, chunks[2].Content, "@staticmethod", "decorator stays with its definition")

	assert.Equal(t, chunk.KindClass, chunks[3].Kind)
	assert.Equal(t, "Reader", chunks[3].Name)
	assert.Contains(t, chunks[3].Content, "self.count = 0")
}

func TestSplitPython_OnlyStatements(t *testing.T) {
	t.Parallel()

	chunks, err := chunk.SplitPython("conf.py", []byte("A = 1\nB = 2\n"))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, chunk.KindOther, chunks[0].Kind)
	assert.Equal(t, "A = 1\nB = 2", chunks[0].Content)
}

func TestSplitPython_Empty(t *testing.T) {
	t.Parallel()

	chunks, err := chunk.SplitPython("empty.py", nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
