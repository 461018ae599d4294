package trace_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptpack/promptpack/pkg/trace"
)

// writeProject lays out a temp project tree from relative path -> content.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	return root
}

func TestPythonExtractImports(t *testing.T) {
	t.Parallel()

	source := `import os
import os.path as osp
from collections import OrderedDict, defaultdict as dd
from ..pkg import helpers
from . import sibling
from models import *

def lazy():
    import json
    return json
`

	py := trace.NewPython()

	stmts, err := py.ExtractImports("app.py", []byte(source))
	require.NoError(t, err)
	require.Len(t, stmts, 7)

	assert.Equal(t, "os", stmts[0].Module)
	assert.Empty(t, stmts[0].Names)
	assert.False(t, stmts[0].Relative)
	assert.Equal(t, 1, stmts[0].Line)
	assert.Equal(t, []string{"os"}, stmts[0].BoundNames())

	assert.Equal(t, "os.path", stmts[1].Module)
	assert.Equal(t, []trace.ImportedName{{Local: "osp", Origin: "os.path"}}, stmts[1].Names)

	assert.Equal(t, "collections", stmts[2].Module)
	assert.Equal(t, []trace.ImportedName{
		{Local: "OrderedDict", Origin: "OrderedDict"},
		{Local: "dd", Origin: "defaultdict"},
	}, stmts[2].Names)

	assert.Equal(t, "pkg", stmts[3].Module)
	assert.True(t, stmts[3].Relative)
	assert.Equal(t, 2, stmts[3].RelativeLevel)
	assert.Equal(t, []string{"helpers"}, stmts[3].BoundNames())

	assert.Empty(t, stmts[4].Module)
	assert.True(t, stmts[4].Relative)
	assert.Equal(t, 1, stmts[4].RelativeLevel)

	assert.Equal(t, "models", stmts[5].Module)
	assert.True(t, stmts[5].Star)
	assert.Nil(t, stmts[5].BoundNames())

	assert.Equal(t, "json", stmts[6].Module)
	assert.Equal(t, 9, stmts[6].Line)
}

func TestPythonExtractImports_ParseError(t *testing.T) {
	t.Parallel()

	py := trace.NewPython()

	_, err := py.ExtractImports("bad.py", []byte("def broken(:\n    pass\n"))
	require.Error(t, err)

	var perr *trace.ParseError

	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "bad.py", perr.Path)
	assert.Positive(t, perr.Line)
}

func TestBoundNames(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		stmt trace.ImportStatement
		want []string
	}{
		{"plain import binds the first segment", trace.ImportStatement{Module: "os.path"}, []string{"os"}},
		{"explicit bindings win", trace.ImportStatement{
			Module: "m", Names: []trace.ImportedName{{Local: "x", Origin: "x"}},
		}, []string{"x"}},
		{"star binds an unknown surface", trace.ImportStatement{Module: "m", Star: true}, nil},
		{"relative side-effect import binds nothing", trace.ImportStatement{Module: "./polyfill.js", Relative: true}, nil},
		{"empty specifier binds nothing", trace.ImportStatement{}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, tc.stmt.BoundNames())
		})
	}
}

func TestPythonUsedSymbols(t *testing.T) {
	t.Parallel()

	source := `import os
import json
from typing import List, Optional

def read(path: Optional[str]) -> List[str]:
    return os.listdir(path)
`

	py := trace.NewPython()

	stmts, err := py.ExtractImports("app.py", []byte(source))
	require.NoError(t, err)

	used, err := py.UsedSymbols("app.py", []byte(source), stmts)
	require.NoError(t, err)

	assert.True(t, used["os"])
	assert.False(t, used["json"])
	assert.True(t, used["List"], "names in type annotations count as used")
	assert.True(t, used["Optional"])
}

func TestPythonResolve_AbsoluteFileAndPackage(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"app/main.py":            "",
		"app/utils.py":           "",
		"app/models/__init__.py": "",
	})

	py := trace.NewPython()
	rctx := trace.ResolveContext{ProjectRoot: root, SearchRoots: []string{root}}
	owner := filepath.Join(root, "app", "main.py")

	ref := py.Resolve(trace.ImportStatement{SourceFile: owner, Module: "app.utils"}, rctx)
	assert.Equal(t, trace.KindInternalFile, ref.Kind)
	assert.Equal(t, filepath.Join(root, "app", "utils.py"), ref.Path)

	ref = py.Resolve(trace.ImportStatement{SourceFile: owner, Module: "app.models"}, rctx)
	assert.Equal(t, trace.KindInternalPackage, ref.Kind)
	assert.Equal(t, filepath.Join(root, "app", "models", "__init__.py"), ref.Path)
}

func TestPythonResolve_SourceRootOrder(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"common.py":     "",
		"src/common.py": "",
	})

	py := trace.NewPython()
	rctx := trace.ResolveContext{
		ProjectRoot: root,
		SearchRoots: []string{root, filepath.Join(root, "src")},
	}

	// First match by declared search order wins; no backtracking.
	ref := py.Resolve(trace.ImportStatement{SourceFile: filepath.Join(root, "x.py"), Module: "common"}, rctx)
	assert.Equal(t, trace.KindInternalFile, ref.Kind)
	assert.Equal(t, filepath.Join(root, "common.py"), ref.Path)
}

func TestPythonResolve_Relative(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		"pkg/__init__.py":     "",
		"pkg/other.py":        "",
		"pkg/sub/__init__.py": "",
		"pkg/sub/mod.py":      "",
	})

	py := trace.NewPython()
	rctx := trace.ResolveContext{ProjectRoot: root, SearchRoots: []string{root}}
	owner := filepath.Join(root, "pkg", "sub", "mod.py")

	// from ..other import x -> pkg/other.py
	ref := py.Resolve(trace.ImportStatement{
		SourceFile: owner, Module: "other", Relative: true, RelativeLevel: 2,
	}, rctx)
	assert.Equal(t, trace.KindInternalFile, ref.Kind)
	assert.Equal(t, filepath.Join(root, "pkg", "other.py"), ref.Path)

	// from . import x -> pkg/sub/__init__.py
	ref = py.Resolve(trace.ImportStatement{
		SourceFile: owner, Module: "", Relative: true, RelativeLevel: 1,
	}, rctx)
	assert.Equal(t, trace.KindInternalPackage, ref.Kind)
	assert.Equal(t, filepath.Join(root, "pkg", "sub", "__init__.py"), ref.Path)

	// Walking above the project root is never followed.
	ref = py.Resolve(trace.ImportStatement{
		SourceFile: owner, Module: "secrets", Relative: true, RelativeLevel: 5,
	}, rctx)
	assert.Equal(t, trace.KindUnresolved, ref.Kind)

	// Relative target that does not exist.
	ref = py.Resolve(trace.ImportStatement{
		SourceFile: owner, Module: "missing", Relative: true, RelativeLevel: 2,
	}, rctx)
	assert.Equal(t, trace.KindUnresolved, ref.Kind)
}

func TestPythonResolve_Classification(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{"main.py": ""})

	py := trace.NewPython()
	rctx := trace.ResolveContext{ProjectRoot: root, SearchRoots: []string{root}}
	owner := filepath.Join(root, "main.py")

	ref := py.Resolve(trace.ImportStatement{SourceFile: owner, Module: "os.path"}, rctx)
	assert.Equal(t, trace.KindStdlib, ref.Kind)

	ref = py.Resolve(trace.ImportStatement{SourceFile: owner, Module: "numpy"}, rctx)
	assert.Equal(t, trace.KindExternal, ref.Kind)
}
