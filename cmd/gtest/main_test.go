package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/iasmc/pkg/util"
)

func init() { util.SetOutput(io.Discard) }

func TestGoldenFilesAreCurrent(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "testdata", "*.expr"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			data, err := os.ReadFile(getJSONPath(file))
			require.NoError(t, err)
			var golden Golden
			require.NoError(t, json.Unmarshal(data, &golden))
			assert.NotEmpty(t, golden.Hash)

			actual, err := compileFile(file)
			require.NoError(t, err)
			if diff := cmp.Diff(&golden, actual); diff != "" {
				t.Errorf("golden mismatch (-golden +actual):\n%s", diff)
			}
		})
	}
}

func TestCompareResultsNotesChangedSource(t *testing.T) {
	expected := &Golden{Hash: "1", Target: "iasm", Lines: []string{"LOAD $0 #1"}}
	actual := &Golden{Hash: "2", Target: "iasm", Lines: []string{"LOAD $0 #1"}}

	result := compareResults("a.expr", expected, actual, 0)
	assert.Equal(t, "PASS", result.Status)
	assert.Contains(t, result.Message, "source changed since the golden file was generated")

	actual.Target = "qbe"
	assert.Equal(t, "SKIP", compareResults("a.expr", expected, actual, 0).Status)
}
