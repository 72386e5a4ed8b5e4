package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/iasmc/pkg/codegen"
	"github.com/xplshn/iasmc/pkg/config"
	"github.com/xplshn/iasmc/pkg/util"
)

func init() { util.SetOutput(io.Discard) }

func TestCompileInputsParseOnlyDumpsUnloweredTrees(t *testing.T) {
	cfg := config.NewConfig()

	_, err := compileInputs(nil, []string{"1*(2-x)"}, false, cfg)
	assert.True(t, codegen.IsUnsupported(err))

	units, err := compileInputs(nil, []string{"1*(2-x)"}, true, cfg)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Nil(t, units[0].IR)
	assert.Contains(t, units[0].AST.Dump(), "Identifier x")
}

func TestCompileInputsRepeatedEval(t *testing.T) {
	units, err := compileInputs(nil, []string{"1 + 2", "3"}, false, config.NewConfig())
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "<eval:1>", units[0].Name)
	assert.Equal(t, "<eval:2>", units[1].Name)
	assert.Equal(t, []string{"LOAD $0 #3"}, units[1].IR.Lines())

	_, err = compileInputs([]string{"a.expr"}, []string{"1"}, false, config.NewConfig())
	assert.ErrorContains(t, err, "cannot be combined")

	_, err = compileInputs(nil, nil, false, config.NewConfig())
	assert.ErrorContains(t, err, "no input files")
}

func TestEvalName(t *testing.T) {
	assert.Equal(t, "<eval>", evalName(0, 1))
	assert.Equal(t, "<eval:3>", evalName(2, 3))
}
