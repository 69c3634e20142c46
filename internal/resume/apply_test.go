package resume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_Dispatch(t *testing.T) {
	e := newEditor()
	doc := threeModules()

	out, err := e.Apply(doc, Mutation{Op: OpMoveModule, ID: "c", Direction: "up"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, sortedIDs(out))

	idx := 0
	out, err = e.Apply(out, Mutation{Op: OpReorderModule, ID: "b", Index: &idx})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, sortedIDs(out))

	out, err = e.Apply(out, Mutation{Op: OpSetTitle, Value: strPtr("新标题")})
	require.NoError(t, err)
	assert.Equal(t, "新标题", out.Title)

	out, err = e.Apply(out, Mutation{Op: OpAddModule})
	require.NoError(t, err)
	assert.Len(t, out.Modules, 4)
	assert.Equal(t, DefaultModuleTitle, out.Modules[3].Title)

	out, err = e.Apply(out, Mutation{Op: OpRemoveModule, ID: "a"})
	require.NoError(t, err)
	assert.Len(t, out.Modules, 3)

	assert.Len(t, doc.Modules, 3, "input untouched")
	assert.Equal(t, "Resume", doc.Title)
}

func TestApply_MissingArguments(t *testing.T) {
	e := newEditor()
	doc := threeModules()

	for _, m := range []Mutation{
		{Op: OpUpdateInfo, ID: "x"},
		{Op: OpUpdateModule, ID: "a"},
		{Op: OpMoveModule, ID: "a", Direction: "left"},
		{Op: OpReorderModule, ID: "a"},
		{Op: OpSetTitle},
		{Op: OpSetAvatar},
	} {
		out, err := e.Apply(doc, m)
		assert.Error(t, err, m.Op)
		assert.Equal(t, doc, out, m.Op)
	}

	_, err := e.Apply(doc, Mutation{Op: "explode"})
	assert.ErrorIs(t, err, ErrUnknownOp)
}

func TestApply_UnknownIDIsNoop(t *testing.T) {
	e := newEditor()
	doc := threeModules()
	out, err := e.Apply(doc, Mutation{Op: OpUpdateModule, ID: "zzz", Module: &ModulePatch{Title: strPtr("x")}})
	require.NoError(t, err)
	assert.Equal(t, doc, out)
}
