package result

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPathStringRendering(t *testing.T) {
	require.Equal(t, "", Path{}.String())
	require.Equal(t, "users", Path{"users"}.String())
	require.Equal(t, "users[2].name", Path{"users", 2, "name"}.String())
	require.Equal(t, "matrix[0][1]", Path{"matrix", 0, 1}.String())
}

func TestPathAppendDoesNotAliasParent(t *testing.T) {
	base := Path{"a"}
	left := base.Append("b")
	right := base.Append("c")
	require.Equal(t, Path{"a", "b"}, left)
	require.Equal(t, Path{"a", "c"}, right)
	require.Equal(t, Path{"a"}, base)
}

func TestSetKeepsFirstAssignmentOrder(t *testing.T) {
	m := NewOrdered(2)
	Set(m, "b", 1)
	Set(m, "a", 2)
	Set(m, "b", 3)
	require.Equal(t, []string{"b", "a"}, m.Order)
	require.Equal(t, 3, m.Data["b"])
}

func TestIsNullish(t *testing.T) {
	require.True(t, IsNullish(nil))

	var m map[string]any
	require.True(t, IsNullish(m))

	var p *int
	require.True(t, IsNullish(any(p)))

	var s []any
	require.True(t, IsNullish(s))

	require.False(t, IsNullish(0))
	require.False(t, IsNullish(""))
	require.False(t, IsNullish([]any{}))
	require.False(t, IsNullish(map[string]any{}))
}
