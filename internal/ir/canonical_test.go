package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"zeta":  1,
		"alpha": "x",
		"Beta":  true,
	})
	require.NoError(t, err)
	// Uppercase sorts before lowercase in UTF-16 code unit order.
	assert.Equal(t, `{"Beta":true,"alpha":"x","zeta":1}`, string(got))
}

func TestMarshalCanonicalNoHTMLEscaping(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{"expr": "a -> b & c"})
	require.NoError(t, err)
	assert.Equal(t, `{"expr":"a -> b & c"}`, string(got))
}

func TestMarshalCanonicalRejectsFloatsAndNull(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": 1.5})
	require.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"x": nil})
	require.Error(t, err)
}

func TestMarshalCanonicalNestedArrays(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"tuples": []any{
			[]any{"Event$0", "Time$1"},
			[]any{"Event$1", "Time$2"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"tuples":[["Event$0","Time$1"],["Event$1","Time$2"]]}`, string(got))
}

func TestDigestStableAcrossKeyOrder(t *testing.T) {
	a := map[string]any{"k1": "v1", "k2": []string{"a", "b"}}
	b := map[string]any{"k2": []string{"a", "b"}, "k1": "v1"}

	da, err := Digest(a)
	require.NoError(t, err)
	db, err := Digest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
	assert.Len(t, da, 64)
}
