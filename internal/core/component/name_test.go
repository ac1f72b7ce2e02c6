package component

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewName_Validation(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		className string
		wantErr   error
	}{
		{name: "valid", namespace: "com.example.plugin", className: "MainActivity"},
		{name: "missing namespace", className: "MainActivity", wantErr: ErrEmptyNamespace},
		{name: "missing class", namespace: "com.example.plugin", wantErr: ErrEmptyClassName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := NewName(tt.namespace, tt.className)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, n.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.namespace, n.Namespace)
			assert.Equal(t, tt.className, n.ClassName)
			assert.False(t, n.IsPartial())
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Name
		wantErr error
	}{
		{input: "com.host.app/ContainerActivityA", want: MustName("com.host.app", "ContainerActivityA")},
		{input: "MainActivity", want: ClassOnly("MainActivity")},
		{input: "  MainActivity  ", want: ClassOnly("MainActivity")},
		{input: "ns/pkg/Inner", want: Name{Namespace: "ns", ClassName: "pkg/Inner"}},
		{input: "", wantErr: ErrEmptyClassName},
		{input: "/Main", wantErr: ErrEmptyNamespace},
		{input: "ns/", wantErr: ErrEmptyClassName},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestName_PartialAndQualify(t *testing.T) {
	partial := ClassOnly("MainActivity")
	assert.True(t, partial.IsPartial())
	assert.Equal(t, "MainActivity", partial.String())

	full := partial.WithNamespace("com.example.plugin")
	assert.Equal(t, MustName("com.example.plugin", "MainActivity"), full)
	assert.True(t, partial.IsPartial(), "WithNamespace must not mutate the receiver")
}

func TestName_Compare(t *testing.T) {
	a := MustName("a", "Z")
	b := MustName("b", "A")
	c := MustName("b", "B")

	assert.Negative(t, a.Compare(b))
	assert.Negative(t, b.Compare(c))
	assert.Positive(t, c.Compare(b))
	assert.Zero(t, a.Compare(a))
}

func TestMustName_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { MustName("", "Main") })
}

// TestName_PropertyBased_StringParseRoundTrip checks that the text form of
// any fully qualified name parses back to the same value
func TestName_PropertyBased_StringParseRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		namespace := rapid.StringMatching(`[a-z][a-z0-9.]{0,20}`).Draw(t, "namespace")
		className := rapid.StringMatching(`[A-Z][A-Za-z0-9$]{0,20}`).Draw(t, "className")

		n := MustName(namespace, className)
		parsed, err := Parse(n.String())
		require.NoError(t, err)
		assert.Equal(t, n, parsed)
	})
}
