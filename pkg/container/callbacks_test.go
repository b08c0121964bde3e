package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBuiltin(t *testing.T) {
	r := NewCallbackRegistry()
	fn, err := r.Resolve("show_network")
	require.NoError(t, err)
	assert.NotNil(t, fn)
}

func TestResolveUnknownBuiltin(t *testing.T) {
	r := NewCallbackRegistry()
	_, err := r.Resolve("does_not_exist")
	assert.Error(t, err)
}

func TestResolveUnderscorePrefixRejected(t *testing.T) {
	r := NewCallbackRegistry()
	_, err := r.Resolve("_private")
	assert.Error(t, err)
}

func TestResolveQualifiedRequiresRegistration(t *testing.T) {
	r := NewCallbackRegistry()
	_, err := r.Resolve("myapp.hook")
	assert.Error(t, err)

	called := false
	r.Register("myapp.hook", func(ctx context.Context, h *Handle) error {
		called = true
		return nil
	})
	fn, err := r.Resolve("myapp.hook")
	require.NoError(t, err)
	require.NoError(t, fn(context.Background(), nil))
	assert.True(t, called)
}

func TestResolveQualifiedRelativeRejected(t *testing.T) {
	r := NewCallbackRegistry()
	_, err := r.Resolve(".hook")
	assert.Error(t, err)
}

func TestParseCallspec(t *testing.T) {
	r := NewCallbackRegistry()
	cs, err := r.ParseCallspec("pre_start:show_network")
	require.NoError(t, err)
	assert.Equal(t, Pre, cs.Part)
	assert.Equal(t, EventStart, cs.Event)
	assert.NotNil(t, cs.Callback)
}

func TestParseCallspecMalformed(t *testing.T) {
	r := NewCallbackRegistry()
	cases := []string{
		"no-colon-here",
		"preonly:show_network",
		"pre_bogus:show_network",
		"bogus_start:show_network",
	}
	for _, c := range cases {
		_, err := r.ParseCallspec(c)
		assert.Error(t, err, c)
	}
}
