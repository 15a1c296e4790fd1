package datasets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveVariants(t *testing.T) {
	canonical, err := Resolve("CIFAR10")
	require.NoError(t, err)
	for _, name := range []string{"cifar10", "CIFAR10", "Cifar10", "cifar 10", " CIFAR 10 ", "C I F A R 1 0"} {
		spec, err := Resolve(name)
		require.NoErrorf(t, err, "Resolve(%q)", name)
		assert.Samef(t, canonical, spec, "Resolve(%q)", name)
	}

	fashion, err := Resolve("Fashion MNIST")
	require.NoError(t, err)
	assert.Equal(t, "FashionMNIST", fashion.Name)
	assert.Equal(t, 10, fashion.NumClasses())
}

func TestResolveUnknown(t *testing.T) {
	_, err := Resolve("imagenet")
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `"imagenet"`)

	// The suggestions between brackets must all be canonical catalog names.
	open, closing := strings.Index(msg, "["), strings.Index(msg, "]")
	require.Greater(t, closing, open)
	suggestions := strings.Split(msg[open+1:closing], ", ")
	require.NotEmpty(t, suggestions)
	assert.LessOrEqual(t, len(suggestions), maxSuggestions)
	for _, suggestion := range suggestions {
		assert.Contains(t, Names(), suggestion)
	}
}

func TestResolveSuggestsClosest(t *testing.T) {
	// A near-miss should put the intended dataset first.
	_, err := Resolve("cfar100")
	require.Error(t, err)
	msg := err.Error()
	open := strings.Index(msg, "[")
	require.GreaterOrEqual(t, open, 0)
	assert.True(t, strings.HasPrefix(msg[open+1:], "CIFAR100"), "suggestions: %s", msg)
}

func TestMustResolvePanics(t *testing.T) {
	assert.NotPanics(t, func() { MustResolve("mnist") })
	assert.Panics(t, func() { MustResolve("no-such-dataset") })
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Equal(t, []string{"MNIST", "FashionMNIST", "KMNIST", "CIFAR10", "CIFAR100"}, names)
}
