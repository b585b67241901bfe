package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-dev/halcyon/common"
)

// Filter is the activation-test extension point.
type Filter interface {
	Name() string
}

type namedFilter struct{ name string }

func (f *namedFilter) Name() string { return f.name }

func newFilterCtor(name string) func() *namedFilter {
	return func() *namedFilter { return &namedFilter{name: name} }
}

func activationEnv(t *testing.T) *Environment {
	t.Helper()
	env := newTestEnv(t, map[string]string{
		resourcePath((*Filter)(nil)): "first = acttest.First\nsecond = acttest.Second\ncustom = acttest.Custom\ncacheonly = acttest.CacheOnly\nconsumer = acttest.Consumer\n",
	})
	require.NoError(t, env.RegisterPoint((*Filter)(nil)))
	require.NoError(t, env.RegisterClass("acttest.First", newFilterCtor("first"),
		WithActivate(Activation{Groups: []string{"provider"}, Order: 10})))
	require.NoError(t, env.RegisterClass("acttest.Second", newFilterCtor("second"),
		WithActivate(Activation{Groups: []string{"provider"}, Order: 20})))
	require.NoError(t, env.RegisterClass("acttest.Custom", newFilterCtor("custom")))
	require.NoError(t, env.RegisterClass("acttest.CacheOnly", newFilterCtor("cacheonly"),
		WithActivate(Activation{Groups: []string{"provider"}, Keys: []string{"cache"}, Order: 5})))
	require.NoError(t, env.RegisterClass("acttest.Consumer", newFilterCtor("consumer"),
		WithActivate(Activation{Groups: []string{"consumer"}, Order: 1})))
	return env
}

func filterLoader(t *testing.T, env *Environment) *Loader {
	t.Helper()
	loader, err := For(env, (*Filter)(nil))
	require.NoError(t, err)
	return loader
}

func filterNames(exts []any) []string {
	names := make([]string, 0, len(exts))
	for _, e := range exts {
		names = append(names, e.(Filter).Name())
	}
	return names
}

func testURL(params map[string]string) *common.URL {
	return common.New("tcp", "host", 7000, "svc", params)
}

func TestActivateOrdering(t *testing.T) {
	env := activationEnv(t)
	loader := filterLoader(t, env)

	exts, err := loader.Activate(testURL(nil), nil, "provider")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, filterNames(exts))
}

func TestActivateGroupFiltering(t *testing.T) {
	env := activationEnv(t)
	loader := filterLoader(t, env)

	exts, err := loader.Activate(testURL(nil), nil, "consumer")
	require.NoError(t, err)
	assert.Equal(t, []string{"consumer"}, filterNames(exts))
}

func TestActivateTriggerKeys(t *testing.T) {
	env := activationEnv(t)
	loader := filterLoader(t, env)

	// Without the cache parameter the key-gated entry stays out.
	exts, err := loader.Activate(testURL(nil), nil, "provider")
	require.NoError(t, err)
	assert.NotContains(t, filterNames(exts), "cacheonly")

	// A matching parameter with a non-empty value activates it, ordered
	// ahead of the others by its lower order.
	exts, err = loader.Activate(testURL(map[string]string{"cache": "lru"}), nil, "provider")
	require.NoError(t, err)
	assert.Equal(t, []string{"cacheonly", "first", "second"}, filterNames(exts))

	// Suffix match: a key "<anything>.cache" also triggers.
	exts, err = loader.Activate(testURL(map[string]string{"methodA.cache": "lru"}), nil, "provider")
	require.NoError(t, err)
	assert.Contains(t, filterNames(exts), "cacheonly")

	// An empty value does not trigger.
	exts, err = loader.Activate(testURL(map[string]string{"cache": ""}), nil, "provider")
	require.NoError(t, err)
	assert.NotContains(t, filterNames(exts), "cacheonly")
}

func TestActivateRemoval(t *testing.T) {
	env := activationEnv(t)
	loader := filterLoader(t, env)

	exts, err := loader.Activate(testURL(nil), []string{"-first"}, "provider")
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, filterNames(exts))
}

func TestActivateRemoveDefault(t *testing.T) {
	env := activationEnv(t)
	loader := filterLoader(t, env)

	exts, err := loader.Activate(testURL(nil), []string{"-default", "custom", "second"}, "provider")
	require.NoError(t, err)
	assert.Equal(t, []string{"custom", "second"}, filterNames(exts))
}

func TestActivateDefaultPlaceholder(t *testing.T) {
	env := activationEnv(t)
	loader := filterLoader(t, env)

	exts, err := loader.Activate(testURL(nil), []string{"custom", "default"}, "provider")
	require.NoError(t, err)
	assert.Equal(t, []string{"custom", "first", "second"}, filterNames(exts))
}

func TestActivateUserNamesAppendAfterAuto(t *testing.T) {
	env := activationEnv(t)
	loader := filterLoader(t, env)

	exts, err := loader.Activate(testURL(nil), []string{"custom"}, "provider")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "custom"}, filterNames(exts))
}

func TestActivateNegatedUserName(t *testing.T) {
	env := activationEnv(t)
	loader := filterLoader(t, env)

	exts, err := loader.Activate(testURL(nil), []string{"custom", "-custom"}, "provider")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, filterNames(exts))
}

func TestActivateKeyVariant(t *testing.T) {
	env := activationEnv(t)
	loader := filterLoader(t, env)

	url := testURL(map[string]string{"service.filter": "custom,-first"})
	exts, err := loader.ActivateKey(url, "service.filter", "provider")
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "custom"}, filterNames(exts))

	exts, err = loader.ActivateValue(testURL(nil), "service.filter")
	require.NoError(t, err)
	// Empty group matches every activatable entry.
	assert.Equal(t, []string{"consumer", "first", "second"}, filterNames(exts))
}

func TestActivateUnknownUserName(t *testing.T) {
	env := activationEnv(t)
	loader := filterLoader(t, env)

	_, err := loader.Activate(testURL(nil), []string{"nosuch"}, "provider")
	assert.Error(t, err)
}
