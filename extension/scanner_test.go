package extension

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineGrammar(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		resourcePath((*Robot)(nil)): `
# leading comment
optimusPrime = exttest.OptimusPrime   # trailing comment

   bumblebee=exttest.Bumblebee
#commented = exttest.SilentRobot
   `,
	})
	registerRobots(t, env)
	loader := robotLoader(t, env)

	assert.Equal(t, []string{"bumblebee", "optimusPrime"}, loader.Names())
	assert.False(t, loader.Has("commented"))
}

func TestDirectoryPrecedence(t *testing.T) {
	// The internal directory binds first; the services directory cannot
	// rebind the name, and its conflicting line becomes a captured
	// failure.
	fqn := fqnOf((*Robot)(nil))
	env := newTestEnv(t, map[string]string{
		"META-INF/halcyon/internal/" + fqn: "hero = exttest.OptimusPrime\n",
		"META-INF/services/" + fqn:         "hero = exttest.Bumblebee\n",
	})
	registerRobots(t, env)
	loader := robotLoader(t, env)

	hero, err := loader.Get("hero")
	require.NoError(t, err)
	assert.IsType(t, &OptimusPrime{}, hero)

	// The duplicate surfaces when something asks for the failing literal.
	_, err = loader.Get("exttest.Bumblebee")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestSameClassInTwoDirectoriesIsIdempotent(t *testing.T) {
	fqn := fqnOf((*Robot)(nil))
	env := newTestEnv(t, map[string]string{
		"META-INF/halcyon/" + fqn:  "optimusPrime = exttest.OptimusPrime\n",
		"META-INF/services/" + fqn: "optimusPrime = exttest.OptimusPrime\n",
	})
	registerRobots(t, env)
	loader := robotLoader(t, env)

	robot, err := loader.Get("optimusPrime")
	require.NoError(t, err)
	assert.NotNil(t, robot)
}

func TestMultipleRootsMerge(t *testing.T) {
	path := resourcePath((*Robot)(nil))
	rootA := fstest.MapFS{path: &fstest.MapFile{Data: []byte("optimusPrime = exttest.OptimusPrime\n")}}
	rootB := fstest.MapFS{path: &fstest.MapFile{Data: []byte("bumblebee = exttest.Bumblebee\n")}}

	env := NewEnvironment(WithRoots(rootA, rootB))
	registerRobots(t, env)
	loader := robotLoader(t, env)

	assert.Equal(t, []string{"bumblebee", "optimusPrime"}, loader.Names())
}

func TestMissingResourceFilesAreFine(t *testing.T) {
	env := newTestEnv(t, nil)
	registerRobots(t, env)
	loader := robotLoader(t, env)

	assert.Empty(t, loader.Names())
	_, err := loader.Get("optimusPrime")
	assert.Error(t, err)
}

func TestWrapperLineNeedsNoName(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		resourcePath((*Robot)(nil)): basicRobots + "exttest.RobotWrapper\n",
	})
	registerRobots(t, env)
	loader := robotLoader(t, env)

	// The wrapper is not a named extension.
	assert.Equal(t, []string{"bumblebee", "optimusPrime"}, loader.Names())

	robot, err := loader.Get("bumblebee")
	require.NoError(t, err)
	assert.IsType(t, &RobotWrapper{}, robot)
}

func TestClassOnlyLineInfersName(t *testing.T) {
	// A line carrying only a class literal gets its name by inference.
	env := newTestEnv(t, map[string]string{
		resourcePath((*Robot)(nil)): "exttest.OptimusPrime\nbumblebee = exttest.Bumblebee\n",
	})
	require.NoError(t, env.RegisterPoint((*Robot)(nil)))
	// OptimusPrime's simple name does not end in "Robot", so inference
	// yields "optimusprime" rather than failing; bind it and check.
	require.NoError(t, env.RegisterClass("exttest.OptimusPrime", NewOptimusPrime))
	require.NoError(t, env.RegisterClass("exttest.Bumblebee", NewBumblebee))

	loader := robotLoader(t, env)
	assert.Equal(t, []string{"bumblebee", "optimusprime"}, loader.Names())
}
