package extension

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StaticFactory serves fixed dependencies for injection tests. It is bound
// as an extension of the Factory point through the services directory.
type StaticFactory struct{}

func NewStaticFactory() *StaticFactory { return &StaticFactory{} }

// Load implements Factory.
func (f *StaticFactory) Load(t reflect.Type, name string) any {
	if t == reflect.TypeOf("") && name == "greeting" {
		return "greetings from the factory"
	}
	return nil
}

func factoryResourcePath() string {
	return "META-INF/services/" + fqnOf((*Factory)(nil))
}

func TestSetterInjectionViaFactory(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		resourcePath((*Robot)(nil)): basicRobots,
		factoryResourcePath():       "static = injtest.StaticFactory\n",
	})
	require.NoError(t, env.RegisterClass("injtest.StaticFactory", NewStaticFactory))
	registerRobots(t, env)
	loader := robotLoader(t, env)

	robot, err := loader.Get("optimusPrime")
	require.NoError(t, err)
	assert.Equal(t, "greetings from the factory", robot.(*OptimusPrime).Greeting())
}

func TestWrapperLayersAreInjected(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		resourcePath((*Robot)(nil)): basicRobots + "exttest.InjectedWrapper\n",
		factoryResourcePath():       "static = injtest.StaticFactory\n",
	})
	require.NoError(t, env.RegisterClass("injtest.StaticFactory", NewStaticFactory))
	registerRobots(t, env)
	require.NoError(t, env.RegisterClass("exttest.InjectedWrapper", NewInjectedWrapper))
	loader := robotLoader(t, env)

	robot, err := loader.Get("optimusPrime")
	require.NoError(t, err)
	w := robot.(*InjectedWrapper)
	assert.Equal(t, "greetings from the factory", w.Greeting())
	assert.Equal(t, "greetings from the factory", w.Inner().(*OptimusPrime).Greeting())
}

// InjectedWrapper is a wrapper with its own setter target.
type InjectedWrapper struct {
	inner    Robot
	greeting string
}

func NewInjectedWrapper(inner Robot) *InjectedWrapper { return &InjectedWrapper{inner: inner} }

func (w *InjectedWrapper) SayHello() string { return w.inner.SayHello() }

// SetGreeting is a setter target for injection tests.
func (w *InjectedWrapper) SetGreeting(g string) { w.greeting = g }

// Greeting exposes the injected value.
func (w *InjectedWrapper) Greeting() string { return w.greeting }

// Inner exposes the wrapped robot.
func (w *InjectedWrapper) Inner() Robot { return w.inner }

// Speaker depends on the Robot point through a setter; the SPI factory
// satisfies it with the Robot point's adaptive dispatcher.
type Speaker interface {
	Speak() string
}

type RobotSpeaker struct {
	robot Robot
}

func NewRobotSpeaker() *RobotSpeaker { return &RobotSpeaker{} }

// SetRobot is satisfied by the SPI factory with the Robot adaptive
// dispatcher.
func (s *RobotSpeaker) SetRobot(r Robot) { s.robot = r }

// Robot exposes the injected dependency.
func (s *RobotSpeaker) Robot() Robot { return s.robot }

func (s *RobotSpeaker) Speak() string {
	if s.robot == nil {
		return "silence"
	}
	return s.robot.SayHello()
}

// AdaptiveRobot is the manual adaptive class letting the SPI factory
// resolve the Robot point.
type AdaptiveRobot struct{}

func NewAdaptiveRobot() *AdaptiveRobot { return &AdaptiveRobot{} }

func (r *AdaptiveRobot) SayHello() string { return "adaptive hello" }

func TestSPIFactoryInjectsAdaptiveDependency(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		resourcePath((*Robot)(nil)):   basicRobots + "adaptiveRobot = exttest.AdaptiveRobot\n",
		resourcePath((*Speaker)(nil)): "robotic = injtest.RobotSpeaker\n",
	})
	registerRobots(t, env)
	require.NoError(t, env.RegisterClass("exttest.AdaptiveRobot", NewAdaptiveRobot, AsAdaptive()))
	require.NoError(t, env.RegisterPoint((*Speaker)(nil)))
	require.NoError(t, env.RegisterClass("injtest.RobotSpeaker", NewRobotSpeaker))

	loader, err := For(env, (*Speaker)(nil))
	require.NoError(t, err)

	speaker, err := loader.Get("robotic")
	require.NoError(t, err)
	s := speaker.(*RobotSpeaker)
	require.NotNil(t, s.Robot())
	assert.Equal(t, "adaptive hello", s.Speak())
}

func TestInjectionSkipsUnresolvedSetters(t *testing.T) {
	// No factory resolves SetGreeting here; construction still succeeds.
	env := newTestEnv(t, map[string]string{
		resourcePath((*Robot)(nil)): basicRobots,
	})
	registerRobots(t, env)
	loader := robotLoader(t, env)

	robot, err := loader.Get("optimusPrime")
	require.NoError(t, err)
	assert.Equal(t, "", robot.(*OptimusPrime).Greeting())
}

func TestFactoryBootstrapHole(t *testing.T) {
	env := newTestEnv(t, nil)

	loader, err := For(env, (*Factory)(nil))
	require.NoError(t, err)

	// The factory's own loader carries no factory.
	assert.Nil(t, loader.factory)

	// Its adaptive dispatcher is the built-in adaptive factory.
	adaptive, err := loader.Adaptive()
	require.NoError(t, err)
	assert.IsType(t, &AdaptiveFactory{}, adaptive)

	// The spi factory is an ordinary named extension of the point.
	assert.Equal(t, []string{"spi"}, loader.Names())
}

func TestPropertyName(t *testing.T) {
	assert.Equal(t, "greeting", propertyName("SetGreeting"))
	assert.Equal(t, "uRL", propertyName("SetURL"))
	assert.Equal(t, "", propertyName("Set"))
}
