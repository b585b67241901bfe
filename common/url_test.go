package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullURL(t *testing.T) {
	u, err := Parse("tcp://10.0.0.1:20880/demo.DemoService?side=provider&loadbalance=random")
	require.NoError(t, err)
	assert.Equal(t, "tcp", u.Protocol())
	assert.Equal(t, "10.0.0.1", u.Host())
	assert.Equal(t, 20880, u.Port())
	assert.Equal(t, "demo.DemoService", u.Path())
	assert.Equal(t, "provider", u.Param("side", ""))
	assert.Equal(t, "random", u.Param("loadbalance", ""))
}

func TestParseNoScheme(t *testing.T) {
	u, err := Parse("/p")
	require.NoError(t, err)
	assert.Equal(t, "", u.Protocol())
	assert.Equal(t, "p", u.Path())
}

func TestParseWithoutQuery(t *testing.T) {
	u, err := Parse("rmi://h:1/p")
	require.NoError(t, err)
	assert.Equal(t, "rmi", u.Protocol())
	assert.Equal(t, "h", u.Host())
	assert.Equal(t, 1, u.Port())
	assert.Equal(t, "p", u.Path())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("")
	assert.Error(t, err)

	_, err = Parse("tcp://h:notaport/p")
	assert.Error(t, err)

	_, err = Parse("tcp://h:1/p?bad=%zz")
	assert.Error(t, err)
}

func TestParamDefaults(t *testing.T) {
	u := New("tcp", "h", 1, "p", map[string]string{"a": "1", "empty": ""})
	assert.Equal(t, "1", u.Param("a", "x"))
	assert.Equal(t, "x", u.Param("missing", "x"))
	// Empty values fall back to the default, like absent keys.
	assert.Equal(t, "x", u.Param("empty", "x"))
}

func TestMethodParam(t *testing.T) {
	u := New("tcp", "h", 1, "p", map[string]string{
		"loadbalance":        "random",
		"select.loadbalance": "roundrobin",
	})
	assert.Equal(t, "roundrobin", u.MethodParam("select", "loadbalance", "d"))
	assert.Equal(t, "random", u.MethodParam("other", "loadbalance", "d"))
	assert.Equal(t, "d", u.MethodParam("other", "missing", "d"))
}

func TestWithParamIsCopy(t *testing.T) {
	u := New("tcp", "h", 1, "p", nil)
	v := u.WithParam("k", "v")
	assert.Equal(t, "v", v.Param("k", ""))
	assert.Equal(t, "", u.Param("k", ""))
}

func TestStringRoundTrip(t *testing.T) {
	u := New("tcp", "h", 9000, "svc", map[string]string{"b": "2", "a": "1"})
	s := u.String()
	assert.Equal(t, "tcp://h:9000/svc?a=1&b=2", s)

	parsed, err := Parse(s)
	require.NoError(t, err)
	assert.Equal(t, u.Params(), parsed.Params())
	assert.Equal(t, u.Protocol(), parsed.Protocol())
}

func TestInvocation(t *testing.T) {
	inv := NewInvocation("select", 1, "x")
	assert.Equal(t, "select", inv.MethodName())
	assert.Equal(t, []any{1, "x"}, inv.Arguments())
}
