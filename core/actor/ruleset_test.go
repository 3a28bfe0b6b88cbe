package actor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmehali/actors/core/shuttle"
)

type ping struct{ Seq int }

type named struct{}

func (named) MsgType() string { return "named.v1" }

func TestTypeOf(t *testing.T) {
	assert.Equal(t, "string", TypeOf("x"))
	assert.Equal(t, "github.com/mmehali/actors/core/actor.ping", TypeOf(ping{}))
	assert.Equal(t, TypeOf(ping{}), TypeOf(&ping{}))
	assert.Equal(t, TypeOf(ping{}), TypeTag[ping]())
	assert.Equal(t, "named.v1", TypeOf(named{}))
	assert.Equal(t, "named.v1", TypeTag[named]())
}

func TestRuleSet(t *testing.T) {
	var (
		self  = shuttle.MustParse("r:a")
		kid   = shuttle.MustParse("r:a:kid")
		other = shuttle.MustParse("x:y")
		pingT = TypeTag[ping]()
	)

	t.Run("zero value rejects", func(t *testing.T) {
		var rs RuleSet
		require.Equal(t, ActionReject, rs.Evaluate(self, pingT))
	})

	t.Run("exact source", func(t *testing.T) {
		rs := NewRuleSet()
		rs.Allow(self, false)
		assert.Equal(t, ActionAllow, rs.Evaluate(self, pingT))
		assert.Equal(t, ActionReject, rs.Evaluate(kid, pingT))
		assert.Equal(t, ActionReject, rs.Evaluate(other, pingT))
	})

	t.Run("children", func(t *testing.T) {
		rs := NewRuleSet()
		rs.Allow(self, true)
		assert.Equal(t, ActionAllow, rs.Evaluate(self, pingT))
		assert.Equal(t, ActionAllow, rs.Evaluate(kid, pingT))
		assert.Equal(t, ActionReject, rs.Evaluate(shuttle.MustParse("r:ab"), pingT))
	})

	t.Run("types", func(t *testing.T) {
		rs := NewRuleSet()
		rs.Allow(other, false, pingT)
		assert.Equal(t, ActionAllow, rs.Evaluate(other, pingT))
		assert.Equal(t, ActionReject, rs.Evaluate(other, "string"))
	})

	t.Run("newest rule wins", func(t *testing.T) {
		rs := NewRuleSet()
		rs.AllowAll()
		rs.Reject(other, false)
		assert.Equal(t, ActionReject, rs.Evaluate(other, pingT))
		assert.Equal(t, ActionAllow, rs.Evaluate(kid, pingT))

		rs.Allow(other, false, pingT)
		assert.Equal(t, ActionAllow, rs.Evaluate(other, pingT))
		assert.Equal(t, ActionReject, rs.Evaluate(other, "string"))
	})

	t.Run("defaults clear rules", func(t *testing.T) {
		rs := NewRuleSet()
		rs.Allow(self, false)
		rs.RejectAll()
		assert.Empty(t, rs.Rules())
		assert.Equal(t, ActionReject, rs.Evaluate(self, pingT))

		rs.Reject(self, false)
		rs.AllowAll()
		assert.Empty(t, rs.Rules())
		assert.Equal(t, ActionAllow, rs.Evaluate(self, pingT))
	})

	t.Run("json", func(t *testing.T) {
		rs := NewRuleSet()
		rs.Allow(self, true, pingT)
		rs.Reject(other, false)

		data, err := json.Marshal(rs)
		require.NoError(t, err)

		got := NewRuleSet()
		require.NoError(t, json.Unmarshal(data, got))
		require.Equal(t, rs.Default(), got.Default())
		require.Equal(t, rs.Rules(), got.Rules())
		require.Equal(t, ActionAllow, got.Evaluate(kid, pingT))
		require.Equal(t, ActionReject, got.Evaluate(other, pingT))
	})
}

func TestContext_default_rules(t *testing.T) {
	c := NewContext(rootAddr, BodyFunc(func(*Context) (bool, error) { return false, nil }), ContextOptions{})
	rs := c.RuleSet()
	require.Equal(t, ActionReject, rs.Default())
	require.Equal(t, []Rule{{Source: rootAddr, Action: ActionAllow}}, rs.Rules())

	c.Allow(extAddr, false)
	require.Equal(t, ActionAllow, rs.Evaluate(extAddr, "string"))
	c.Block(extAddr, false, "string")
	require.Equal(t, ActionReject, rs.Evaluate(extAddr, "string"))
	c.BlockAll()
	require.Equal(t, ActionReject, rs.Evaluate(rootAddr, "string"))
}
