package actor

import (
	"encoding/json"
	"slices"

	"github.com/mmehali/actors/core/shuttle"
)

// Action is the outcome of a rule evaluation.
type Action int

const (
	ActionReject Action = iota
	ActionAllow
)

func (a Action) String() string {
	if a == ActionAllow {
		return "allow"
	}
	return "reject"
}

// Rule matches messages by source address and payload type tag.
type Rule struct {
	Source shuttle.Address `json:"source"`
	// Children widens the match to every address below Source.
	Children bool     `json:"children,omitempty"`
	Types    []string `json:"types,omitempty"` // empty matches any type
	Action   Action   `json:"action"`
}

func (r Rule) matches(src shuttle.Address, typeTag string) bool {
	if r.Children {
		if !r.Source.IsPrefixOf(src) {
			return false
		}
	} else if !r.Source.Equal(src) {
		return false
	}
	return len(r.Types) == 0 || slices.Contains(r.Types, typeTag)
}

// RuleSet is an actor's admission policy. Rules are evaluated newest first;
// the first matching rule decides, otherwise the default action applies.
// The zero value rejects everything.
type RuleSet struct {
	def   Action
	rules []Rule
}

func NewRuleSet() *RuleSet { return &RuleSet{def: ActionReject} }

// AllowAll drops every rule and allows by default.
func (rs *RuleSet) AllowAll() {
	rs.def = ActionAllow
	rs.rules = nil
}

// RejectAll drops every rule and rejects by default.
func (rs *RuleSet) RejectAll() {
	rs.def = ActionReject
	rs.rules = nil
}

func (rs *RuleSet) Allow(src shuttle.Address, children bool, types ...string) {
	rs.push(src, children, types, ActionAllow)
}

func (rs *RuleSet) Reject(src shuttle.Address, children bool, types ...string) {
	rs.push(src, children, types, ActionReject)
}

func (rs *RuleSet) push(src shuttle.Address, children bool, types []string, a Action) {
	rs.rules = append(rs.rules, Rule{
		Source:   src,
		Children: children,
		Types:    slices.Clone(types),
		Action:   a,
	})
}

// Evaluate returns the action for a message from src carrying a payload
// with the given type tag.
func (rs *RuleSet) Evaluate(src shuttle.Address, typeTag string) Action {
	for i := len(rs.rules) - 1; i >= 0; i-- {
		if rs.rules[i].matches(src, typeTag) {
			return rs.rules[i].Action
		}
	}
	return rs.def
}

func (rs *RuleSet) Default() Action { return rs.def }
func (rs *RuleSet) Rules() []Rule   { return slices.Clone(rs.rules) }

type ruleSetJSON struct {
	Default Action `json:"default"`
	Rules   []Rule `json:"rules,omitempty"`
}

func (rs *RuleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(ruleSetJSON{Default: rs.def, Rules: rs.rules})
}

func (rs *RuleSet) UnmarshalJSON(data []byte) error {
	var v ruleSetJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	rs.def = v.Default
	rs.rules = v.Rules
	return nil
}
