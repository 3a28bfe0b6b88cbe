package actor

import "github.com/mmehali/actors/core/reflector"

type msgTyper interface{ MsgType() string }

// TypeOf returns the type tag of a payload as used by [RuleSet]. Payloads
// implementing MsgType() string name themselves; otherwise the Go type name
// is used.
func TypeOf(payload any) string {
	if mt, ok := payload.(msgTyper); ok {
		return mt.MsgType()
	}
	return reflector.TypeInfoOf(payload).Name
}

// TypeTag returns the type tag for payloads of type T.
func TypeTag[T any]() string {
	var z T
	if mt, ok := any(z).(msgTyper); ok {
		return mt.MsgType()
	}
	return reflector.TypeInfoFor[T]().Name
}
