package shuttle

import (
	"fmt"
	"log/slog"
	"strings"
)

// Separator delimits address segments in the external string form.
const Separator = ":"

// Address is a hierarchical path identifying an actor or gateway endpoint,
// e.g. "runner:counter:child-1". The first segment is the prefix of the
// shuttle that owns the address. The zero value is the empty address, which
// means "no target".
type Address struct {
	segs []string
}

// Empty returns the empty address.
func Empty() Address { return Address{} }

// Of builds an address from the given segments. Segments must be non-empty
// and must not contain [Separator].
func Of(segs ...string) (Address, error) {
	for i, s := range segs {
		if s == "" {
			return Address{}, fmt.Errorf("%w: segment %d is empty", ErrMalformedAddress, i)
		}
		if strings.Contains(s, Separator) {
			return Address{}, fmt.Errorf("%w: segment %q contains %q", ErrMalformedAddress, s, Separator)
		}
	}
	if len(segs) == 0 {
		return Address{}, nil
	}
	out := make([]string, len(segs))
	copy(out, segs)
	return Address{segs: out}, nil
}

// MustOf is like [Of] but panics on malformed input.
func MustOf(segs ...string) Address {
	a, err := Of(segs...)
	if err != nil {
		panic(err)
	}
	return a
}

// Parse parses the delimited form produced by [Address.String]. The empty
// string parses to the empty address.
func Parse(s string) (Address, error) {
	if s == "" {
		return Address{}, nil
	}
	return Of(strings.Split(s, Separator)...)
}

// MustParse is like [Parse] but panics on malformed input.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) Size() int      { return len(a.segs) }
func (a Address) IsEmpty() bool  { return len(a.segs) == 0 }
func (a Address) String() string { return strings.Join(a.segs, Separator) }

// Element returns the segment at index i. It panics if i is out of range.
func (a Address) Element(i int) string { return a.segs[i] }

// Segments returns a copy of the address segments.
func (a Address) Segments() []string {
	out := make([]string, len(a.segs))
	copy(out, a.segs)
	return out
}

func (a Address) Equal(o Address) bool {
	if len(a.segs) != len(o.segs) {
		return false
	}
	for i := range a.segs {
		if a.segs[i] != o.segs[i] {
			return false
		}
	}
	return true
}

// IsPrefixOf reports whether a is a (non-strict) prefix of other.
func (a Address) IsPrefixOf(other Address) bool {
	if len(a.segs) > len(other.segs) {
		return false
	}
	for i := range a.segs {
		if a.segs[i] != other.segs[i] {
			return false
		}
	}
	return true
}

// RemovePrefix strips prefix from a and returns the remaining suffix.
func (a Address) RemovePrefix(prefix Address) (Address, error) {
	if !prefix.IsPrefixOf(a) {
		return Address{}, fmt.Errorf("%w: %q is not a prefix of %q", ErrNotPrefix, prefix, a)
	}
	if len(prefix.segs) == len(a.segs) {
		return Address{}, nil
	}
	return Address{segs: a.Segments()[len(prefix.segs):]}, nil
}

// AppendSuffix returns a new address with the segments of suffix appended.
func (a Address) AppendSuffix(suffix Address) Address {
	if suffix.IsEmpty() {
		return a
	}
	out := make([]string, 0, len(a.segs)+len(suffix.segs))
	out = append(out, a.segs...)
	out = append(out, suffix.segs...)
	return Address{segs: out}
}

// Append is a convenience for appending raw segments.
func (a Address) Append(segs ...string) (Address, error) {
	suffix, err := Of(segs...)
	if err != nil {
		return Address{}, err
	}
	return a.AppendSuffix(suffix), nil
}

// Parent returns the address without its last segment.
func (a Address) Parent() Address {
	if len(a.segs) <= 1 {
		return Address{}
	}
	return Address{segs: a.Segments()[:len(a.segs)-1]}
}

// Last returns the final segment, or "" for the empty address.
func (a Address) Last() string {
	if len(a.segs) == 0 {
		return ""
	}
	return a.segs[len(a.segs)-1]
}

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(b []byte) error {
	p, err := Parse(string(b))
	if err != nil {
		return err
	}
	*a = p
	return nil
}

func (a Address) LogValue() slog.Value { return slog.StringValue(a.String()) }
