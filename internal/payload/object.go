package payload

// Member is a single key/value pair of an Object.
type Member struct {
	Key   string
	Value Value
}

// Object is a JSON object that remembers insertion order. Keys are unique;
// setting an existing key replaces its value in place.
type Object struct {
	members []Member
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{members: []Member{}}
}

// ObjectOf builds an object from members in the given order.
func ObjectOf(members ...Member) *Object {
	o := NewObject()
	for _, m := range members {
		o.Set(m.Key, m.Value)
	}
	return o
}

// M is shorthand for building a Member.
func M(key string, v Value) Member {
	return Member{Key: key, Value: v}
}

func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.members)
}

// Set stores v under key and returns o for chaining.
func (o *Object) Set(key string, v Value) *Object {
	for i := range o.members {
		if o.members[i].Key == key {
			o.members[i].Value = v
			return o
		}
	}
	o.members = append(o.members, Member{Key: key, Value: v})
	return o
}

func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	for _, m := range o.members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Delete removes key and reports whether it was present.
func (o *Object) Delete(key string) bool {
	if o == nil {
		return false
	}
	for i, m := range o.members {
		if m.Key == key {
			o.members = append(o.members[:i], o.members[i+1:]...)
			return true
		}
	}
	return false
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, len(o.members))
	for i, m := range o.members {
		keys[i] = m.Key
	}
	return keys
}

// Members returns a copy of the members in insertion order.
func (o *Object) Members() []Member {
	if o == nil {
		return nil
	}
	out := make([]Member, len(o.members))
	copy(out, o.members)
	return out
}

// Clone returns a shallow copy; nested objects are shared.
func (o *Object) Clone() *Object {
	c := NewObject()
	if o != nil {
		c.members = append(c.members, o.members...)
	}
	return c
}

// Canonical returns the canonical JSON encoding of the object.
func (o *Object) Canonical() []byte {
	return Canonical(ObjectValue(o))
}

// MarshalJSON encodes o canonically.
func (o *Object) MarshalJSON() ([]byte, error) {
	return o.Canonical(), nil
}

// UnmarshalJSON decodes a JSON object preserving member order.
func (o *Object) UnmarshalJSON(data []byte) error {
	parsed, err := ParseObject(data)
	if err != nil {
		return err
	}
	o.members = parsed.members
	return nil
}
