package node

// PropertyDescriptor declares one configurable property of a service type.
// A descriptor with a non-empty ServiceType is reference-typed: its value is
// the identifier of another service node of that type.
type PropertyDescriptor struct {
	Name        string
	Description string
	Default     *string
	Required    bool
	ServiceType string
}

// IsReference reports whether values of this property name another service.
func (d *PropertyDescriptor) IsReference() bool {
	return d != nil && d.ServiceType != ""
}

// Property is a point-in-time view of one of a node's properties.
type Property struct {
	Descriptor *PropertyDescriptor
	// Value is the effective value: the configured one, or the descriptor
	// default when the property is unset.
	Value string
	// Set is true when Value holds something, configured or defaulted.
	Set bool
}

type property struct {
	descriptor *PropertyDescriptor
	value      string
	set        bool
}

func (p *property) effective() (string, bool) {
	if p.set {
		return p.value, true
	}
	if p.descriptor.Default != nil {
		return *p.descriptor.Default, true
	}
	return "", false
}

// find returns the entry for name. The caller must hold n.mu.
func (n *Node) find(name string) *property {
	for _, p := range n.props {
		if p.descriptor.Name == name {
			return p
		}
	}
	return nil
}

// SetProperty configures a property value. Properties the service type does
// not declare are kept as plain, non-reference properties appended after the
// declared ones.
func (n *Node) SetProperty(name, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	p := n.find(name)
	if p == nil {
		p = &property{descriptor: &PropertyDescriptor{Name: name}}
		n.props = append(n.props, p)
	}
	p.value = value
	p.set = true
}

// RemoveProperty clears a configured value so the property falls back to its
// default, if any.
func (n *Node) RemoveProperty(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if p := n.find(name); p != nil {
		p.value = ""
		p.set = false
	}
}

// Property returns the effective value of a property.
func (n *Node) Property(name string) (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	p := n.find(name)
	if p == nil {
		return "", false
	}
	return p.effective()
}

// Descriptor returns the descriptor for a property, or nil if the node has
// no such property.
func (n *Node) Descriptor(name string) *PropertyDescriptor {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if p := n.find(name); p != nil {
		return p.descriptor
	}
	return nil
}

// Properties returns a snapshot of every property in declaration order.
func (n *Node) Properties() []Property {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]Property, 0, len(n.props))
	for _, p := range n.props {
		v, ok := p.effective()
		out = append(out, Property{Descriptor: p.descriptor, Value: v, Set: ok})
	}
	return out
}
