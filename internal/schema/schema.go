// Package schema holds the per-vendor structural contracts that raw
// backup manifests are validated against. Contracts are plain data,
// registered once at process start and immutable afterwards.
package schema

import (
	"fmt"
	"regexp"
	"sort"
)

// Ordering is the per-vendor entry ordering policy.
type Ordering int

const (
	// OrderPositional requires entry i to carry the kind declared at
	// position i of the contract.
	OrderPositional Ordering = iota
	// OrderAnySet requires the multiset of kinds to equal the declared
	// set, in any order.
	OrderAnySet
)

// KindSpec declares one allowed backup kind and the filename rule its
// paths must satisfy. Filename is a regular expression matched against
// the final path segment.
type KindSpec struct {
	Name     string
	Filename string
}

// Contract is one vendor's structural contract: the closed kind set,
// the exact entry count, the ordering policy, and a path pattern per
// kind. Paths must start with the vendor root, followed by exactly one
// host-qualifying segment, followed by the kind's filename rule.
type Contract struct {
	vendor   string
	root     string
	ordering Ordering
	kinds    []string
	patterns map[string]*regexp.Regexp
}

// NewContract compiles a vendor contract. The entry count requirement
// is the number of declared kinds; each must appear exactly once.
func NewContract(vendor, root string, ordering Ordering, kinds []KindSpec) (*Contract, error) {
	if vendor == "" {
		return nil, fmt.Errorf("contract vendor must not be empty")
	}
	if root == "" {
		return nil, fmt.Errorf("contract for %s: root prefix must not be empty", vendor)
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("contract for %s: at least one kind is required", vendor)
	}

	c := &Contract{
		vendor:   vendor,
		root:     root,
		ordering: ordering,
		patterns: make(map[string]*regexp.Regexp, len(kinds)),
	}
	for _, k := range kinds {
		if _, dup := c.patterns[k.Name]; dup {
			return nil, fmt.Errorf("contract for %s: duplicate kind %q", vendor, k.Name)
		}
		pattern, err := regexp.Compile("^" + regexp.QuoteMeta(root) + `[^/]+/` + k.Filename + "$")
		if err != nil {
			return nil, fmt.Errorf("contract for %s: kind %q filename rule: %w", vendor, k.Name, err)
		}
		c.kinds = append(c.kinds, k.Name)
		c.patterns[k.Name] = pattern
	}
	return c, nil
}

// Vendor returns the vendor identity this contract belongs to.
func (c *Contract) Vendor() string { return c.vendor }

// Ordering returns the entry ordering policy.
func (c *Contract) Ordering() Ordering { return c.ordering }

// Kinds returns the required kinds. Under OrderPositional the slice
// order is the mandated entry order.
func (c *Contract) Kinds() []string {
	out := make([]string, len(c.kinds))
	copy(out, c.kinds)
	return out
}

// EntryCount is the exact number of entries a manifest must carry.
func (c *Contract) EntryCount() int { return len(c.kinds) }

// AllowsKind reports whether kind is in the contract's closed set.
func (c *Contract) AllowsKind(kind string) bool {
	_, ok := c.patterns[kind]
	return ok
}

// PathPattern returns the full-path pattern for the given kind, or nil
// for a kind outside the contract.
func (c *Contract) PathPattern(kind string) *regexp.Regexp {
	return c.patterns[kind]
}

// Registry maps vendor identities to their contracts.
type Registry struct {
	contracts map[string]*Contract
}

// ErrUnknownVendor wraps lookups for vendors with no registered
// contract; callers treat it as a schema violation, never fatal.
type ErrUnknownVendor struct {
	Vendor string
}

func (e ErrUnknownVendor) Error() string {
	return fmt.Sprintf("no contract registered for vendor %q", e.Vendor)
}

// NewRegistry builds a registry from the given contracts.
func NewRegistry(contracts ...*Contract) *Registry {
	r := &Registry{contracts: make(map[string]*Contract, len(contracts))}
	for _, c := range contracts {
		r.contracts[c.vendor] = c
	}
	return r
}

// Contract returns the contract for vendor or ErrUnknownVendor.
func (r *Registry) Contract(vendor string) (*Contract, error) {
	c, ok := r.contracts[vendor]
	if !ok {
		return nil, ErrUnknownVendor{Vendor: vendor}
	}
	return c, nil
}

// Vendors lists the registered vendor identities, sorted.
func (r *Registry) Vendors() []string {
	out := make([]string, 0, len(r.contracts))
	for v := range r.contracts {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
