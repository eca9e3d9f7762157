package vault

import (
	"sort"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/identity"
)

// accessList holds the owner identity and the operator set. The owner
// administers the set; the initializing identity is an operator by default.
// Callers hold the vault's state lock.
type accessList struct {
	owner     identity.Address
	operators map[identity.Address]bool
}

func newAccessList(owner identity.Address, operators []identity.Address) *accessList {
	l := &accessList{owner: owner, operators: make(map[identity.Address]bool)}
	l.operators[owner] = true
	for _, op := range operators {
		l.operators[op] = true
	}
	return l
}

func (l *accessList) requireOperator(caller identity.Address) error {
	if !l.operators[caller] {
		return errUnauthorized(caller, "an operator")
	}
	return nil
}

func (l *accessList) requireOwner(caller identity.Address) error {
	if caller != l.owner {
		return errUnauthorized(caller, "the owner")
	}
	return nil
}

// add returns false if the identity was already an operator.
func (l *accessList) add(op identity.Address) bool {
	if l.operators[op] {
		return false
	}
	l.operators[op] = true
	return true
}

// remove returns false if the identity was not an operator.
func (l *accessList) remove(op identity.Address) bool {
	if !l.operators[op] {
		return false
	}
	delete(l.operators, op)
	return true
}

// list returns the operator set in address order.
func (l *accessList) list() []identity.Address {
	out := make([]identity.Address, 0, len(l.operators))
	for op := range l.operators {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
