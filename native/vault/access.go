package vault

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	nativecommon "plasmavault/native/common"
)

// Role names recognised by the access manager.
const (
	RoleOwner            = "owner"
	RoleAtomist          = "atomist"
	RoleFeeManager       = "fee-manager"
	RoleDAO              = "dao"
	RoleTechFeeManager   = "tech-fee-manager"
	RolePriceOracleAdmin = "price-oracle-admin"
	RoleKeeper           = "keeper"
)

// RoleStore captures the role membership operations of the state manager.
type RoleStore interface {
	SetRole(role string, addr common.Address) error
	RevokeRole(role string, addr common.Address) error
	HasRole(role string, addr common.Address) bool
}

// AccessManager grants operations to role members. Each operation maps to a
// single role; owners may perform every operation.
type AccessManager struct {
	roles RoleStore
	rules map[string]string
}

// NewAccessManager constructs an access manager over the role store.
func NewAccessManager(roles RoleStore) *AccessManager {
	return &AccessManager{roles: roles, rules: make(map[string]string)}
}

// Require maps operation to role, replacing any previous mapping.
func (a *AccessManager) Require(operation, role string) {
	if a == nil {
		return
	}
	a.rules[strings.TrimSpace(operation)] = strings.TrimSpace(role)
}

// Grant adds addr to role.
func (a *AccessManager) Grant(role string, addr common.Address) error {
	if a == nil || a.roles == nil {
		return errNilState
	}
	return a.roles.SetRole(role, addr)
}

// Revoke removes addr from role.
func (a *AccessManager) Revoke(role string, addr common.Address) error {
	if a == nil || a.roles == nil {
		return errNilState
	}
	return a.roles.RevokeRole(role, addr)
}

// Authorize implements nativecommon.Authorizer.
func (a *AccessManager) Authorize(caller common.Address, operation string) error {
	if a == nil || a.roles == nil {
		return fmt.Errorf("%w: access manager not configured", nativecommon.ErrUnauthorized)
	}
	if a.roles.HasRole(RoleOwner, caller) {
		return nil
	}
	role, ok := a.rules[operation]
	if !ok {
		return fmt.Errorf("%w: operation %s has no role", nativecommon.ErrUnauthorized, operation)
	}
	if !a.roles.HasRole(role, caller) {
		return fmt.Errorf("%w: %s lacks role %s for %s", nativecommon.ErrUnauthorized, caller.Hex(), role, operation)
	}
	return nil
}
