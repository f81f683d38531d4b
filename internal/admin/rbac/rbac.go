package rbac

import (
	"slices"
	"strings"
)

// Role is a staff access tier carried as a Firebase custom claim.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleOps     Role = "ops"
	RoleSupport Role = "support"
)

// Capability is a dashboard action checked by the HTTP layer.
type Capability string

const (
	CapDashboardView Capability = "dashboard.view"
	CapOrdersList    Capability = "orders.list"
	CapOrderStatus   Capability = "orders.status"
	CapOrderDelete   Capability = "orders.delete"
	CapOrdersExport  Capability = "orders.export"
	CapCatalogView   Capability = "catalog.view"
	CapCatalogManage Capability = "catalog.manage"
	CapReviewsView   Capability = "reviews.view"
	CapReviewsDelete Capability = "reviews.delete"
	CapDataRefresh   Capability = "data.refresh"
)

var capabilityRoles = map[Capability]Roles{
	CapDashboardView: {RoleAdmin, RoleOps, RoleSupport},
	CapOrdersList:    {RoleAdmin, RoleOps, RoleSupport},
	CapOrderStatus:   {RoleAdmin, RoleOps},
	CapOrderDelete:   {RoleAdmin},
	CapOrdersExport:  {RoleAdmin, RoleOps},
	CapCatalogView:   {RoleAdmin, RoleOps, RoleSupport},
	CapCatalogManage: {RoleAdmin, RoleOps},
	CapReviewsView:   {RoleAdmin, RoleOps, RoleSupport},
	CapReviewsDelete: {RoleAdmin, RoleSupport},
	CapDataRefresh:   {RoleAdmin, RoleOps},
}

// Roles is a set of roles.
type Roles []Role

// Has reports whether role is in the set.
func (rs Roles) Has(role Role) bool {
	return slices.Contains(rs, role)
}

// Intersects reports whether any candidate role is in the set.
func (rs Roles) Intersects(candidate Roles) bool {
	return slices.ContainsFunc(candidate, rs.Has)
}

// NormaliseRoles lower-cases, trims and de-duplicates raw claim values.
func NormaliseRoles(raw []string) Roles {
	if len(raw) == 0 {
		return nil
	}
	roles := make(Roles, 0, len(raw))
	for _, val := range raw {
		role := Role(strings.ToLower(strings.TrimSpace(val)))
		if role == "" || roles.Has(role) {
			continue
		}
		roles = append(roles, role)
	}
	return roles
}

// HasCapability reports whether the roles grant capability. Admins hold every capability
// and an empty capability is always granted.
func HasCapability(userRoles []string, capability Capability) bool {
	if capability == "" {
		return true
	}
	allowed, ok := capabilityRoles[capability]
	if !ok {
		return false
	}
	roles := NormaliseRoles(userRoles)
	if roles.Has(RoleAdmin) {
		return true
	}
	return allowed.Intersects(roles)
}

// CapabilitiesForRoles lists the capabilities granted to userRoles.
func CapabilitiesForRoles(userRoles []string) map[Capability]bool {
	roles := NormaliseRoles(userRoles)
	caps := make(map[Capability]bool, len(capabilityRoles))
	for capability, allowed := range capabilityRoles {
		if roles.Has(RoleAdmin) || allowed.Intersects(roles) {
			caps[capability] = true
		}
	}
	return caps
}
