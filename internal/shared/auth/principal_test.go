package auth

import "testing"

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"user":        RoleUser,
		"admin":       RoleAdmin,
		"superadmin":  RoleSuperadmin,
		" Admin ":     RoleAdmin,
		"SUPERADMIN":  RoleSuperadmin,
		"":            RoleUser,
		"root":        RoleUser,
		"super-admin": RoleUser,
	}
	for raw, want := range cases {
		if got := ParseRole(raw); got != want {
			t.Errorf("ParseRole(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestRoleHierarchy(t *testing.T) {
	if !RoleSuperadmin.AtLeast(RoleAdmin) || !RoleAdmin.AtLeast(RoleUser) {
		t.Fatal("role ordering broken")
	}
	if RoleUser.AtLeast(RoleAdmin) {
		t.Fatal("user must not rank at admin")
	}
	if RoleUser.Privileged() {
		t.Fatal("user is not privileged")
	}
	if !RoleAdmin.Privileged() || !RoleSuperadmin.Privileged() {
		t.Fatal("admin and superadmin are privileged")
	}
	if RoleAdmin.CanReassignOwnership() {
		t.Fatal("reassignment is superadmin-only")
	}
	if !RoleSuperadmin.CanReassignOwnership() {
		t.Fatal("superadmin must be able to reassign")
	}
}
