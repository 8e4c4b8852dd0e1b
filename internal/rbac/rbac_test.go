package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "user read", role: RoleUser, action: ActionRead, allow: true},
		{name: "user write", role: RoleUser, action: ActionWrite, allow: true},
		{name: "user export", role: RoleUser, action: ActionExport, allow: true},
		{name: "user admin", role: RoleUser, action: ActionAdmin, allow: false},
		{name: "admin admin", role: RoleAdmin, action: ActionAdmin, allow: true},
		{name: "unknown role", role: Role("ghost"), action: ActionRead, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestCanAccessProject(t *testing.T) {
	if !CanAccessProject(RoleUser, "u1", "u1") {
		t.Fatal("owner must access their own project")
	}
	if CanAccessProject(RoleUser, "u1", "u2") {
		t.Fatal("non-owner user must be denied")
	}
	if !CanAccessProject(RoleAdmin, "u1", "u2") {
		t.Fatal("admin must access any project")
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("admin") != RoleAdmin {
		t.Fatal("admin must pass through")
	}
	if Normalize("") != RoleUser {
		t.Fatal("empty role must fall back to user")
	}
	if Normalize("superuser") != RoleUser {
		t.Fatal("unknown role must fall back to user")
	}
}
