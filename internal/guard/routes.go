package guard

import "github.com/anasy333/krishisat-gateway/internal/domain"

// DefaultTable guards the gateway's protected routes. Everything absent here
// (login, marketing content, health probes) is public.
func DefaultTable() Table {
	anyRole := []domain.Role{}
	farmer := []domain.Role{domain.RoleFarmer}
	staff := []domain.Role{domain.RoleStaff}
	govt := []domain.Role{domain.RoleGovtOfficial}
	farmerOrStaff := []domain.Role{domain.RoleFarmer, domain.RoleStaff}

	return Table{
		// Any authenticated role
		{Method: "GET", Path: "/api/auth/me", Roles: anyRole},

		// Farmer surface
		{Method: "GET", Path: "/api/dashboard/farmer", Roles: farmer},
		{Method: "GET", Path: "/api/farms", Roles: farmer},
		{Method: "GET", Path: "/api/farms/*", Roles: farmer},
		{Method: "POST", Path: "/api/farms", Roles: farmer},
		{Method: "GET", Path: "/api/analysis/*", Roles: farmer},
		{Method: "GET", Path: "/api/crops/dashboard", Roles: farmer},

		// Shared farmer/staff surface
		{Method: "GET", Path: "/api/reports/pdf", Roles: farmerOrStaff},

		// Staff surface
		{Method: "GET", Path: "/api/dashboard/staff", Roles: staff},

		// Government surface
		{Method: "GET", Path: "/api/dashboard/govt", Roles: govt},
		{Method: "GET", Path: "/api/regional/*", Roles: govt},
	}
}
