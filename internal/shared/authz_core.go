package shared

// Capability names understood by the permission resolver.
const (
	PermAll = "all"

	PermAttendance     = "attendance"
	PermClients        = "clients"
	PermInterventions  = "interventions"
	PermInventory      = "inventory"
	PermBilling        = "billing"
	PermDevis          = "devis"
	PermSalaryAdvances = "salary_advances"
	PermWorkLocations  = "work_locations"
)

// CoreScopes lists every capability that may be granted to a role or user.
func CoreScopes() []string {
	return []string{
		PermAll,
		PermAttendance,
		PermClients,
		PermInterventions,
		PermInventory,
		PermBilling,
		PermDevis,
		PermSalaryAdvances,
		PermWorkLocations,
	}
}

// ScopeDescriptions maps each capability to a short label for listings.
var ScopeDescriptions = map[string]string{
	PermAll:            "Accès complet (administrateur)",
	PermAttendance:     "Pointage",
	PermClients:        "Clients et prospects",
	PermInterventions:  "Interventions terrain",
	PermInventory:      "Inventaire",
	PermBilling:        "Facturation",
	PermDevis:          "Devis",
	PermSalaryAdvances: "Avances sur salaire",
	PermWorkLocations:  "Zones de travail",
}
