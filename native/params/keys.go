package params

const (
	// ParamsKeyLedger stores the administrator-controlled ledger parameters.
	ParamsKeyLedger = "system/ledger"
	// ParamsKeyPauses stores the module pause configuration.
	ParamsKeyPauses = "system/pauses"
)

// Module names recognised by the pause configuration.
const (
	ModuleBank     = "bank"
	ModuleRegistry = "registry"
	ModuleCatalog  = "catalog"
	ModuleAccess   = "access"
	ModuleCustody  = "custody"
	ModuleCampaign = "campaign"
)
