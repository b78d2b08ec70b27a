package params

// KeyPauses holds the JSON encoded config.Pauses toggles.
const KeyPauses = "vault/pauses"

// Pausable modules. They match the module names the engines guard on.
const (
	ModuleFees   = "fees"
	ModuleOracle = "oracle"
)
