package vm

// Action kinds reported in ActionResult.
const (
	ActionStart  = "start"
	ActionStop   = "stop"
	ActionReboot = "reboot"
	ActionDelete = "delete"
	ActionCreate = "create"
)

// ActionResult is the outcome of one mutating operation. It is returned
// once and never persisted.
type ActionResult struct {
	Success     bool   `json:"success" yaml:"success"`
	Domain      string `json:"domain" yaml:"domain"`
	Action      string `json:"action" yaml:"action"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
	OperationID string `json:"operation_id" yaml:"operation_id"`
}

func succeeded(opID, domain, action string) ActionResult {
	return ActionResult{Success: true, Domain: domain, Action: action, OperationID: opID}
}

func failed(opID, domain, action string, err error) ActionResult {
	return ActionResult{Domain: domain, Action: action, Error: err.Error(), OperationID: opID}
}
