package ledger

// Stop reasons reported by the safety gate.
const (
	ReasonDryRun             = "dry_run"
	ReasonAutoSubmitDisabled = "auto_submit disabled"
	ReasonIncompleteFields   = "incomplete required fields"
)

// Decision is the safety gate's verdict for one application.
type Decision struct {
	Proceed bool
	Reason  string
}

// DecideSubmit is the safety gate: a pure function of the run policy and the
// form state. It never consults anything beyond its inputs.
func DecideSubmit(dryRun, autoSubmit, requiredFieldsAnswered bool) Decision {
	if dryRun {
		return Decision{Proceed: false, Reason: ReasonDryRun}
	}
	if !autoSubmit {
		return Decision{Proceed: false, Reason: ReasonAutoSubmitDisabled}
	}
	if !requiredFieldsAnswered {
		return Decision{Proceed: false, Reason: ReasonIncompleteFields}
	}
	return Decision{Proceed: true}
}
