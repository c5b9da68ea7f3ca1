package vade

type resultStatus int

const (
	statusNotApplicable resultStatus = iota
	statusSuccess
	statusDone
)

// Result is the outcome a plugin reports for a single invocation. Exactly
// one of the three states applies: the plugin had no opinion on the request
// (NotApplicable), it handled the request and produced a payload (Success),
// or it handled the request with nothing to return (Done).
type Result struct {
	status resultStatus
	value  string
}

// NotApplicable reports that the plugin declines the request. It never
// counts against the aggregate outcome.
func NotApplicable() Result {
	return Result{status: statusNotApplicable}
}

// Success reports that the plugin handled the request and produced value.
func Success(value string) Result {
	return Result{status: statusSuccess, value: value}
}

// Done reports that the plugin handled the request without a return payload,
// e.g. a completed write.
func Done() Result {
	return Result{status: statusDone}
}

// Applicable reports whether the plugin handled the request at all.
func (r Result) Applicable() bool {
	return r.status != statusNotApplicable
}

// Value returns the payload and whether one was produced. Done and
// NotApplicable results carry no payload.
func (r Result) Value() (string, bool) {
	return r.value, r.status == statusSuccess
}

func (r Result) String() string {
	switch r.status {
	case statusSuccess:
		return "success"
	case statusDone:
		return "done"
	default:
		return "not-applicable"
	}
}

// Outcome is one plugin's contribution to an aggregated operation result.
// Index is the plugin's registration index, which is also the dispatch and
// tie-break order.
type Outcome struct {
	Index    int    `json:"index"`
	Plugin   string `json:"plugin"`
	Value    string `json:"value,omitempty"`
	HasValue bool   `json:"has_value"`
	Err      error  `json:"-"`
}

// Failed reports whether the plugin actively failed for this invocation.
func (o Outcome) Failed() bool {
	return o.Err != nil
}
