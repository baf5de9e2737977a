package node

// Status is a point-in-time view of the node, safe to read from any
// goroutine.
type Status struct {
	Ready        bool   `json:"ready"`
	SMSState     string `json:"sms_state"`
	CycleState   string `json:"cycle_state"`
	Counter      uint8  `json:"counter"`
	QueuedReport int    `json:"queued_reports"`
	PendingReads int    `json:"pending_reads"`
	InitError    string `json:"init_error,omitempty"`
}

// Status returns the view taken at the end of the last Tick.
func (n *Node) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.snapshot
}

func (n *Node) status() Status {
	s := Status{
		Ready:        n.ready,
		SMSState:     n.sms.State().String(),
		CycleState:   n.cycle.State().String(),
		Counter:      n.store.Counter(),
		QueuedReport: n.cycle.Queued(),
		PendingReads: len(n.inbox),
	}
	if n.initFailure != nil {
		s.InitError = n.initFailure.Error()
	}
	return s
}
