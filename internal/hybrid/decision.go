package hybrid

// Decision proposes a strategy change for the current cycle. Decisions
// are ephemeral: produced per cycle, acted on at most once, and never
// persisted beyond the switch history.
type Decision struct {
	Target     ControllerState
	Reason     string
	Confidence float64
	Metrics    map[string]float64
	Timestamp  float64
}

// SwitchRecord is one entry of the append-only switch audit log.
type SwitchRecord struct {
	Time       float64            `json:"time"`
	From       string             `json:"from"`
	To         string             `json:"to"`
	Reason     string             `json:"reason"`
	Confidence float64            `json:"confidence"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// AdaptationRecord snapshots a decision together with the thresholds
// that produced it, for offline threshold analysis. Thresholds are
// recorded only; nothing mutates them online.
type AdaptationRecord struct {
	Time       float64
	Target     ControllerState
	Reason     string
	Confidence float64
	Thresholds []float64
	Metrics    map[string]float64
}

// Stats summarizes switching activity for telemetry consumers.
type Stats struct {
	TotalSwitches  int
	LastSwitchTime float64
	Current        string
	MeanConfidence float64
	ByTarget       map[string]int
}

func copyMetrics(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
