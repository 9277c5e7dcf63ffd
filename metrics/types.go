package metrics

// Value is a metric sample. Counters add it, gauges overwrite with it.
type Value float64

// Dimension attaches label key/value pairs to a metric, such as the drop
// reason on a frame-drop counter or the state name on a transition counter.
type Dimension map[string]string
