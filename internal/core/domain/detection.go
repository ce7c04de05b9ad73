package domain

// DetectionEvent is a single decoded barcode value emitted by the capture
// pipeline. It is ephemeral: consumed once per armed scan cycle, never stored.
type DetectionEvent struct {
	RawValue string
}
