package sequencing

// Delivery is the outcome of a successful navigation request.
//
// When End is true the attempt on the tree has ended (exitAll, abandonAll,
// suspendAll, or flow past the last activity) and no activity is
// delivered. Otherwise ActivityID names the leaf to launch.
type Delivery struct {
	ActivityID string `json:"activity_id,omitempty"`
	Launch     string `json:"launch,omitempty"`

	// Resume is true when the delivered activity continues a suspended
	// attempt rather than beginning a new one. The host seeds the RTE
	// session from the persisted snapshot in that case.
	Resume bool `json:"resume,omitempty"`

	// End marks the end of the attempt on the activity tree.
	End bool `json:"end,omitempty"`
}

// Available reports which navigation requests would currently succeed.
// The RTE projects Continue and Previous into the adl.nav.request_valid
// data model elements; Choice is keyed by target activity identifier.
// Exit is valid whenever a current activity exists to exit.
type Available struct {
	Continue bool            `json:"continue"`
	Previous bool            `json:"previous"`
	Exit     bool            `json:"exit"`
	Choice   map[string]bool `json:"choice"`
}
