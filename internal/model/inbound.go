package model

// InboundEvent is the normalized shape of one provider webhook message:
// the sender identity plus whichever of text, button reply or list reply
// the message carried.
type InboundEvent struct {
	From     string `json:"from" validate:"required"`
	Text     string `json:"text,omitempty"`
	ButtonID string `json:"button_id,omitempty"`
	ListID   string `json:"list_id,omitempty"`
}

// SignalKind is the tagged variant of an inbound event. An explicit
// interactive reply (button or list id) always outranks coincident text.
type SignalKind int

const (
	SignalText SignalKind = iota
	SignalButton
	SignalList
)

// String names the variant for logs and metric labels.
func (k SignalKind) String() string {
	switch k {
	case SignalButton:
		return "button"
	case SignalList:
		return "list"
	default:
		return "text"
	}
}

// Signal returns the event's variant and its payload value.
func (e InboundEvent) Signal() (SignalKind, string) {
	switch {
	case e.ButtonID != "":
		return SignalButton, e.ButtonID
	case e.ListID != "":
		return SignalList, e.ListID
	default:
		return SignalText, e.Text
	}
}
