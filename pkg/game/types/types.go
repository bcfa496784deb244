package types

// ProductionFact is the quantity of a product a country produces.
type ProductionFact struct {
	Country  Country `json:"country"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// DemandFact is the quantity of a product a country demands.
type DemandFact struct {
	Country  Country `json:"country"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// TariffKey identifies one current tariff rate.
type TariffKey struct {
	Round       int     `json:"roundNumber"`
	Product     Product `json:"product"`
	FromCountry Country `json:"fromCountry"`
	ToCountry   Country `json:"toCountry"`
}

// TariffChange is one requested rate inside a submission.
type TariffChange struct {
	Product   Product `json:"product"`
	ToCountry Country `json:"toCountry"`
	Rate      float64 `json:"rate"`
}

type TariffRecord struct {
	TariffKey
	Rate        float64 `json:"rate"`
	SubmittedBy string  `json:"updatedBy"`
	// Timestamp is the unix millisecond commit time
	Timestamp int64 `json:"updatedAt"`
	// Sequence is assigned by the server at commit and orders writes to the same key
	Sequence uint64 `json:"sequence"`
}

// TariffHistoryEntry is one immutable line of the tariff audit log.
type TariffHistoryEntry struct {
	Round       int     `json:"round"`
	Player      string  `json:"player"`
	Country     Country `json:"country"`
	Product     Product `json:"product"`
	ToCountry   Country `json:"toCountry"`
	Rate        float64 `json:"rate"`
	SubmittedAt int64   `json:"submittedAt"`
	Sequence    uint64  `json:"sequence"`
}

// HistoryEntry converts a committed record into its audit log line.
func (r TariffRecord) HistoryEntry() TariffHistoryEntry {
	return TariffHistoryEntry{
		Round:       r.Round,
		Player:      r.SubmittedBy,
		Country:     r.FromCountry,
		Product:     r.Product,
		ToCountry:   r.ToCountry,
		Rate:        r.Rate,
		SubmittedAt: r.Timestamp,
		Sequence:    r.Sequence,
	}
}

// ChatMessageType is group or private.
type ChatMessageType string

const (
	ChatMessageTypeGroup   ChatMessageType = "group"
	ChatMessageTypePrivate ChatMessageType = "private"
)

type ChatMessage struct {
	ID               string          `json:"id"`
	SenderID         string          `json:"senderId"`
	SenderName       string          `json:"senderName"`
	SenderCountry    Country         `json:"senderCountry,omitempty"`
	Content          string          `json:"content"`
	MessageType      ChatMessageType `json:"messageType"`
	RecipientCountry Country         `json:"recipientCountry,omitempty"`
	Timestamp        int64           `json:"timestamp"`
}

// VisibleTo reports whether a player should receive the message.
func (m *ChatMessage) VisibleTo(player *Player) bool {
	if m.MessageType != ChatMessageTypePrivate {
		return true
	}
	if player.ID == m.SenderID {
		return true
	}
	return player.Country != "" && player.Country == m.RecipientCountry
}
