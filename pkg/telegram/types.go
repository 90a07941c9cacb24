package telegram

// Member is a single channel participant as returned by the gateway.
// Optional attributes use the empty string as an unset sentinel; the
// gateway omits fields it has no data for, which decodes to the same
// zero values. A Member is never mutated after it has been decoded.
type Member struct {
	// ID is the collection-unique Telegram user id.
	ID int64 `json:"id"`

	// AccessHash is the per-session access hash (0 when not exposed).
	AccessHash int64 `json:"access_hash,omitempty"`

	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`

	Bot      bool `json:"is_bot,omitempty"`
	Verified bool `json:"is_verified,omitempty"`
	Premium  bool `json:"is_premium,omitempty"`
}

// ChannelInfo describes a resolved channel or supergroup.
type ChannelInfo struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Username string `json:"username,omitempty"`

	// Megagroup is true for supergroups, false for broadcast channels.
	Megagroup bool `json:"is_megagroup"`

	// ParticipantsCount is the total size reported by the gateway.
	// Zero means the gateway did not expose a count.
	ParticipantsCount int `json:"participants_count"`
}

// Label returns a human-readable identifier for the channel, preferring
// the public username over the title.
func (c *ChannelInfo) Label() string {
	if c.Username != "" {
		return "@" + c.Username
	}
	return c.Title
}

// participantsResponse is the wire format of the participants endpoint.
type participantsResponse struct {
	Users []Member `json:"users"`
}
