package trello

// Board is a Trello board as returned by the API. Only the fields the
// provisioning layer needs are mapped; boards are externally owned and
// identified by opaque string ids.
type Board struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// List is a Trello list within a board.
type List struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	BoardID string `json:"idBoard"`
}

// Label is a Trello label within a board.
type Label struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	BoardID string `json:"idBoard"`
}

// Member is a member of a Trello board.
type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
}

// Filter narrows query results by exact id and/or name match.
// Empty fields are ignored. Filtering happens client-side after the fetch;
// the remote API is always asked for the full collection.
type Filter struct {
	ID   string
	Name string
}

func (f Filter) matches(id, name string) bool {
	if f.ID != "" && f.ID != id {
		return false
	}
	if f.Name != "" && f.Name != name {
		return false
	}
	return true
}

// CreateCardParams are the fields sent when creating a card.
type CreateCardParams struct {
	ListID      string   `json:"idList"`
	Name        string   `json:"name"`
	Description string   `json:"desc,omitempty"`
	LabelIDs    []string `json:"idLabels,omitempty"`
	MemberIDs   []string `json:"idMembers,omitempty"`
}
