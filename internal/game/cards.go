package game

import "strings"

// Card as sent by the server, e.g. {"rank": "queen", "suit": "hearts"}.
type Card struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

// Short returns a compact label such as "Qh" or "10s".
func (c Card) Short() string {
	if c.Rank == "" || c.Suit == "" {
		return "??"
	}
	rank := c.Rank
	if len(rank) > 2 {
		rank = strings.ToUpper(rank[:1])
	}
	return rank + strings.ToLower(c.Suit[:1])
}

// Hand is a set of cards plus the rank/suit aggregates the server derives.
// The same shape is used for a player's hand and the community board.
type Hand struct {
	Cards      []Card         `json:"cards"`
	Ranks      []string       `json:"ranks"`
	Suits      []string       `json:"suits"`
	RankCounts map[string]int `json:"rank_counts"`
	SuitCounts map[string]int `json:"suit_counts"`
}

func (h Hand) String() string {
	labels := make([]string, len(h.Cards))
	for i, c := range h.Cards {
		labels[i] = c.Short()
	}
	return strings.Join(labels, " ")
}
