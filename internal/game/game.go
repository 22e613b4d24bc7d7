package game

// Version of the client.
var Version = "v0.1.0"

// ChatSeparator joins the four fields of a raw chat line:
// timestamp::player_id::username::text
const ChatSeparator = "::"

// MinPlayersToStart is the seat occupancy required before the owner may start.
var MinPlayersToStart = 2
