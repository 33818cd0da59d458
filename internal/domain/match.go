package domain

import "time"

// Match is the finalized outcome of a 1v1 matchup. At most one match exists
// per catalog entry; participants are distinct and ties are excluded, so the
// winner is always the side with the strictly higher score.
type Match struct {
	ID        int64
	EntryID   int64
	Player1ID int64
	Player2ID int64
	Score1    int
	Score2    int
	WinnerID  int64
	Official  bool
	PlayedAt  time.Time
	Location  *string
	Notes     *string
	CreatedAt time.Time
}

// WinnerOf returns the participant with the strictly greater score.
// Callers must have excluded ties already.
func WinnerOf(player1ID, player2ID int64, score1, score2 int) int64 {
	if score1 > score2 {
		return player1ID
	}
	return player2ID
}

// StatLine is an optional box score supplied by richer entry paths.
type StatLine struct {
	Points    int `json:"points"`
	Rebounds  int `json:"rebounds"`
	Assists   int `json:"assists"`
	Steals    int `json:"steals"`
	Blocks    int `json:"blocks"`
	Turnovers int `json:"turnovers"`
}

// ParticipantStat is one row per participant per match, unique on
// (match id, player id). Fields default to zero unless a StatLine was given.
type ParticipantStat struct {
	ID       int64
	MatchID  int64
	PlayerID int64
	StatLine
	CreatedAt time.Time
}
