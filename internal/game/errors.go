package game

import "errors"

// Rejection categories. All of these are recovered at the room boundary and
// surfaced either on the next broadcast snapshot (format/authorization) or as
// an error envelope to the offending connection (join conflicts). None of
// them escape to the transport as failures.
var (
	// ErrBadGuess rejects a guess that is not 4 pairwise-unique digits in
	// [1000, 9999].
	ErrBadGuess = errors.New("guess must be a 4-digit number with unique digits")

	// ErrNotPlaying rejects a guess from anyone who is not an active player.
	ErrNotPlaying = errors.New("only active players may guess")

	// ErrObserverReady rejects a ready action from an observer.
	ErrObserverReady = errors.New("observers cannot ready up")

	// ErrAlreadyStarted rejects a ready action outside the lobby.
	ErrAlreadyStarted = errors.New("game already started")

	// ErrNameConflict rejects a join that re-asserts a different role for a
	// name already admitted to the room. The first admitted role stays
	// authoritative.
	ErrNameConflict = errors.New("name already joined with a different role")

	// ErrNotJoined rejects actions from a connection that never joined.
	ErrNotJoined = errors.New("join a room first")

	// ErrRoomClosed marks a room torn down between lookup and attach. Callers
	// recover by creating a fresh room, never by failing the client.
	ErrRoomClosed = errors.New("room has been closed")
)
