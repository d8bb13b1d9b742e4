package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Action layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrUnknownAction = "E_UNKNOWN_ACTION"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrNoResource    = "E_NO_RESOURCE"
	ErrCapacity      = "E_CAPACITY"
	ErrConflict      = "E_CONFLICT"
	ErrGameOver      = "E_GAME_OVER"
	ErrNoEffect      = "E_NO_EFFECT"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrBadRequest:      {},
	ErrUnknownAction:   {},
	ErrInvalidTarget:   {},
	ErrNoResource:      {},
	ErrCapacity:        {},
	ErrConflict:        {},
	ErrGameOver:        {},
	ErrNoEffect:        {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
