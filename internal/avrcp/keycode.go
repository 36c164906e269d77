package avrcp

// KeyCode is the stack's pass-through command enumeration.
type KeyCode int

const (
	KeyPlay KeyCode = iota
	KeyPause
	KeyStop
	KeyNext
	KeyPrevious
	KeyFastForward
	KeyRewind
	KeyVolumeUp
	KeyVolumeDown
	KeyMute
	KeyPower
)

// KeyStatus is the press/release phase of a pass-through command.
type KeyStatus int

const (
	KeyPressed KeyStatus = iota
	KeyReleased
)

var keyCodeNames = map[string]KeyCode{
	"play":        KeyPlay,
	"pause":       KeyPause,
	"stop":        KeyStop,
	"next":        KeyNext,
	"previous":    KeyPrevious,
	"fastForward": KeyFastForward,
	"rewind":      KeyRewind,
	"volumeUp":    KeyVolumeUp,
	"volumeDown":  KeyVolumeDown,
	"mute":        KeyMute,
	"power":       KeyPower,
}

var keyCodeStrings = func() map[KeyCode]string {
	m := make(map[KeyCode]string, len(keyCodeNames))
	for s, k := range keyCodeNames {
		m[k] = s
	}
	return m
}()

var keyStatusNames = map[string]KeyStatus{
	"pressed":  KeyPressed,
	"released": KeyReleased,
}

func parseKeyCode(s string) (KeyCode, bool) {
	k, ok := keyCodeNames[s]
	return k, ok
}

func parseKeyStatus(s string) (KeyStatus, bool) {
	k, ok := keyStatusNames[s]
	return k, ok
}

func (k KeyCode) String() string {
	if s, ok := keyCodeStrings[k]; ok {
		return s
	}
	return "unknown"
}

func (s KeyStatus) String() string {
	if s == KeyReleased {
		return "released"
	}
	return "pressed"
}
