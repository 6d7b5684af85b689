package passwordhash

// Hasher transforms a password before it leaves the service.
type Hasher interface {
	Hash(password string) (string, error)
}

// Limited is implemented by hashers that only accept passwords up to a byte length.
type Limited interface {
	MaxPasswordBytes() int
}

// MaxPasswordBytes returns h's byte limit, or 0 when it has none.
func MaxPasswordBytes(h Hasher) int {
	if l, ok := h.(Limited); ok {
		return l.MaxPasswordBytes()
	}
	return 0
}
