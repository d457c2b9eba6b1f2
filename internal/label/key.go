package label

// KeyCI is a label compared and hashed case-insensitively. The original
// casing of the viewed bytes is kept.
type KeyCI struct {
	Label
	hash uint16 // sum of lowered bytes
}

// NewKeyCI computes the case-insensitive hash of l.
func NewKeyCI(l Label) KeyCI {
	return KeyCI{Label: l, hash: HashFold(l.Bytes())}
}

func (k KeyCI) Hash() uint16 { return k.hash }

func (k KeyCI) Equal(x KeyCI) bool {
	return k.hash == x.hash && k.Label.EqualFold(x.Label)
}

// MatchString reports whether k equals s ignoring ASCII case. hash must be HashFoldString(s).
func (k KeyCI) MatchString(hash uint16, s string) bool {
	return k.hash == hash && k.Label.EqualFoldString(s)
}

// HashFold sums the ASCII-lowered bytes of p.
func HashFold(p []byte) uint16 {
	hash := uint16(0)
	for _, b := range p {
		hash += uint16(lower(b))
	}
	return hash
}

// HashFoldString is HashFold for strings.
func HashFoldString(s string) uint16 {
	hash := uint16(0)
	for i := 0; i < len(s); i++ {
		hash += uint16(lower(s[i]))
	}
	return hash
}
