package types

// Role is the node's function within the current round, a deterministic
// function of (my public key, main, confidants, stage3 outcome).
type Role uint8

const (
	RoleNormal Role = iota
	RoleConfidant
	RoleMain
	RoleWriter
)

func (r Role) String() string {
	switch r {
	case RoleNormal:
		return "Normal"
	case RoleConfidant:
		return "Confidant"
	case RoleMain:
		return "Main"
	case RoleWriter:
		return "Writer"
	default:
		return "Unknown"
	}
}

// RoundTable is immutable for the duration of a round: it names the elected
// leader ("general"/main) and the declared confidant set, plus the packet
// hashes the main proposes for inclusion.
type RoundTable struct {
	Round      RoundNumber
	General    PublicKey
	Confidants []PublicKey
	Hashes     []Hash
}

// Valid reports whether the confidant count satisfies the deployment bounds.
func (rt RoundTable) Valid() bool {
	n := len(rt.Confidants)
	return n >= MinConfidants && n <= MaxConfidants
}

// IndexOf returns the confidant index of pk, or -1 if pk is not a confidant.
func (rt RoundTable) IndexOf(pk PublicKey) int {
	for i, c := range rt.Confidants {
		if c == pk {
			return i
		}
	}
	return -1
}
