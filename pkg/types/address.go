package types

// WalletId is the compact 32-bit local alias for a PublicKey address. The
// mapping between a WalletId and its PublicKey is owned by the node's wallet
// store and is bijective within that node's local view.
type WalletId uint32

// AddressKind discriminates the two representations an Address can hold.
type AddressKind uint8

const (
	// AddressPublicKey identifies a wallet by its full 32-byte public key.
	AddressPublicKey AddressKind = iota
	// AddressWalletId identifies a wallet by its compact local alias.
	AddressWalletId
)

// Address is either a PublicKey or a compact WalletId. Exactly one of the two
// payload fields is meaningful, selected by Kind.
type Address struct {
	Kind AddressKind
	Key  PublicKey
	ID   WalletId
}

// AddressFromPublicKey wraps a public key as an Address.
func AddressFromPublicKey(pk PublicKey) Address {
	return Address{Kind: AddressPublicKey, Key: pk}
}

// AddressFromWalletId wraps a wallet id as an Address.
func AddressFromWalletId(id WalletId) Address {
	return Address{Kind: AddressWalletId, ID: id}
}

// AddressResolver converts between the two Address representations using a
// node-local, bijective mapping. Implementations back this with the wallet
// store's WalletData table.
type AddressResolver interface {
	ResolveWalletId(pk PublicKey) (WalletId, bool)
	ResolvePublicKey(id WalletId) (PublicKey, bool)
}

// Canonical rewrites a into its PublicKey form using resolver, so that two
// addresses referring to the same wallet compare equal regardless of which
// form they arrived in.
func (a Address) Canonical(resolver AddressResolver) (Address, bool) {
	if a.Kind == AddressPublicKey {
		return a, true
	}
	pk, ok := resolver.ResolvePublicKey(a.ID)
	if !ok {
		return Address{}, false
	}
	return AddressFromPublicKey(pk), true
}
