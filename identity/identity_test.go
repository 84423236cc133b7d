package identity

import (
	"testing"
)

func TestGenerateLocalProducesUsableAgreement(t *testing.T) {
	alice, err := GenerateLocal()
	if err != nil {
		t.Fatalf("GenerateLocal (alice): %v", err)
	}
	bob, err := GenerateLocal()
	if err != nil {
		t.Fatalf("GenerateLocal (bob): %v", err)
	}

	if alice.Address == bob.Address {
		t.Fatalf("two freshly generated identities must not share an address")
	}

	aliceRemote, err := NewRemote(alice.Curve25519Public(), alice.P521PublicBytes())
	if err != nil {
		t.Fatalf("NewRemote(alice): %v", err)
	}
	bobRemote, err := NewRemote(bob.Curve25519Public(), bob.P521PublicBytes())
	if err != nil {
		t.Fatalf("NewRemote(bob): %v", err)
	}

	secretFromAlice, err := alice.Agree(bobRemote)
	if err != nil {
		t.Fatalf("alice.Agree(bob): %v", err)
	}
	secretFromBob, err := bob.Agree(aliceRemote)
	if err != nil {
		t.Fatalf("bob.Agree(alice): %v", err)
	}

	if secretFromAlice != secretFromBob {
		t.Fatalf("both sides of an ECDH agreement must derive the same secret")
	}
}

func TestRemoteIdentityCannotAgree(t *testing.T) {
	local, err := GenerateLocal()
	if err != nil {
		t.Fatalf("GenerateLocal: %v", err)
	}
	remote, err := NewRemote(local.Curve25519Public(), local.P521PublicBytes())
	if err != nil {
		t.Fatalf("NewRemote: %v", err)
	}

	if _, err := remote.Agree(local); err == nil {
		t.Fatalf("expected Agree on a remote-only identity to fail")
	}
}

func TestAddressFromPublicKeysDeterministic(t *testing.T) {
	c25519 := [32]byte{1, 2, 3}
	p521 := []byte{4, 5, 6, 7, 8}

	a1 := AddressFromPublicKeys(c25519[:], p521)
	a2 := AddressFromPublicKeys(c25519[:], p521)
	if a1 != a2 {
		t.Fatalf("AddressFromPublicKeys must be deterministic")
	}

	other := AddressFromPublicKeys([]byte{9, 9, 9}, p521)
	if a1 == other {
		t.Fatalf("different public keys should not collide in this small test")
	}
}

func TestAddressIsZero(t *testing.T) {
	var zero Address
	if !zero.IsZero() {
		t.Fatalf("expected zero-value Address to report IsZero")
	}
	nonZero := Address{1}
	if nonZero.IsZero() {
		t.Fatalf("expected non-zero Address to report !IsZero")
	}
}
