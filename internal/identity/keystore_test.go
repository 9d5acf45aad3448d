package identity

import "testing"

func TestGetOrCreate_Deterministic(t *testing.T) {
	ks := NewKeystore()
	signCount := 0
	sign := func(msg []byte) ([]byte, error) {
		signCount++
		sig := make([]byte, 65)
		for i := range sig {
			sig[i] = byte(i + 1)
		}
		return sig, nil
	}

	kp1, err := ks.GetOrCreate("0xABCDEF0000000000000000000000000000000000", sign)
	if err != nil {
		t.Fatal(err)
	}
	kp2, err := ks.GetOrCreate("0xabcdef0000000000000000000000000000000000", sign)
	if err != nil {
		t.Fatal(err)
	}
	if string(kp1.Pub) != string(kp2.Pub) {
		t.Fatal("same address should derive the same public key regardless of case")
	}
	if signCount != 1 {
		t.Fatalf("expected wallet_sign to be invoked once (cached after), got %d calls", signCount)
	}
}

func TestGetOrCreate_PubLength(t *testing.T) {
	ks := NewKeystore()
	sign := func(msg []byte) ([]byte, error) {
		sig := make([]byte, 65)
		sig[10] = 0x42
		return sig, nil
	}
	kp, err := ks.GetOrCreate("0x1111111111111111111111111111111111111111", sign)
	if err != nil {
		t.Fatal(err)
	}
	if len(kp.Pub) != 33 {
		t.Fatalf("expected 33-byte compressed pub, got %d", len(kp.Pub))
	}
}

func TestGetOrCreate_SignatureTooShort(t *testing.T) {
	ks := NewKeystore()
	sign := func(msg []byte) ([]byte, error) { return make([]byte, 10), nil }
	_, err := ks.GetOrCreate("0x2222222222222222222222222222222222222222", sign)
	if err != ErrSignatureTooShort {
		t.Fatalf("expected ErrSignatureTooShort, got %v", err)
	}
}

func TestClear(t *testing.T) {
	ks := NewKeystore()
	addr := "0x3333333333333333333333333333333333333333"
	sign := func(msg []byte) ([]byte, error) { return make([]byte, 65), nil }
	if _, err := ks.GetOrCreate(addr, sign); err != nil {
		t.Fatal(err)
	}
	if _, ok := ks.CachedPub(addr); !ok {
		t.Fatal("expected cached pub before Clear")
	}
	ks.Clear(addr)
	if _, ok := ks.CachedPub(addr); ok {
		t.Fatal("expected no cached pub after Clear")
	}
}
