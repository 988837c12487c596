package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashers(t *testing.T) {
	for name, h := range map[string]Hasher{
		"bcrypt":   NewBcrypt(bcrypt.MinCost),
		"argon2id": NewArgon2id(Argon2idParams{Time: 1, Memory: 64, Threads: 1}),
	} {
		hash, err := h.Hash("b4l0u")
		if err != nil {
			t.Fatalf("%v: %v", name, err)
		}
		if strings.Contains(hash, "b4l0u") {
			t.Fatalf("%v: hash should not contain the plain text password", name)
		}
		ok, err := h.Verify("b4l0u", hash)
		if err != nil {
			t.Fatalf("%v: %v", name, err)
		} else if !ok {
			t.Fatalf("%v: correct password should verify", name)
		}
		ok, err = h.Verify("t4rt1fl3tt3", hash)
		if err != nil {
			t.Fatalf("%v: wrong password should not be an error, got %v", name, err)
		} else if ok {
			t.Fatalf("%v: wrong password should not verify", name)
		}
		other, err := h.Hash("b4l0u")
		if err != nil {
			t.Fatal(err)
		} else if other == hash {
			t.Errorf("%v: hashing twice should use different salts", name)
		}
	}
}

func TestArgon2idMalformed(t *testing.T) {
	h := NewArgon2id(Argon2idParams{Time: 1, Memory: 64, Threads: 1})
	for _, bad := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=64,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=1$m=64,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=64$c2FsdA$a2V5",
		"$argon2id$v=19$m=64,t=1,p=1$!!$a2V5",
		"$argon2id$v=19$m=64,t=0,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=64,t=1,p=0$c2FsdA$a2V5",
	} {
		if _, err := h.Verify("pw", bad); err == nil {
			t.Errorf("hash %q should be rejected", bad)
		}
	}
}

func TestByName(t *testing.T) {
	if _, ok := mustHasher(t, "").(*Bcrypt); !ok {
		t.Error("empty name should select bcrypt")
	}
	if _, ok := mustHasher(t, Argon2idName).(*Argon2id); !ok {
		t.Error("argon2id name should select argon2id")
	}
	_, err := ByName("md5")
	if !errors.Is(err, UnknownHasher{Name: "md5"}) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestBcryptClampsCost(t *testing.T) {
	if NewBcrypt(1).cost != bcrypt.MinCost {
		t.Error("cost below minimum should be clamped")
	}
	if NewBcrypt(100).cost != bcrypt.MaxCost {
		t.Error("cost above maximum should be clamped")
	}
}

func mustHasher(t *testing.T, name string) Hasher {
	h, err := ByName(name)
	if err != nil {
		t.Fatal(err)
	}
	return h
}
