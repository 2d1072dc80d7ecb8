package crypto

import (
	"crypto/dsa"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"
)

func TestSignVerifyRSA(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	digest, err := Digest(HashSha256, []byte("the HMAC or plaintext hash"))
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}

	sig, err := SignRSA(priv, HashSha256, digest)
	if err != nil {
		t.Fatalf("SignRSA: %v", err)
	}
	if err := VerifyRSA(&priv.PublicKey, HashSha256, digest, sig); err != nil {
		t.Errorf("VerifyRSA should accept a valid signature: %v", err)
	}

	other, _ := Digest(HashSha256, []byte("tampered"))
	if err := VerifyRSA(&priv.PublicKey, HashSha256, other, sig); err == nil {
		t.Error("VerifyRSA should reject a signature over different data")
	}
}

func TestSignVerifyDSA(t *testing.T) {
	var priv dsa.PrivateKey
	if err := dsa.GenerateParameters(&priv.Parameters, rand.Reader, dsa.L1024N160); err != nil {
		t.Fatalf("GenerateParameters: %v", err)
	}
	if err := dsa.GenerateKey(&priv, rand.Reader); err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	digest, _ := Digest(HashSha256, []byte("entry digest"))
	// DSA digests must not exceed Q's bit length; truncate to match.
	digest = digest[:20]

	sig, err := SignDSA(&priv, digest)
	if err != nil {
		t.Fatalf("SignDSA: %v", err)
	}
	if err := VerifyDSA(&priv.PublicKey, digest, sig); err != nil {
		t.Errorf("VerifyDSA should accept a valid signature: %v", err)
	}

	tampered := append([]byte(nil), digest...)
	tampered[0] ^= 0xff
	if err := VerifyDSA(&priv.PublicKey, tampered, sig); err == nil {
		t.Error("VerifyDSA should reject a signature over different data")
	}
}

func TestSignVerifyECDSA(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	digest, _ := Digest(HashSha256, []byte("entry digest"))

	sig, err := SignECDSA(priv, digest)
	if err != nil {
		t.Fatalf("SignECDSA: %v", err)
	}
	if err := VerifyECDSA(&priv.PublicKey, digest, sig); err != nil {
		t.Errorf("VerifyECDSA should accept a valid signature: %v", err)
	}

	tampered := append([]byte(nil), digest...)
	tampered[0] ^= 0xff
	if err := VerifyECDSA(&priv.PublicKey, tampered, sig); err == nil {
		t.Error("VerifyECDSA should reject a signature over different data")
	}
}
