package security

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"sync"
	"testing"
)

var (
	testRSAKeyOnce sync.Once
	testRSAKey     *rsa.PrivateKey
	testRSAKeyErr  error
)

func rsaKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testRSAKeyOnce.Do(func() {
		testRSAKey, testRSAKeyErr = GenerateRSAKeyPair()
	})
	if testRSAKeyErr != nil {
		t.Fatalf("GenerateRSAKeyPair() error = %v", testRSAKeyErr)
	}
	return testRSAKey
}

func TestGenerateRSAKeyPair(t *testing.T) {
	key := rsaKey(t)
	if key.N.BitLen() != RSAKeyBits {
		t.Errorf("modulus bits = %d, want %d", key.N.BitLen(), RSAKeyBits)
	}
	if key.E != 65537 {
		t.Errorf("public exponent = %d, want 65537", key.E)
	}
}

func TestRSA_RoundTrip(t *testing.T) {
	key := rsaKey(t)
	msg := []byte("32-byte data key goes here......")

	ct, err := EncryptRSA(&key.PublicKey, msg)
	if err != nil {
		t.Fatalf("EncryptRSA() error = %v", err)
	}
	ct2, err := EncryptRSA(&key.PublicKey, msg)
	if err != nil {
		t.Fatalf("EncryptRSA() error = %v", err)
	}
	if bytes.Equal(ct, ct2) {
		t.Error("OAEP encryption is not randomized")
	}

	got, err := DecryptRSA(key, ct)
	if err != nil {
		t.Fatalf("DecryptRSA() error = %v", err)
	}
	if !bytes.Equal(got, msg) {
		t.Error("DecryptRSA() did not return the original message")
	}
}

func TestRSA_Failures(t *testing.T) {
	key := rsaKey(t)

	ct, err := EncryptRSA(&key.PublicKey, []byte("hello"))
	if err != nil {
		t.Fatalf("EncryptRSA() error = %v", err)
	}
	ct[10] ^= 0x01
	if _, err := DecryptRSA(key, ct); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("DecryptRSA(tampered) error = %v, want ErrAuthenticationFailed", err)
	}

	// OAEP-SHA256 with a 2048-bit key fits at most 190 bytes.
	if _, err := EncryptRSA(&key.PublicKey, make([]byte, 191)); err == nil {
		t.Error("EncryptRSA(191 bytes) expected error")
	}
	if _, err := EncryptRSA(nil, []byte("x")); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("EncryptRSA(nil) error = %v, want ErrInvalidKey", err)
	}
	if _, err := DecryptRSA(nil, ct); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("DecryptRSA(nil) error = %v, want ErrInvalidKey", err)
	}
}

func TestRSA_PEMRoundTrip(t *testing.T) {
	key := rsaKey(t)

	privPEM := MarshalPrivateKeyPEM(key)
	parsedPriv, err := ParsePrivateKeyPEM(privPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKeyPEM() error = %v", err)
	}
	if !parsedPriv.Equal(key) {
		t.Error("parsed private key differs")
	}

	pubPEM, err := MarshalPublicKeyPEM(&key.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPublicKeyPEM() error = %v", err)
	}
	parsedPub, err := ParsePublicKeyPEM(pubPEM)
	if err != nil {
		t.Fatalf("ParsePublicKeyPEM() error = %v", err)
	}
	if !parsedPub.Equal(&key.PublicKey) {
		t.Error("parsed public key differs")
	}
}

func TestRSA_PEMAlternateEncodings(t *testing.T) {
	key := rsaKey(t)

	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalPKCS8PrivateKey() error = %v", err)
	}
	priv, err := ParsePrivateKeyPEM(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8}))
	if err != nil {
		t.Fatalf("ParsePrivateKeyPEM(PKCS8) error = %v", err)
	}
	if !priv.Equal(key) {
		t.Error("PKCS8 private key differs")
	}

	pkcs1Pub := pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&key.PublicKey)})
	pub, err := ParsePublicKeyPEM(pkcs1Pub)
	if err != nil {
		t.Fatalf("ParsePublicKeyPEM(PKCS1) error = %v", err)
	}
	if !pub.Equal(&key.PublicKey) {
		t.Error("PKCS1 public key differs")
	}
}

func TestRSA_PEMInvalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "no block", data: []byte("not pem")},
		{name: "wrong type", data: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePrivateKeyPEM(tt.data); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("ParsePrivateKeyPEM() error = %v, want ErrInvalidKey", err)
			}
			if _, err := ParsePublicKeyPEM(tt.data); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("ParsePublicKeyPEM() error = %v, want ErrInvalidKey", err)
			}
		})
	}
}
