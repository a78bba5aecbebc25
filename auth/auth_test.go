package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/meinhoongagan/hospital-booking/models"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "secret123" {
		t.Fatal("password stored in clear")
	}
	if !CheckPassword(hash, "secret123") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestToken(t *testing.T) {
	u := &models.User{ID: "u-1", Email: "pat@example.com", Role: models.RolePatient}

	tok, err := MakeToken(u, "s3cret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		raw     string
		secret  string
		wantErr bool
	}{
		{"valid", tok, "s3cret", false},
		{"wrong secret", tok, "other", true},
		{"garbage", "not.a.token", "s3cret", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseToken(tt.raw, tt.secret)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if c.UserID != "u-1" || c.Role != models.RolePatient || c.Email != "pat@example.com" {
				t.Errorf("unexpected claims %+v", c)
			}
		})
	}
}

func TestExpiredToken(t *testing.T) {
	u := &models.User{ID: "u-1", Role: models.RoleAdmin}
	tok, err := MakeToken(u, "s3cret", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken(tok, "s3cret"); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestRejectsNoneAlg(t *testing.T) {
	c := Claims{UserID: "u-1", Role: models.RoleAdmin}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken(raw, "s3cret"); err == nil {
		t.Fatal("unsigned token accepted")
	}
}

func TestKeyFuncOnlyAcceptsHMAC(t *testing.T) {
	kf := KeyFunc("s3cret")
	for _, m := range []jwt.SigningMethod{jwt.SigningMethodHS256, jwt.SigningMethodHS512} {
		key, err := kf(jwt.New(m))
		if err != nil || string(key.([]byte)) != "s3cret" {
			t.Errorf("%s: got %v %v", m.Alg(), key, err)
		}
	}
	for _, m := range []jwt.SigningMethod{jwt.SigningMethodRS256, jwt.SigningMethodES256, jwt.SigningMethodNone} {
		if _, err := kf(jwt.New(m)); err != ErrBadToken {
			t.Errorf("%s: err = %v, want ErrBadToken", m.Alg(), err)
		}
	}
}
