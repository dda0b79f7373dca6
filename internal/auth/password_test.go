package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordRoundTrip(t *testing.T) {
	t.Parallel()

	hashed, err := HashPassword("correct horse battery staple", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := ComparePassword(hashed, "correct horse battery staple"); err != nil {
		t.Fatalf("ComparePassword with matching password: %v", err)
	}
	if err := ComparePassword(hashed, "wrong password"); err == nil {
		t.Fatal("ComparePassword accepted a wrong password")
	}
}

func TestHashPasswordOutOfRangeCost(t *testing.T) {
	t.Parallel()

	hashed, err := HashPassword("s3cret", 0)
	if err != nil {
		t.Fatalf("HashPassword with zero cost: %v", err)
	}
	if err := ComparePassword(hashed, "s3cret"); err != nil {
		t.Fatalf("ComparePassword: %v", err)
	}

	cost, err := bcrypt.Cost([]byte(hashed))
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Fatalf("cost = %d, want default %d", cost, bcrypt.DefaultCost)
	}
}
