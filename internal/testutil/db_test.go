package testutil

import (
	"strings"
	"testing"
)

func TestDBName(t *testing.T) {
	if got := dbName("TestStore/CreateAndGet"); got != "stratastore_test_TestStore_CreateAndGet" {
		t.Errorf("dbName() = %q", got)
	}

	long := "TestPurchase_VerifyPayment/" + strings.Repeat("delivery_failure_", 5)
	a := dbName(long)
	b := dbName(long + "x")
	if len(a) > 63 || len(b) > 63 {
		t.Errorf("names too long: %d, %d", len(a), len(b))
	}
	if a == b {
		t.Errorf("distinct long test names collided: %q", a)
	}
}
