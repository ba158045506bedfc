package contracts_test

import (
	"testing"
	"time"

	"github.com/babar-raza/tbcv/pkg/contracts"
)

func TestSystemClockNowIsCurrent(t *testing.T) {
	before := time.Now()
	got := contracts.SystemClock{}.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("SystemClock{}.Now() = %v, want between %v and %v", got, before, after)
	}
}
