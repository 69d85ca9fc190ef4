package safego

import (
	"sync"
	"testing"

	"go.uber.org/zap"
)

func TestGo_RunsFunction(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	ran := false
	Go(zap.NewNop(), "test", func() {
		defer wg.Done()
		ran = true
	})
	wg.Wait()
	if !ran {
		t.Fatal("expected the launched function to run")
	}
}

func TestGo_RecoversPanic(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	Go(zap.NewNop(), "panicker", func() {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait()
}
