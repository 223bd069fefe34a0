package dns_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/solo-rt/solo/dns"
	"github.com/solo-rt/solo/internal/task"
)

func TestResolveLoopbackCompletesEventually(t *testing.T) {
	future := dns.Resolve("localhost")

	_, ready := future.Poll(task.NewNoopWaker())
	require.False(t, ready, "first Poll should submit to the pool and return Pending")

	deadline := time.Now().Add(5 * time.Second)
	var addrs any
	for time.Now().Before(deadline) {
		a, r := future.Poll(task.NewNoopWaker())
		if r {
			addrs = a
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.NotNil(t, addrs, "expected resolution to complete within the deadline")
	require.NoError(t, future.Err())
}

func TestResolveUnknownHostSurfacesError(t *testing.T) {
	future := dns.Resolve("this-host-does-not-exist.invalid")

	_, ready := future.Poll(task.NewNoopWaker())
	require.False(t, ready)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		_, r := future.Poll(task.NewNoopWaker())
		if r {
			require.Error(t, future.Err())
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("resolution did not complete within the deadline")
}
