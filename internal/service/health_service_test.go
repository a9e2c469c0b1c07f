package service

import (
	"context"
	"errors"
	"testing"

	"newsletteradmin/internal/testutil"
)

type fakeQueue bool

func (q fakeQueue) IsConnected() bool { return bool(q) }

var (
	pingOK   = PingFunc(func(ctx context.Context) error { return nil })
	pingDown = PingFunc(func(ctx context.Context) error { return errors.New("down") })
)

func TestHealthChecker_AllConnected(t *testing.T) {
	h := NewHealthService(pingOK, pingOK, fakeQueue(true), "1.0.0")

	status := h.CheckHealth(context.Background())
	testutil.AssertEqual(t, status.Status, StatusHealthy)
	testutil.AssertEqual(t, status.Services["database"], StatusConnected)
	testutil.AssertEqual(t, status.Version, "1.0.0")
}

func TestHealthChecker_DatabaseDown(t *testing.T) {
	h := NewHealthService(pingDown, pingOK, fakeQueue(true), "")

	status := h.CheckHealth(context.Background())
	testutil.AssertEqual(t, status.Status, StatusUnhealthy)
}

func TestHealthChecker_Degraded(t *testing.T) {
	h := NewHealthService(pingOK, pingDown, fakeQueue(true), "")
	testutil.AssertEqual(t, h.CheckHealth(context.Background()).Status, StatusDegraded)

	h = NewHealthService(pingOK, pingOK, nil, "")
	status := h.CheckHealth(context.Background())
	testutil.AssertEqual(t, status.Status, StatusDegraded)
	testutil.AssertEqual(t, status.Services["queue"], StatusDisconnected)
}
