// ID Commons - Authentication Cache and Session Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/idcommons

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordLogin(t *testing.T) {
	tests := []struct {
		name   string
		result string
		times  int
	}{
		{name: "success", result: "success", times: 3},
		{name: "bad credentials", result: "bad_credentials", times: 2},
		{name: "denied", result: "denied", times: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(AuthLogins.WithLabelValues(tt.result))
			for i := 0; i < tt.times; i++ {
				RecordLogin(tt.result)
			}
			after := testutil.ToFloat64(AuthLogins.WithLabelValues(tt.result))
			if after-before != float64(tt.times) {
				t.Errorf("logins[%s] grew by %v, want %d", tt.result, after-before, tt.times)
			}
		})
	}
}

func TestRecordLogout(t *testing.T) {
	before := testutil.ToFloat64(AuthLogouts.WithLabelValues("expired"))
	RecordLogout("expired")
	if got := testutil.ToFloat64(AuthLogouts.WithLabelValues("expired")); got != before+1 {
		t.Errorf("logouts[expired] = %v, want %v", got, before+1)
	}
}

func TestGauges(t *testing.T) {
	SetAuthenticatedUsers(7)
	if got := testutil.ToFloat64(AuthAuthenticatedUsers); got != 7 {
		t.Errorf("authenticated users = %v, want 7", got)
	}

	SetCacheExpireAfter(31 * time.Minute)
	if got := testutil.ToFloat64(AuthCacheExpireAfter); got != 1860 {
		t.Errorf("expire after = %v, want 1860", got)
	}

	SetWSSessions(2, 5)
	if got := testutil.ToFloat64(WSSessions.WithLabelValues("anonymous")); got != 2 {
		t.Errorf("anonymous sessions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(WSSessions.WithLabelValues("authenticated")); got != 5 {
		t.Errorf("authenticated sessions = %v, want 5", got)
	}
}

func TestRecordCacheRemoval(t *testing.T) {
	for _, cause := range []string{"explicit", "replaced", "expired"} {
		before := testutil.ToFloat64(AuthCacheRemovals.WithLabelValues(cause))
		RecordCacheRemoval(cause)
		if got := testutil.ToFloat64(AuthCacheRemovals.WithLabelValues(cause)); got != before+1 {
			t.Errorf("removals[%s] = %v, want %v", cause, got, before+1)
		}
	}
}

func TestRecordWSMessageAndDispatch(t *testing.T) {
	before := testutil.ToFloat64(WSMessages.WithLabelValues("sent"))
	RecordWSMessage("sent")
	if got := testutil.ToFloat64(WSMessages.WithLabelValues("sent")); got != before+1 {
		t.Errorf("messages[sent] = %v, want %v", got, before+1)
	}

	RecordWSDispatch(2 * time.Millisecond)
	if n := testutil.CollectAndCount(WSDispatchDuration); n != 1 {
		t.Errorf("dispatch histogram collected %d metrics, want 1", n)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/auth/login", "200"))
	RecordAPIRequest("POST", "/api/auth/login", 200, 15*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/auth/login", "200"))
	if after != before+1 {
		t.Errorf("requests = %v, want %v", after, before+1)
	}
}
