package search

import (
	"testing"

	"stringshare/internal/model"
)

func TestMarkFollowingTouchesOnlyTarget(t *testing.T) {
	r := NewResults()
	r.SetResults([]model.UserSummary{
		{Username: "ada", FullName: "Ada L"},
		{Username: "bob", FullName: "Bob"},
		{Username: "eve", FullName: "Eve", IsFollowing: true},
	})

	if !r.MarkFollowing("bob") {
		t.Fatalf("expected change")
	}
	users := r.Users()
	if users[0].IsFollowing {
		t.Fatalf("ada should be untouched")
	}
	if !users[1].IsFollowing {
		t.Fatalf("bob should be following")
	}
	if !users[2].IsFollowing {
		t.Fatalf("eve should be untouched")
	}

	// already following: no change reported
	if r.MarkFollowing("eve") {
		t.Fatalf("expected no change for eve")
	}
	// unknown username: no change
	if r.MarkFollowing("nope") {
		t.Fatalf("expected no change for unknown user")
	}
}

func TestSetResultsReplacesSequence(t *testing.T) {
	r := NewResults()
	var notified int
	r.Subscribe(func() { notified++ })

	r.SetResults([]model.UserSummary{{Username: "ada"}})
	r.SetResults(nil)
	if len(r.Users()) != 0 {
		t.Fatalf("expected empty results")
	}
	if _, ok := r.Get("ada"); ok {
		t.Fatalf("ada should be gone")
	}
	if notified != 2 {
		t.Fatalf("expected 2 notifications, got %d", notified)
	}
}
