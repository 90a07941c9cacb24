package enumerate_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/channelvisor/tg-members/internal/testutil"
	"github.com/channelvisor/tg-members/pkg/enumerate"
	"github.com/channelvisor/tg-members/pkg/telegram"
)

// TestEngine_DefeatsQueryCap runs the real client against a gateway that
// caps every single query at 5 results. The filter cover still recovers
// the full 20-member channel.
func TestEngine_DefeatsQueryCap(t *testing.T) {
	gateway := testutil.NewMockGateway()
	defer gateway.Close()

	usernames := []string{
		"alice", "bob", "carol", "dave", "erin",
		"frank", "grace", "heidi", "ivan", "judy",
		"kevin", "laura", "mallory", "nina", "oscar",
		"peggy", "quinn", "rupert", "sybil", "trent",
	}
	members := make([]testutil.FakeMember, len(usernames))
	for i, name := range usernames {
		members[i] = testutil.FakeMember{ID: int64(i + 1), Username: name}
	}

	gateway.AddChannel("@capped", testutil.FakeChannel{
		ID:      2002,
		Title:   "Capped Channel",
		Members: members,
	})
	gateway.SetQueryCap(5)

	cfg := telegram.DefaultConfig(gateway.URL(), "test-token")
	cfg.Retry.InitialBackoff = time.Millisecond
	client, err := telegram.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ecfg := enumerate.DefaultConfig()
	ecfg.PageSize = 5
	ecfg.MinInterval = 0
	orch := enumerate.New(client, ecfg)

	result, err := orch.Run(context.Background(), "@capped")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Status != enumerate.StatusCompleted {
		t.Errorf("Status = %q, want completed", result.Status)
	}
	if result.Unique() != len(usernames) {
		found := make(map[int64]bool)
		for _, m := range result.Members {
			found[m.ID] = true
		}
		var missing []string
		for i, name := range usernames {
			if !found[int64(i+1)] {
				missing = append(missing, fmt.Sprintf("%d(%s)", i+1, name))
			}
		}
		t.Errorf("Unique() = %d, want %d; missing %v", result.Unique(), len(usernames), missing)
	}
	if cov := result.Coverage(); cov != 1.0 {
		t.Errorf("Coverage() = %v, want 1.0", cov)
	}
	if len(result.FilterErrors) != 0 {
		t.Errorf("FilterErrors = %+v, want none", result.FilterErrors)
	}

	// A naive single uncapped query would have seen only 5 members.
	direct, err := client.ListMembers(context.Background(), "@capped", "", 0, 200)
	if err != nil {
		t.Fatalf("ListMembers() error = %v", err)
	}
	if len(direct) != 5 {
		t.Errorf("capped direct query returned %d, want 5", len(direct))
	}
}
