package enumerate

import (
	"testing"

	"github.com/channelvisor/tg-members/pkg/telegram"
)

func TestSet_Merge(t *testing.T) {
	set := NewSet()

	if added := set.Merge(membersWithIDs(1, 2, 3)); added != 3 {
		t.Errorf("Merge() added = %d, want 3", added)
	}
	if added := set.Merge(membersWithIDs(2, 3, 4)); added != 1 {
		t.Errorf("Merge() added = %d, want 1 (overlap ignored)", added)
	}
	if set.Len() != 4 {
		t.Errorf("Len() = %d, want 4", set.Len())
	}
}

func TestSet_MergeIdempotent(t *testing.T) {
	set := NewSet()
	batch := membersWithIDs(5, 6, 7)

	set.Merge(batch)
	if added := set.Merge(batch); added != 0 {
		t.Errorf("re-merging the same batch added %d, want 0", added)
	}
	if set.Len() != 3 {
		t.Errorf("Len() = %d, want 3", set.Len())
	}
}

func TestSet_SizeIndependentOfMergeOrder(t *testing.T) {
	a := membersWithIDs(1, 2, 3, 4)
	b := membersWithIDs(3, 4, 5)

	forward := NewSet()
	forward.Merge(a)
	forward.Merge(b)

	backward := NewSet()
	backward.Merge(b)
	backward.Merge(a)

	if forward.Len() != backward.Len() {
		t.Errorf("merge order changed the size: %d vs %d", forward.Len(), backward.Len())
	}
	if forward.Len() != 5 {
		t.Errorf("Len() = %d, want 5", forward.Len())
	}
}

func TestSet_FirstSeenWins(t *testing.T) {
	set := NewSet()

	// The empty filter often returns fuller records than a narrow one;
	// whichever arrived first must keep its attributes.
	set.Merge([]telegram.Member{{ID: 42, Username: "alice", Phone: "+123"}})
	set.Merge([]telegram.Member{{ID: 42, Username: "alice"}})

	members := set.Members()
	if len(members) != 1 {
		t.Fatalf("len(members) = %d, want 1", len(members))
	}
	if members[0].Phone != "+123" {
		t.Errorf("Phone = %q, want the first observation kept", members[0].Phone)
	}
}

func TestSet_MembersReturnsCopy(t *testing.T) {
	set := NewSet()
	set.Merge(membersWithIDs(1, 2))

	snapshot := set.Members()
	snapshot[0].ID = 999

	if set.Members()[0].ID != 1 {
		t.Error("mutating the returned slice changed the set")
	}
}

func TestSet_PreservesDiscoveryOrder(t *testing.T) {
	set := NewSet()
	set.Merge(membersWithIDs(3, 1))
	set.Merge(membersWithIDs(2, 1))

	want := []int64{3, 1, 2}
	members := set.Members()
	if len(members) != len(want) {
		t.Fatalf("len = %d, want %d", len(members), len(want))
	}
	for i, id := range want {
		if members[i].ID != id {
			t.Errorf("members[%d].ID = %d, want %d", i, members[i].ID, id)
		}
	}
}
