package rag

import "testing"

func result(id string, score float32) SearchResult {
	return SearchResult{ID: id, Content: "content-" + id, Score: score}
}

func TestFuseRRF_DualListMembershipWins(t *testing.T) {
	vector := []SearchResult{result("a", 0.9), result("b", 0.8), result("c", 0.7)}
	lexical := []SearchResult{result("b", 3.2), result("d", 1.1)}

	fused := FuseRRF(60, vector, lexical)
	if len(fused) != 4 {
		t.Fatalf("expected 4 fused results, got %d", len(fused))
	}
	if fused[0].ID != "b" {
		t.Errorf("expected b (present in both lists) first, got %s", fused[0].ID)
	}
}

func TestFuseRRF_RankMonotonicity(t *testing.T) {
	list := []SearchResult{result("first", 0.9), result("second", 0.5), result("third", 0.1)}

	fused := FuseRRF(60, list)
	for i := 1; i < len(fused); i++ {
		if fused[i-1].Score < fused[i].Score {
			t.Errorf("fused scores not monotonic at %d", i)
		}
	}
	if fused[0].ID != "first" || fused[2].ID != "third" {
		t.Errorf("single-list fusion must preserve order, got %v", []string{fused[0].ID, fused[1].ID, fused[2].ID})
	}
}

func TestFuseRRF_ScoresReplaced(t *testing.T) {
	list := []SearchResult{result("a", 0.95)}

	fused := FuseRRF(60, list)
	want := float32(1.0 / 61.0)
	if fused[0].Score != want {
		t.Errorf("expected RRF score %f, got %f", want, fused[0].Score)
	}
}

func TestFuseRRF_EmptyLists(t *testing.T) {
	fused := FuseRRF(60, nil, []SearchResult{})
	if len(fused) != 0 {
		t.Errorf("expected empty fusion, got %d", len(fused))
	}
}

func TestFuseRRF_DeterministicTieBreak(t *testing.T) {
	listA := []SearchResult{result("zed", 0.9)}
	listB := []SearchResult{result("ant", 0.9)}

	for i := 0; i < 5; i++ {
		fused := FuseRRF(60, listA, listB)
		if fused[0].ID != "ant" {
			t.Fatalf("expected ID tie-break, got %s first", fused[0].ID)
		}
	}
}

func TestFuseRRF_DefaultK(t *testing.T) {
	list := []SearchResult{result("a", 0.5)}
	fused := FuseRRF(0, list)
	want := float32(1.0 / 61.0)
	if fused[0].Score != want {
		t.Errorf("expected default k=60, score %f, got %f", want, fused[0].Score)
	}
}
