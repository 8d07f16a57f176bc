package model

import "testing"

func TestProductValidate(t *testing.T) {
	valid := Product{ID: "p1", Title: "Desk lamp", Price: 12.50, Status: ProductAvailable}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid product rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(p *Product)
	}{
		{"missing id", func(p *Product) { p.ID = "" }},
		{"missing title", func(p *Product) { p.Title = "" }},
		{"negative price", func(p *Product) { p.Price = -1 }},
		{"unknown status", func(p *Product) { p.Status = "archived" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestReviewValidate(t *testing.T) {
	valid := Review{TargetUserID: "seller", ReviewerID: "buyer", Rating: 4}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid review rejected: %v", err)
	}

	for _, rating := range []int{0, -1, 6} {
		r := valid
		r.Rating = rating
		if err := r.Validate(); err == nil {
			t.Errorf("rating %d should be rejected", rating)
		}
	}

	r := valid
	r.ReviewerID = ""
	if err := r.Validate(); err == nil {
		t.Error("review without reviewer should be rejected")
	}
}

func TestConversationIDSymmetric(t *testing.T) {
	if ConversationID("alice", "bob") != ConversationID("bob", "alice") {
		t.Error("conversation id must not depend on direction")
	}
	if ConversationID("alice", "bob") == ConversationID("alice", "carol") {
		t.Error("different pairs must map to different conversations")
	}
}
