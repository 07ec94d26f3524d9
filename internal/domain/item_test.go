package domain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/postloop/autopublisher/internal/domain"
)

func TestEnqueueRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     domain.EnqueueRequest
		wantErr error
	}{
		{"valid", domain.EnqueueRequest{Topic: "5 onboarding mistakes"}, nil},
		{"empty topic", domain.EnqueueRequest{}, domain.ErrInvalidTopic},
		{"topic too long", domain.EnqueueRequest{Topic: strings.Repeat("x", 513)}, domain.ErrInvalidTopic},
		{"explicit pending", domain.EnqueueRequest{Topic: "t", Status: domain.StatusPending}, nil},
		{"published not enqueueable", domain.EnqueueRequest{Topic: "t", Status: domain.StatusPublished}, domain.ErrInvalidStatus},
		{"unknown status", domain.EnqueueRequest{Topic: "t", Status: "draft"}, domain.ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEnqueueRequest_Validate_DefaultsToReady(t *testing.T) {
	req := domain.EnqueueRequest{Topic: "t"}
	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Status != domain.StatusReady {
		t.Fatalf("expected default status=ready, got %s", req.Status)
	}
}

func TestInsertAfterRequest_Validate(t *testing.T) {
	req := domain.InsertAfterRequest{
		AfterPosition: -1,
		Item:          domain.EnqueueRequest{Topic: "t"},
	}
	if err := req.Validate(); !errors.Is(err, domain.ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition, got %v", err)
	}

	req.AfterPosition = 0
	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStatus_IsActive(t *testing.T) {
	active := []domain.Status{domain.StatusPending, domain.StatusReady}
	inactive := []domain.Status{
		domain.StatusReview, domain.StatusPublished,
		domain.StatusSkipped, domain.StatusCancelled,
	}
	for _, s := range active {
		if !s.IsActive() {
			t.Errorf("expected %s to be active", s)
		}
	}
	for _, s := range inactive {
		if s.IsActive() {
			t.Errorf("expected %s to be inactive", s)
		}
	}
}
