package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/brazyl/brazyl/internal/follow"
	"github.com/brazyl/brazyl/internal/infra/storage"
)

func TestDescribeFollowError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "already following",
			err:  fmt.Errorf("follow: %w", &follow.AlreadyFollowingError{Err: &storage.DuplicateKeyError{Table: "follows"}}),
			want: "You already follow this politician",
		},
		{
			name: "limit",
			err:  &follow.LimitReachedError{Limit: 3},
			want: "Limit of 3 politicians reached, upgrade your plan to follow more",
		},
		{name: "user", err: fmt.Errorf("%w: x", follow.ErrUserNotFound), want: "User not found"},
		{name: "politician", err: fmt.Errorf("%w: x", follow.ErrPoliticianNotFound), want: "Politician not found"},
		{name: "follow", err: fmt.Errorf("%w: x", follow.ErrFollowNotFound), want: "Follow not found"},
		{name: "unexpected", err: errors.New("connection refused"), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeFollowError(tt.err); got != tt.want {
				t.Errorf("describeFollowError() = %q, want %q", got, tt.want)
			}
		})
	}
}
