package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osusproperties/brokerage-core/internal/domain/approval"
)

func TestResolveApprovers(t *testing.T) {
	tests := []struct {
		name    string
		params  mockParams
		want    []string
		wantErr error
	}{
		{
			name:   "multi key wins",
			params: mockParams{DefaultApproverIDsKey: "7, 9,7,,12", DefaultApproverIDKey: "3"},
			want:   []string{"7", "9", "12"},
		},
		{
			name:   "blank multi key falls back to single",
			params: mockParams{DefaultApproverIDsKey: " , ", DefaultApproverIDKey: " 3 "},
			want:   []string{"3"},
		},
		{
			name:   "missing multi key falls back to single",
			params: mockParams{DefaultApproverIDKey: "3"},
			want:   []string{"3"},
		},
		{
			name:    "Odoo false marker is unset",
			params:  mockParams{DefaultApproverIDKey: "False"},
			wantErr: ErrNoApproversConfigured,
		},
		{
			name:    "nothing configured",
			params:  mockParams{},
			wantErr: ErrNoApproversConfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewApproverResolver(tt.params, "", "")
			got, err := r.ResolveApprovers(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveApprovers_CustomKeys(t *testing.T) {
	r := NewApproverResolver(mockParams{"bill.approvers": "5"}, "bill.approvers", "bill.approver")
	got, err := r.ResolveApprovers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, got)
}

type failingParams struct{}

func (failingParams) GetParam(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}

func TestResolveApprovers_SourceError(t *testing.T) {
	_, err := NewApproverResolver(failingParams{}, "", "").ResolveApprovers(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoApproversConfigured)
}

func TestPolicyProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("approvers cover missing reviewer and poster roles", func(t *testing.T) {
		p := NewPolicyProvider(NewApproverResolver(mockParams{DefaultApproverIDsKey: "7,9"}, "", ""), nil, nil)
		policy, err := p.Policy(ctx)
		require.NoError(t, err)
		assert.True(t, policy.Allows(approval.RoleApprover, "9"))
		assert.True(t, policy.Allows(approval.RoleReviewer, "7"))
		assert.True(t, policy.Allows(approval.RolePoster, "7"))
	})

	t.Run("static grants are kept", func(t *testing.T) {
		static := map[approval.Role][]string{
			approval.RoleReviewer: {"rev"},
			approval.RolePoster:   {"acct"},
			approval.RoleApprover: {"cfo"},
		}
		p := NewPolicyProvider(NewApproverResolver(mockParams{DefaultApproverIDKey: "7"}, "", ""), static, nil)
		policy, err := p.Policy(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"7", "cfo"}, policy.Principals(approval.RoleApprover))
		assert.False(t, policy.Allows(approval.RoleReviewer, "7"))
		assert.True(t, policy.Allows(approval.RolePoster, "acct"))
	})

	t.Run("no approvers anywhere is not an error", func(t *testing.T) {
		p := NewPolicyProvider(NewApproverResolver(mockParams{}, "", ""), nil, nil)
		policy, err := p.Policy(ctx)
		require.NoError(t, err)
		assert.False(t, policy.HasHolders(approval.RoleApprover))
	})

	t.Run("source errors propagate", func(t *testing.T) {
		p := NewPolicyProvider(NewApproverResolver(failingParams{}, "", ""), nil, nil)
		_, err := p.Policy(ctx)
		assert.Error(t, err)
	})
}
